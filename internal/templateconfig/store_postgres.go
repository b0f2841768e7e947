package templateconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rentledger/pkg/platform/sentinel"
)

// PostgresStore persists the singleton configuration row. The table carries a
// CHECK (id = 1) so a second live instance cannot exist.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context) (*Config, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT max_advance_months, min_lease_duration, max_lease_duration,
		       tax_rate, registration_deadline_days, standard_terms,
		       custom_fields, version, updated_at
		FROM template_config WHERE id = 1`)

	var (
		cfg          Config
		taxRate      string
		termsJSON    []byte
		fieldsJSON   []byte
	)
	err := row.Scan(&cfg.MaxAdvanceMonths, &cfg.MinLeaseDuration, &cfg.MaxLeaseDuration,
		&taxRate, &cfg.RegistrationDeadlineDays, &termsJSON, &fieldsJSON,
		&cfg.Version, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find template config: %w", err)
	}

	cfg.TaxRate, err = decimal.NewFromString(taxRate)
	if err != nil {
		return nil, fmt.Errorf("parse stored tax rate: %w", err)
	}
	if err := json.Unmarshal(termsJSON, &cfg.StandardTerms); err != nil {
		return nil, fmt.Errorf("decode standard terms: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &cfg.CustomFields); err != nil {
		return nil, fmt.Errorf("decode custom fields: %w", err)
	}
	return &cfg, nil
}

func (s *PostgresStore) Save(ctx context.Context, cfg *Config) error {
	termsJSON, err := json.Marshal(cfg.StandardTerms)
	if err != nil {
		return fmt.Errorf("encode standard terms: %w", err)
	}
	fieldsJSON, err := json.Marshal(cfg.CustomFields)
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}

	now := time.Now()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO template_config
			(id, max_advance_months, min_lease_duration, max_lease_duration,
			 tax_rate, registration_deadline_days, standard_terms, custom_fields,
			 version, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, 1, $8)
		ON CONFLICT (id) DO UPDATE SET
			max_advance_months = EXCLUDED.max_advance_months,
			min_lease_duration = EXCLUDED.min_lease_duration,
			max_lease_duration = EXCLUDED.max_lease_duration,
			tax_rate = EXCLUDED.tax_rate,
			registration_deadline_days = EXCLUDED.registration_deadline_days,
			standard_terms = EXCLUDED.standard_terms,
			custom_fields = EXCLUDED.custom_fields,
			version = template_config.version + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING version`,
		cfg.MaxAdvanceMonths, cfg.MinLeaseDuration, cfg.MaxLeaseDuration,
		cfg.TaxRate.String(), cfg.RegistrationDeadlineDays, termsJSON, fieldsJSON, now)

	if err := row.Scan(&cfg.Version); err != nil {
		return fmt.Errorf("save template config: %w", err)
	}
	cfg.UpdatedAt = now
	return nil
}
