package tenancy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"rentledger/internal/payment"
	"rentledger/pkg/domain"
	"rentledger/pkg/platform/sentinel"
	pkgtx "rentledger/pkg/platform/tx"
)

// PostgresStore implements Store against PostgreSQL. Every method uses the
// transaction carried in the context when one is present, so the proposal's
// writes land in a single transaction.
//
// Exclusivity is enforced twice: OccupyUnit is a conditional UPDATE, and a
// partial unique index on (unit_id) WHERE status IN ('pending','active')
// backstops it at the agreement table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := pkgtx.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const agreementColumns = `
	id, registration_code, landlord_id, tenant_id, unit_id, agreed_rent,
	advance_months, lease_duration_months, start_date, end_date, status,
	landlord_accepted, tenant_accepted, config_version, custom_field_values,
	created_at, updated_at`

func (s *PostgresStore) CreateAgreement(ctx context.Context, agreement *Agreement) error {
	valuesJSON, err := json.Marshal(agreement.CustomFieldValues)
	if err != nil {
		return fmt.Errorf("encode custom field values: %w", err)
	}

	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO tenancy_agreements (`+agreementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		uuid.UUID(agreement.ID), agreement.RegistrationCode,
		uuid.UUID(agreement.LandlordID), uuid.UUID(agreement.TenantID),
		uuid.UUID(agreement.UnitID), agreement.AgreedRent.String(),
		agreement.AdvanceMonths, agreement.LeaseDurationMonths,
		agreement.StartDate, agreement.EndDate, string(agreement.Status),
		agreement.LandlordAccepted, agreement.TenantAccepted,
		agreement.ConfigVersion, valuesJSON,
		agreement.CreatedAt, agreement.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create agreement: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindAgreement(ctx context.Context, id domain.AgreementID) (*Agreement, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+agreementColumns+` FROM tenancy_agreements WHERE id = $1`,
		uuid.UUID(id))
	agreement, err := scanAgreement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find agreement: %w", err)
	}
	return agreement, nil
}

func (s *PostgresStore) ExecuteAgreement(ctx context.Context, id domain.AgreementID,
	validate func(*Agreement) error, mutate func(*Agreement)) (*Agreement, error) {

	run := func(ctx context.Context) (*Agreement, error) {
		row := s.q(ctx).QueryRowContext(ctx,
			`SELECT `+agreementColumns+` FROM tenancy_agreements WHERE id = $1 FOR UPDATE`,
			uuid.UUID(id))
		agreement, err := scanAgreement(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sentinel.ErrNotFound
			}
			return nil, fmt.Errorf("lock agreement: %w", err)
		}

		if err := validate(agreement); err != nil {
			return nil, err
		}
		mutate(agreement)

		_, err = s.q(ctx).ExecContext(ctx, `
			UPDATE tenancy_agreements
			SET status = $2, landlord_accepted = $3, tenant_accepted = $4, updated_at = $5
			WHERE id = $1`,
			uuid.UUID(agreement.ID), string(agreement.Status),
			agreement.LandlordAccepted, agreement.TenantAccepted, agreement.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("update agreement: %w", err)
		}
		return agreement, nil
	}

	// FOR UPDATE needs a transaction; open one only when the caller did not.
	if _, ok := pkgtx.From(ctx); ok {
		return run(ctx)
	}

	var agreement *Agreement
	err := NewPostgresTx(s.db).RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		agreement, err = run(txCtx)
		return err
	})
	return agreement, err
}

func (s *PostgresStore) ListActiveEndingBefore(ctx context.Context, cutoff time.Time) ([]domain.AgreementID, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id FROM tenancy_agreements WHERE status = $1 AND end_date < $2`,
		string(StatusActive), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expiring agreements: %w", err)
	}
	defer rows.Close()

	var ids []domain.AgreementID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan agreement id: %w", err)
		}
		ids = append(ids, domain.AgreementID(id))
	}
	return ids, rows.Err()
}

func (s *PostgresStore) FindUnit(ctx context.Context, id domain.UnitID) (*Unit, error) {
	var (
		unit       Unit
		unitID     uuid.UUID
		propertyID uuid.UUID
		rent       string
		status     string
	)
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, property_id, monthly_rent, status, created_at, updated_at
		FROM units WHERE id = $1`, uuid.UUID(id)).
		Scan(&unitID, &propertyID, &rent, &status, &unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find unit: %w", err)
	}
	unit.ID = domain.UnitID(unitID)
	unit.PropertyID = domain.PropertyID(propertyID)
	unit.Status = UnitStatus(status)
	if unit.MonthlyRent, err = decimal.NewFromString(rent); err != nil {
		return nil, fmt.Errorf("parse unit rent: %w", err)
	}
	return &unit, nil
}

func (s *PostgresStore) SaveUnit(ctx context.Context, unit *Unit) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO units (id, property_id, monthly_rent, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			monthly_rent = EXCLUDED.monthly_rent,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(unit.ID), uuid.UUID(unit.PropertyID), unit.MonthlyRent.String(),
		string(unit.Status), unit.CreatedAt, unit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save unit: %w", err)
	}
	return nil
}

func (s *PostgresStore) OccupyUnit(ctx context.Context, id domain.UnitID) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE units SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		uuid.UUID(id), string(UnitOccupied), string(UnitVacant))
	if err != nil {
		return fmt.Errorf("occupy unit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("occupy unit result: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindUnit(ctx, id); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ReleaseUnit(ctx context.Context, id domain.UnitID) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE units SET status = $2, updated_at = now() WHERE id = $1`,
		uuid.UUID(id), string(UnitVacant))
	if err != nil {
		return fmt.Errorf("release unit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release unit result: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// InsertObligations writes the full schedule as one multi-row INSERT so a
// partial schedule can never be observed.
func (s *PostgresStore) InsertObligations(ctx context.Context, obligations []*payment.Obligation) error {
	if len(obligations) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO rent_obligations
		(id, agreement_id, month_label, due_date, monthly_rent, tax_amount,
		 amount_to_landlord, status, tenant_marked_paid, landlord_confirmed,
		 created_at, updated_at) VALUES `)
	for i, o := range obligations {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 12
		sb.WriteString("(")
		for j := 1; j <= 12; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			uuid.UUID(o.ID), uuid.UUID(o.AgreementID), o.MonthLabel, o.DueDate,
			o.MonthlyRent.String(), o.TaxAmount.String(), o.AmountToLandlord.String(),
			string(o.Status), o.TenantMarkedPaid, o.LandlordConfirmed,
			o.CreatedAt, o.UpdatedAt)
	}

	if _, err := s.q(ctx).ExecContext(ctx, sb.String(), args...); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert obligations: %w", err)
	}
	return nil
}

func (s *PostgresStore) LandlordOf(ctx context.Context, agreementID domain.AgreementID) (domain.PartyID, error) {
	var landlord uuid.UUID
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT landlord_id FROM tenancy_agreements WHERE id = $1`,
		uuid.UUID(agreementID)).Scan(&landlord)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PartyID{}, sentinel.ErrNotFound
		}
		return domain.PartyID{}, fmt.Errorf("find agreement landlord: %w", err)
	}
	return domain.PartyID(landlord), nil
}

func scanAgreement(row *sql.Row) (*Agreement, error) {
	var (
		a                            Agreement
		id, landlordID, tenantID     uuid.UUID
		unitID                       uuid.UUID
		rent, status                 string
		valuesJSON                   []byte
	)
	err := row.Scan(&id, &a.RegistrationCode, &landlordID, &tenantID, &unitID,
		&rent, &a.AdvanceMonths, &a.LeaseDurationMonths, &a.StartDate, &a.EndDate,
		&status, &a.LandlordAccepted, &a.TenantAccepted, &a.ConfigVersion,
		&valuesJSON, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = domain.AgreementID(id)
	a.LandlordID = domain.PartyID(landlordID)
	a.TenantID = domain.PartyID(tenantID)
	a.UnitID = domain.UnitID(unitID)
	a.Status = Status(status)
	if a.AgreedRent, err = decimal.NewFromString(rent); err != nil {
		return nil, fmt.Errorf("parse agreed rent: %w", err)
	}
	if err := json.Unmarshal(valuesJSON, &a.CustomFieldValues); err != nil {
		return nil, fmt.Errorf("decode custom field values: %w", err)
	}
	return &a, nil
}

const defaultTxTimeout = 5 * time.Second

// PostgresTx implements StoreTx over database/sql transactions, carrying the
// open transaction in the context for the store methods.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(pkgtx.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
