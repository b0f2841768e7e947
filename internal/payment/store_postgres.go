package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentledger/pkg/domain"
	"rentledger/pkg/platform/sentinel"
)

// PostgresStore persists obligations in PostgreSQL. Execute takes a row lock
// for the validate-then-mutate window so racing confirmations serialize.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const obligationColumns = `
	id, agreement_id, month_label, due_date, monthly_rent, tax_amount,
	amount_to_landlord, status, tenant_marked_paid, landlord_confirmed,
	created_at, updated_at`

func (s *PostgresStore) FindObligation(ctx context.Context, id domain.ObligationID) (*Obligation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM rent_obligations WHERE id = $1`,
		uuid.UUID(id))
	obligation, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find obligation: %w", err)
	}
	return obligation, nil
}

func (s *PostgresStore) ListByAgreement(ctx context.Context, agreementID domain.AgreementID) ([]*Obligation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+obligationColumns+` FROM rent_obligations WHERE agreement_id = $1 ORDER BY due_date`,
		uuid.UUID(agreementID))
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []*Obligation
	for rows.Next() {
		obligation, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		obligations = append(obligations, obligation)
	}
	return obligations, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, id domain.ObligationID,
	validate func(*Obligation) error, mutate func(*Obligation)) (*Obligation, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin obligation update: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx,
		`SELECT `+obligationColumns+` FROM rent_obligations WHERE id = $1 FOR UPDATE`,
		uuid.UUID(id))
	obligation, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock obligation: %w", err)
	}

	if err := validate(obligation); err != nil {
		return nil, err
	}
	mutate(obligation)

	_, err = tx.ExecContext(ctx, `
		UPDATE rent_obligations
		SET status = $2, tenant_marked_paid = $3, landlord_confirmed = $4, updated_at = $5
		WHERE id = $1`,
		uuid.UUID(obligation.ID), string(obligation.Status),
		obligation.TenantMarkedPaid, obligation.LandlordConfirmed, obligation.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update obligation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit obligation update: %w", err)
	}
	return obligation, nil
}

// LandlordOf satisfies AgreementDirectory against the agreements table.
func (s *PostgresStore) LandlordOf(ctx context.Context, agreementID domain.AgreementID) (domain.PartyID, error) {
	var landlord uuid.UUID
	err := s.db.QueryRowContext(ctx,
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObligation(row rowScanner) (*Obligation, error) {
	var (
		o                        Obligation
		id, agreementID          uuid.UUID
		rent, tax, landlordShare string
		status                   string
	)
	err := row.Scan(&id, &agreementID, &o.MonthLabel, &o.DueDate, &rent, &tax,
		&landlordShare, &status, &o.TenantMarkedPaid, &o.LandlordConfirmed,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.ID = domain.ObligationID(id)
	o.AgreementID = domain.AgreementID(agreementID)
	o.Status = Status(status)
	if o.MonthlyRent, err = decimal.NewFromString(rent); err != nil {
		return nil, fmt.Errorf("parse monthly rent: %w", err)
	}
	if o.TaxAmount, err = decimal.NewFromString(tax); err != nil {
		return nil, fmt.Errorf("parse tax amount: %w", err)
	}
	if o.AmountToLandlord, err = decimal.NewFromString(landlordShare); err != nil {
		return nil, fmt.Errorf("parse landlord amount: %w", err)
	}
	return &o, nil
}
