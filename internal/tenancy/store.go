package tenancy

import (
	"context"
	"time"

	"rentledger/internal/payment"
	"rentledger/pkg/domain"
)

// Store persists agreements, units, and the proposal-time obligation batch.
// All methods honor a transaction carried in the context (StoreTx); the
// proposal's check-and-set, agreement insert, and schedule batch therefore
// commit or roll back as one unit.
type Store interface {
	// CreateAgreement inserts a new agreement. Returns sentinel.ErrConflict
	// when the registration code collides or the unit already carries a live
	// agreement (partial unique index / exclusivity check).
	CreateAgreement(ctx context.Context, agreement *Agreement) error

	FindAgreement(ctx context.Context, id domain.AgreementID) (*Agreement, error)

	// ExecuteAgreement runs validate and mutate while holding the agreement's
	// lock, so lifecycle transitions never act on a stale status.
	ExecuteAgreement(ctx context.Context, id domain.AgreementID,
		validate func(*Agreement) error,
		mutate func(*Agreement)) (*Agreement, error)

	// ListActiveEndingBefore returns active agreements whose end date is
	// strictly before the cutoff. Feeds the expiry sweep.
	ListActiveEndingBefore(ctx context.Context, cutoff time.Time) ([]domain.AgreementID, error)

	FindUnit(ctx context.Context, id domain.UnitID) (*Unit, error)
	SaveUnit(ctx context.Context, unit *Unit) error

	// OccupyUnit flips the unit vacant -> occupied as a single conditional
	// update. Returns sentinel.ErrConflict when the unit is not vacant and
	// sentinel.ErrNotFound when it does not exist.
	OccupyUnit(ctx context.Context, id domain.UnitID) error

	// ReleaseUnit flips the unit back to vacant when its agreement leaves a
	// live status.
	ReleaseUnit(ctx context.Context, id domain.UnitID) error

	// InsertObligations batch-inserts a full schedule. All rows or none.
	InsertObligations(ctx context.Context, obligations []*payment.Obligation) error

	// LandlordOf satisfies payment.AgreementDirectory.
	LandlordOf(ctx context.Context, agreementID domain.AgreementID) (domain.PartyID, error)
}

// StoreTx runs fn inside one atomic unit against the persistence layer. Store
// calls made with the context fn receives join that unit.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
