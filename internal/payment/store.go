package payment

import (
	"context"

	"rentledger/pkg/domain"
)

// Store persists obligations. The schedule is written as a batch by the
// tenancy proposal transaction; this interface only covers reads and the two
// confirmation mutations.
type Store interface {
	FindObligation(ctx context.Context, id domain.ObligationID) (*Obligation, error)
	ListByAgreement(ctx context.Context, agreementID domain.AgreementID) ([]*Obligation, error)

	// Execute runs validate and mutate on the obligation while holding its
	// lock (mutex or SELECT ... FOR UPDATE), so confirmation triggers never
	// act on a stale read of the flags.
	Execute(ctx context.Context, id domain.ObligationID,
		validate func(*Obligation) error,
		mutate func(*Obligation)) (*Obligation, error)
}

// AgreementDirectory resolves the parties on an obligation's parent agreement
// so confirmation preconditions can be checked without importing the tenancy
// package. Satisfied by the tenancy stores.
type AgreementDirectory interface {
	LandlordOf(ctx context.Context, agreementID domain.AgreementID) (domain.PartyID, error)
}
