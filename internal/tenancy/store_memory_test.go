package tenancy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"rentledger/internal/payment"
	"rentledger/pkg/domain"
	"rentledger/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newAgreement(unitID domain.UnitID, status Status) *Agreement {
	now := time.Now()
	return &Agreement{
		ID:                  domain.NewAgreementID(),
		RegistrationCode:    NewRegistrationCode("01", 2026),
		LandlordID:          domain.NewPartyID(),
		TenantID:            domain.NewPartyID(),
		UnitID:              unitID,
		AgreedRent:          decimal.NewFromInt(1000),
		AdvanceMonths:       1,
		LeaseDurationMonths: 12,
		StartDate:           date(2026, time.March, 1),
		EndDate:             date(2027, time.February, 28),
		Status:              status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (s *MemoryStoreSuite) newUnit(status UnitStatus) *Unit {
	return &Unit{
		ID:          domain.NewUnitID(),
		PropertyID:  domain.NewPropertyID(),
		MonthlyRent: decimal.NewFromInt(1000),
		Status:      status,
	}
}

func (s *MemoryStoreSuite) TestAgreementCreationAndLookup() {
	s.Run("creates and finds an agreement", func() {
		agreement := s.newAgreement(domain.NewUnitID(), StatusPending)
		s.Require().NoError(s.store.CreateAgreement(s.ctx, agreement))

		found, err := s.store.FindAgreement(s.ctx, agreement.ID)
		s.Require().NoError(err)
		s.Equal(agreement.RegistrationCode, found.RegistrationCode)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindAgreement(s.ctx, domain.NewAgreementID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects a duplicate registration code", func() {
		first := s.newAgreement(domain.NewUnitID(), StatusPending)
		s.Require().NoError(s.store.CreateAgreement(s.ctx, first))

		dup := s.newAgreement(domain.NewUnitID(), StatusPending)
		dup.RegistrationCode = first.RegistrationCode
		s.Require().ErrorIs(s.store.CreateAgreement(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("rejects a second live agreement on the same unit", func() {
		unitID := domain.NewUnitID()
		s.Require().NoError(s.store.CreateAgreement(s.ctx, s.newAgreement(unitID, StatusActive)))
		err := s.store.CreateAgreement(s.ctx, s.newAgreement(unitID, StatusPending))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows a new agreement after a terminal one", func() {
		unitID := domain.NewUnitID()
		s.Require().NoError(s.store.CreateAgreement(s.ctx, s.newAgreement(unitID, StatusTerminated)))
		s.Require().NoError(s.store.CreateAgreement(s.ctx, s.newAgreement(unitID, StatusPending)))
	})
}

func (s *MemoryStoreSuite) TestFindAgreementReturnsCopy() {
	agreement := s.newAgreement(domain.NewUnitID(), StatusPending)
	agreement.CustomFieldValues = map[string]string{"Parking Slot": "B2"}
	s.Require().NoError(s.store.CreateAgreement(s.ctx, agreement))

	found, err := s.store.FindAgreement(s.ctx, agreement.ID)
	s.Require().NoError(err)
	found.Status = StatusTerminated
	found.CustomFieldValues["Parking Slot"] = "mutated"

	reread, err := s.store.FindAgreement(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Equal(StatusPending, reread.Status)
	s.Equal("B2", reread.CustomFieldValues["Parking Slot"])
}

func (s *MemoryStoreSuite) TestExecuteAgreement() {
	agreement := s.newAgreement(domain.NewUnitID(), StatusPending)
	s.Require().NoError(s.store.CreateAgreement(s.ctx, agreement))

	s.Run("applies the mutation when validation passes", func() {
		updated, err := s.store.ExecuteAgreement(s.ctx, agreement.ID,
			func(*Agreement) error { return nil },
			func(a *Agreement) { a.Status = StatusActive },
		)
		s.Require().NoError(err)
		s.Equal(StatusActive, updated.Status)
	})

	s.Run("leaves state untouched when validation fails", func() {
		sentinelErr := errors.New("nope")
		_, err := s.store.ExecuteAgreement(s.ctx, agreement.ID,
			func(*Agreement) error { return sentinelErr },
			func(a *Agreement) { a.Status = StatusTerminated },
		)
		s.Require().ErrorIs(err, sentinelErr)

		found, err := s.store.FindAgreement(s.ctx, agreement.ID)
		s.Require().NoError(err)
		s.Equal(StatusActive, found.Status)
	})
}

func (s *MemoryStoreSuite) TestUnitOccupancy() {
	s.Run("occupies a vacant unit once", func() {
		unit := s.newUnit(UnitVacant)
		s.Require().NoError(s.store.SaveUnit(s.ctx, unit))

		s.Require().NoError(s.store.OccupyUnit(s.ctx, unit.ID))
		s.Require().ErrorIs(s.store.OccupyUnit(s.ctx, unit.ID), sentinel.ErrConflict)
	})

	s.Run("release makes the unit occupiable again", func() {
		unit := s.newUnit(UnitOccupied)
		s.Require().NoError(s.store.SaveUnit(s.ctx, unit))

		s.Require().NoError(s.store.ReleaseUnit(s.ctx, unit.ID))
		s.Require().NoError(s.store.OccupyUnit(s.ctx, unit.ID))
	})

	s.Run("unknown unit", func() {
		s.Require().ErrorIs(s.store.OccupyUnit(s.ctx, domain.NewUnitID()), sentinel.ErrNotFound)
		s.Require().ErrorIs(s.store.ReleaseUnit(s.ctx, domain.NewUnitID()), sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestListActiveEndingBefore() {
	past := s.newAgreement(domain.NewUnitID(), StatusActive)
	past.EndDate = date(2025, time.June, 30)
	future := s.newAgreement(domain.NewUnitID(), StatusActive)
	future.EndDate = date(2027, time.June, 30)
	pendingPast := s.newAgreement(domain.NewUnitID(), StatusPending)
	pendingPast.EndDate = date(2025, time.June, 30)

	for _, a := range []*Agreement{past, future, pendingPast} {
		s.Require().NoError(s.store.CreateAgreement(s.ctx, a))
	}

	ids, err := s.store.ListActiveEndingBefore(s.ctx, date(2026, time.January, 1))
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	s.Equal(past.ID, ids[0])
}

func (s *MemoryStoreSuite) TestObligations() {
	agreementID := domain.NewAgreementID()
	first := &payment.Obligation{
		ID:          domain.NewObligationID(),
		AgreementID: agreementID,
		DueDate:     date(2026, time.March, 1),
		MonthLabel:  "March 2026",
	}
	second := &payment.Obligation{
		ID:          domain.NewObligationID(),
		AgreementID: agreementID,
		DueDate:     date(2026, time.April, 1),
		MonthLabel:  "April 2026",
	}
	// Deliberately out of order.
	s.Require().NoError(s.store.InsertObligations(s.ctx, []*payment.Obligation{second, first}))

	s.Run("lists by agreement ordered by due date", func() {
		obligations, err := s.store.ListByAgreement(s.ctx, agreementID)
		s.Require().NoError(err)
		s.Require().Len(obligations, 2)
		s.Equal("March 2026", obligations[0].MonthLabel)
		s.Equal("April 2026", obligations[1].MonthLabel)
	})

	s.Run("execute mutates under validation", func() {
		updated, err := s.store.Execute(s.ctx, first.ID,
			func(*payment.Obligation) error { return nil },
			func(o *payment.Obligation) { o.TenantMarkedPaid = true },
		)
		s.Require().NoError(err)
		s.True(updated.TenantMarkedPaid)
	})

	s.Run("unknown obligation", func() {
		_, err := s.store.FindObligation(s.ctx, domain.NewObligationID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// A failing transaction body must leave no trace of its writes.
func (s *MemoryStoreSuite) TestRunInTxRollsBackOnFailure() {
	unit := s.newUnit(UnitVacant)
	s.Require().NoError(s.store.SaveUnit(s.ctx, unit))
	agreement := s.newAgreement(unit.ID, StatusPending)

	boom := errors.New("boom")
	err := s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
		s.Require().NoError(s.store.OccupyUnit(txCtx, unit.ID))
		s.Require().NoError(s.store.CreateAgreement(txCtx, agreement))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.FindAgreement(s.ctx, agreement.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindUnit(s.ctx, unit.ID)
	s.Require().NoError(err)
	s.Equal(UnitVacant, found.Status, "occupancy flip must roll back with the agreement")
}

func (s *MemoryStoreSuite) TestRunInTxCommitsOnSuccess() {
	unit := s.newUnit(UnitVacant)
	s.Require().NoError(s.store.SaveUnit(s.ctx, unit))
	agreement := s.newAgreement(unit.ID, StatusPending)

	err := s.store.RunInTx(s.ctx, func(txCtx context.Context) error {
		if err := s.store.OccupyUnit(txCtx, unit.ID); err != nil {
			return err
		}
		return s.store.CreateAgreement(txCtx, agreement)
	})
	s.Require().NoError(err)

	found, err := s.store.FindUnit(s.ctx, unit.ID)
	s.Require().NoError(err)
	s.Equal(UnitOccupied, found.Status)
}

func (s *MemoryStoreSuite) TestLandlordOf() {
	agreement := s.newAgreement(domain.NewUnitID(), StatusActive)
	s.Require().NoError(s.store.CreateAgreement(s.ctx, agreement))

	landlord, err := s.store.LandlordOf(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Equal(agreement.LandlordID, landlord)

	_, err = s.store.LandlordOf(s.ctx, domain.NewAgreementID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
