//go:build integration

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
	"rentledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	tx    *PostgresTx
	ctx   context.Context
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.DB)
	s.tx = NewPostgresTx(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) seedUnit() *Unit {
	now := time.Now().UTC().Truncate(time.Microsecond)
	unit := &Unit{
		ID:          domain.NewUnitID(),
		PropertyID:  domain.NewPropertyID(),
		MonthlyRent: decimal.NewFromInt(1000),
		Status:      UnitVacant,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Require().NoError(s.store.SaveUnit(s.ctx, unit))
	return unit
}

func (s *PostgresStoreSuite) newAgreement(unitID domain.UnitID, status Status) *Agreement {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Agreement{
		ID:                  domain.NewAgreementID(),
		RegistrationCode:    NewRegistrationCode("01", 2026),
		LandlordID:          domain.NewPartyID(),
		TenantID:            domain.NewPartyID(),
		UnitID:              unitID,
		AgreedRent:          decimal.RequireFromString("1000.00"),
		AdvanceMonths:       1,
		LeaseDurationMonths: 12,
		StartDate:           date(2026, time.March, 1),
		EndDate:             date(2027, time.February, 28),
		Status:              status,
		LandlordAccepted:    true,
		ConfigVersion:       1,
		CustomFieldValues:   map[string]string{"Parking Slot": "B2"},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (s *PostgresStoreSuite) TestAgreementRoundTrip() {
	unit := s.seedUnit()
	agreement := s.newAgreement(unit.ID, StatusPending)
	s.Require().NoError(s.store.CreateAgreement(s.ctx, agreement))

	found, err := s.store.FindAgreement(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Equal(agreement.RegistrationCode, found.RegistrationCode)
	s.Equal(StatusPending, found.Status)
	s.True(found.AgreedRent.Equal(agreement.AgreedRent))
	s.Equal("B2", found.CustomFieldValues["Parking Slot"])

	_, err = s.store.FindAgreement(s.ctx, domain.NewAgreementID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUniqueConstraints() {
	s.Run("registration code", func() {
		first := s.newAgreement(s.seedUnit().ID, StatusPending)
		s.Require().NoError(s.store.CreateAgreement(s.ctx, first))

		dup := s.newAgreement(s.seedUnit().ID, StatusPending)
		dup.RegistrationCode = first.RegistrationCode
		s.Require().ErrorIs(s.store.CreateAgreement(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("partial unique index blocks a second live agreement per unit", func() {
		unit := s.seedUnit()
		s.Require().NoError(s.store.CreateAgreement(s.ctx, s.newAgreement(unit.ID, StatusActive)))
		err := s.store.CreateAgreement(s.ctx, s.newAgreement(unit.ID, StatusPending))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("terminal statuses do not block", func() {
		unit := s.seedUnit()
		s.Require().NoError(s.store.CreateAgreement(s.ctx, s.newAgreement(unit.ID, StatusExpired)))
		s.Require().NoError(s.store.CreateAgreement(s.ctx, s.newAgreement(unit.ID, StatusPending)))
	})
}

func (s *PostgresStoreSuite) TestOccupyUnitCompareAndSet() {
	unit := s.seedUnit()

	s.Require().NoError(s.store.OccupyUnit(s.ctx, unit.ID))
	s.Require().ErrorIs(s.store.OccupyUnit(s.ctx, unit.ID), sentinel.ErrConflict)

	s.Require().NoError(s.store.ReleaseUnit(s.ctx, unit.ID))
	s.Require().NoError(s.store.OccupyUnit(s.ctx, unit.ID))

	s.Require().ErrorIs(s.store.OccupyUnit(s.ctx, domain.NewUnitID()), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecuteAgreementPersistsTransition() {
	agreement := s.newAgreement(s.seedUnit().ID, StatusPending)
	s.Require().NoError(s.store.CreateAgreement(s.ctx, agreement))

	updated, err := s.store.ExecuteAgreement(s.ctx, agreement.ID,
		func(*Agreement) error { return nil },
		func(a *Agreement) {
			a.Status = StatusActive
			a.TenantAccepted = true
			a.UpdatedAt = time.Now().UTC()
		},
	)
	s.Require().NoError(err)
	s.Equal(StatusActive, updated.Status)

	found, err := s.store.FindAgreement(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Equal(StatusActive, found.Status)
	s.True(found.TenantAccepted)
}

func (s *PostgresStoreSuite) TestRunInTxRollsBackAllWrites() {
	unit := s.seedUnit()
	agreement := s.newAgreement(unit.ID, StatusPending)

	boom := errors.New("boom")
	err := s.tx.RunInTx(s.ctx, func(txCtx context.Context) error {
		if err := s.store.OccupyUnit(txCtx, unit.ID); err != nil {
			return err
		}
		if err := s.store.CreateAgreement(txCtx, agreement); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	_, err = s.store.FindAgreement(s.ctx, agreement.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindUnit(s.ctx, unit.ID)
	s.Require().NoError(err)
	s.Equal(UnitVacant, found.Status)
}

func (s *PostgresStoreSuite) TestObligationsAndPaymentStore() {
	agreement := s.newAgreement(s.seedUnit().ID, StatusActive)
	s.Require().NoError(s.store.CreateAgreement(s.ctx, agreement))

	cfgRate := decimal.RequireFromString("0.08")
	schedule := GenerateSchedule(agreement, cfgRate, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.store.InsertObligations(s.ctx, schedule))

	payStore := payment.NewPostgresStore(s.pg.DB)

	obligations, err := payStore.ListByAgreement(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Require().Len(obligations, 12)
	s.Equal("March 2026", obligations[0].MonthLabel)
	s.True(obligations[0].TaxAmount.Equal(decimal.RequireFromString("80.00")))

	s.Run("execute persists confirmation flags", func() {
		target := obligations[0]
		updated, err := payStore.Execute(s.ctx, target.ID,
			func(*payment.Obligation) error { return nil },
			func(o *payment.Obligation) {
				o.ApplyLandlordConfirmation(time.Now().UTC())
			},
		)
		s.Require().NoError(err)
		s.Equal(payment.StatusConfirmed, updated.Status)

		reread, err := payStore.FindObligation(s.ctx, target.ID)
		s.Require().NoError(err)
		s.True(reread.LandlordConfirmed)
		s.Equal(payment.StatusConfirmed, reread.Status)
	})

	s.Run("landlord lookup", func() {
		landlord, err := payStore.LandlordOf(s.ctx, agreement.ID)
		s.Require().NoError(err)
		s.Equal(agreement.LandlordID, landlord)
	})
}

func (s *PostgresStoreSuite) TestListActiveEndingBefore() {
	past := s.newAgreement(s.seedUnit().ID, StatusActive)
	past.EndDate = date(2025, time.June, 30)
	future := s.newAgreement(s.seedUnit().ID, StatusActive)

	s.Require().NoError(s.store.CreateAgreement(s.ctx, past))
	s.Require().NoError(s.store.CreateAgreement(s.ctx, future))

	ids, err := s.store.ListActiveEndingBefore(s.ctx, date(2026, time.January, 1))
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	s.Equal(past.ID, ids[0])
}
