package tenancy

import (
	"context"
	"sort"
	"sync"
	"time"

	"rentledger/internal/payment"
	"rentledger/pkg/domain"
	"rentledger/pkg/platform/sentinel"
)

// InMemory implements Store, payment.Store, and payment.AgreementDirectory
// over process memory. Used in tests and when no DSN is configured.
//
// RunInTx serializes on a single mutex and snapshots all maps, restoring them
// if fn fails, which gives the same all-or-nothing behavior the Postgres store
// gets from real transactions.
type InMemory struct {
	mu          sync.Mutex
	agreements  map[domain.AgreementID]*Agreement
	units       map[domain.UnitID]*Unit
	obligations map[domain.ObligationID]*payment.Obligation
	regCodes    map[string]bool
}

func NewInMemory() *InMemory {
	return &InMemory{
		agreements:  make(map[domain.AgreementID]*Agreement),
		units:       make(map[domain.UnitID]*Unit),
		obligations: make(map[domain.ObligationID]*payment.Obligation),
		regCodes:    make(map[string]bool),
	}
}

type inTxKey struct{}

// RunInTx implements StoreTx.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.restoreLocked(snapshot)
		return err
	}
	return nil
}

// acquire locks the store unless the context already runs inside RunInTx.
func (s *InMemory) acquire(ctx context.Context) func() {
	if inTx, _ := ctx.Value(inTxKey{}).(bool); inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memorySnapshot struct {
	agreements  map[domain.AgreementID]*Agreement
	units       map[domain.UnitID]*Unit
	obligations map[domain.ObligationID]*payment.Obligation
	regCodes    map[string]bool
}

func (s *InMemory) snapshotLocked() memorySnapshot {
	snap := memorySnapshot{
		agreements:  make(map[domain.AgreementID]*Agreement, len(s.agreements)),
		units:       make(map[domain.UnitID]*Unit, len(s.units)),
		obligations: make(map[domain.ObligationID]*payment.Obligation, len(s.obligations)),
		regCodes:    make(map[string]bool, len(s.regCodes)),
	}
	for k, v := range s.agreements {
		snap.agreements[k] = cloneAgreement(v)
	}
	for k, v := range s.units {
		snap.units[k] = cloneUnit(v)
	}
	for k, v := range s.obligations {
		snap.obligations[k] = cloneObligation(v)
	}
	for k := range s.regCodes {
		snap.regCodes[k] = true
	}
	return snap
}

func (s *InMemory) restoreLocked(snap memorySnapshot) {
	s.agreements = snap.agreements
	s.units = snap.units
	s.obligations = snap.obligations
	s.regCodes = snap.regCodes
}

func (s *InMemory) CreateAgreement(ctx context.Context, agreement *Agreement) error {
	defer s.acquire(ctx)()

	if s.regCodes[agreement.RegistrationCode] {
		return sentinel.ErrConflict
	}
	for _, existing := range s.agreements {
		if existing.UnitID == agreement.UnitID && existing.Status.Live() {
			return sentinel.ErrConflict
		}
	}
	s.agreements[agreement.ID] = cloneAgreement(agreement)
	s.regCodes[agreement.RegistrationCode] = true
	return nil
}

func (s *InMemory) FindAgreement(ctx context.Context, id domain.AgreementID) (*Agreement, error) {
	defer s.acquire(ctx)()

	agreement, ok := s.agreements[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAgreement(agreement), nil
}

func (s *InMemory) ExecuteAgreement(ctx context.Context, id domain.AgreementID,
	validate func(*Agreement) error, mutate func(*Agreement)) (*Agreement, error) {
	defer s.acquire(ctx)()

	agreement, ok := s.agreements[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneAgreement(agreement)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.agreements[id] = working
	return cloneAgreement(working), nil
}

func (s *InMemory) ListActiveEndingBefore(ctx context.Context, cutoff time.Time) ([]domain.AgreementID, error) {
	defer s.acquire(ctx)()

	var ids []domain.AgreementID
	for id, agreement := range s.agreements {
		if agreement.Status == StatusActive && agreement.EndDate.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *InMemory) FindUnit(ctx context.Context, id domain.UnitID) (*Unit, error) {
	defer s.acquire(ctx)()

	unit, ok := s.units[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneUnit(unit), nil
}

func (s *InMemory) SaveUnit(ctx context.Context, unit *Unit) error {
	defer s.acquire(ctx)()

	s.units[unit.ID] = cloneUnit(unit)
	return nil
}

func (s *InMemory) OccupyUnit(ctx context.Context, id domain.UnitID) error {
	defer s.acquire(ctx)()

	unit, ok := s.units[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if unit.Status != UnitVacant {
		return sentinel.ErrConflict
	}
	unit.Status = UnitOccupied
	unit.UpdatedAt = time.Now()
	return nil
}

func (s *InMemory) ReleaseUnit(ctx context.Context, id domain.UnitID) error {
	defer s.acquire(ctx)()

	unit, ok := s.units[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	unit.Status = UnitVacant
	unit.UpdatedAt = time.Now()
	return nil
}

func (s *InMemory) InsertObligations(ctx context.Context, obligations []*payment.Obligation) error {
	defer s.acquire(ctx)()

	for _, obligation := range obligations {
		s.obligations[obligation.ID] = cloneObligation(obligation)
	}
	return nil
}

func (s *InMemory) LandlordOf(ctx context.Context, agreementID domain.AgreementID) (domain.PartyID, error) {
	defer s.acquire(ctx)()

	agreement, ok := s.agreements[agreementID]
	if !ok {
		return domain.PartyID{}, sentinel.ErrNotFound
	}
	return agreement.LandlordID, nil
}

// FindObligation implements payment.Store.
func (s *InMemory) FindObligation(ctx context.Context, id domain.ObligationID) (*payment.Obligation, error) {
	defer s.acquire(ctx)()

	obligation, ok := s.obligations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneObligation(obligation), nil
}

// ListByAgreement implements payment.Store, ordered by due date.
func (s *InMemory) ListByAgreement(ctx context.Context, agreementID domain.AgreementID) ([]*payment.Obligation, error) {
	defer s.acquire(ctx)()

	var out []*payment.Obligation
	for _, obligation := range s.obligations {
		if obligation.AgreementID == agreementID {
			out = append(out, cloneObligation(obligation))
		}
	}
	sortObligations(out)
	return out, nil
}

// Execute implements payment.Store: validate and mutate under the store lock.
func (s *InMemory) Execute(ctx context.Context, id domain.ObligationID,
	validate func(*payment.Obligation) error, mutate func(*payment.Obligation)) (*payment.Obligation, error) {
	defer s.acquire(ctx)()

	obligation, ok := s.obligations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneObligation(obligation)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.obligations[id] = working
	return cloneObligation(working), nil
}

func sortObligations(obligations []*payment.Obligation) {
	sort.Slice(obligations, func(i, j int) bool {
		return obligations[i].DueDate.Before(obligations[j].DueDate)
	})
}

func cloneAgreement(a *Agreement) *Agreement {
	clone := *a
	if a.CustomFieldValues != nil {
		clone.CustomFieldValues = make(map[string]string, len(a.CustomFieldValues))
		for k, v := range a.CustomFieldValues {
			clone.CustomFieldValues[k] = v
		}
	}
	return &clone
}

func cloneUnit(u *Unit) *Unit {
	clone := *u
	return &clone
}

func cloneObligation(o *payment.Obligation) *payment.Obligation {
	clone := *o
	return &clone
}
