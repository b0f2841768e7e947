package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rentledger/internal/audit"
	"rentledger/internal/platform/metrics"
	"rentledger/internal/templateconfig"
	"rentledger/pkg/domain"
	dErrors "rentledger/pkg/domain-errors"
	"rentledger/pkg/platform/sentinel"
	"rentledger/pkg/requestcontext"
)

// ConfigResolver supplies the statutory configuration snapshot a proposal is
// validated against. The snapshot's version is pinned on the agreement.
type ConfigResolver interface {
	Resolve(ctx context.Context) (*templateconfig.Config, error)
}

// AuditPublisher records lifecycle transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the tenancy lifecycle: proposal, acceptance, and the
// explicit terminal transitions.
type Service struct {
	store    Store
	tx       StoreTx
	resolver ConfigResolver
	region   string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditP   AuditPublisher
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditP = publisher }
}

func WithRegion(region string) Option {
	return func(s *Service) { s.region = region }
}

func NewService(store Store, tx StoreTx, resolver ConfigResolver, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tx:       tx,
		resolver: resolver,
		region:   "01",
		logger:   slog.Default(),
		tracer:   otel.Tracer("rentledger/tenancy"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProposeRequest carries the landlord's proposed terms.
type ProposeRequest struct {
	LandlordID          domain.PartyID
	TenantID            domain.PartyID
	UnitID              domain.UnitID
	AgreedRent          decimal.Decimal
	AdvanceMonths       int
	LeaseDurationMonths int
	StartDate           time.Time
	CustomFieldValues   map[string]string
}

// Propose validates the terms against the current statutory snapshot and
// atomically creates the agreement, its full obligation schedule, and the
// unit occupancy flip. On any failure nothing is persisted.
func (s *Service) Propose(ctx context.Context, req ProposeRequest) (*Agreement, error) {
	ctx, span := s.tracer.Start(ctx, "tenancy.Propose",
		trace.WithAttributes(attribute.String("unit_id", req.UnitID.String())))
	defer span.End()
	start := time.Now()

	cfg, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.metrics.IncrementProposal("error")
		return nil, err
	}

	if err := s.validateProposal(cfg, &req); err != nil {
		s.metrics.IncrementProposal("validation")
		return nil, err
	}

	unit, err := s.store.FindUnit(ctx, req.UnitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementProposal("validation")
			return nil, dErrors.New(dErrors.CodeNotFound, "unit not found")
		}
		s.metrics.IncrementProposal("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}
	if req.AgreedRent.IsZero() {
		req.AgreedRent = unit.MonthlyRent
	}
	if !req.AgreedRent.IsPositive() {
		s.metrics.IncrementProposal("validation")
		return nil, dErrors.New(dErrors.CodeValidation, "agreed rent must be positive")
	}

	now := requestcontext.Now(ctx)
	agreement := &Agreement{
		ID:                  domain.NewAgreementID(),
		RegistrationCode:    NewRegistrationCode(s.region, req.StartDate.Year()),
		LandlordID:          req.LandlordID,
		TenantID:            req.TenantID,
		UnitID:              req.UnitID,
		AgreedRent:          req.AgreedRent,
		AdvanceMonths:       req.AdvanceMonths,
		LeaseDurationMonths: req.LeaseDurationMonths,
		StartDate:           req.StartDate,
		EndDate:             LeaseEndDate(req.StartDate, req.LeaseDurationMonths),
		Status:              StatusPending,
		LandlordAccepted:    true,
		TenantAccepted:      false,
		ConfigVersion:       cfg.Version,
		CustomFieldValues:   req.CustomFieldValues,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	schedule := GenerateSchedule(agreement, cfg.TaxRate, now)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.OccupyUnit(txCtx, req.UnitID); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "unit not found")
			case errors.Is(err, sentinel.ErrConflict):
				return dErrors.New(dErrors.CodeConflict, "unit already has a live agreement")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve unit")
			}
		}
		if err := s.store.CreateAgreement(txCtx, agreement); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "unit already has a live agreement")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create agreement")
		}
		if err := s.store.InsertObligations(txCtx, schedule); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist payment schedule")
		}
		return nil
	})
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeConflict:
			s.metrics.IncrementProposal("conflict")
		case dErrors.CodeNotFound:
			s.metrics.IncrementProposal("validation")
		default:
			s.metrics.IncrementProposal("error")
		}
		return nil, err
	}

	s.metrics.IncrementProposal("created")
	s.metrics.ObserveProposeLatency(time.Since(start))
	s.emitAudit(ctx, audit.Event{
		Action:           audit.ActionTenancyProposed,
		ActorID:          req.LandlordID.String(),
		AgreementID:      agreement.ID.String(),
		UnitID:           req.UnitID.String(),
		RegistrationCode: agreement.RegistrationCode,
		Detail:           fmt.Sprintf("%d months from %s", req.LeaseDurationMonths, req.StartDate.Format("2006-01-02")),
	})
	return agreement, nil
}

func (s *Service) validateProposal(cfg *templateconfig.Config, req *ProposeRequest) error {
	if req.LandlordID.IsNil() || req.TenantID.IsNil() || req.UnitID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "landlord, tenant, and unit are required")
	}
	if req.LandlordID == req.TenantID {
		return dErrors.New(dErrors.CodeValidation, "landlord and tenant must be distinct parties")
	}
	if req.StartDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start date is required")
	}
	if req.AdvanceMonths < 0 {
		return dErrors.New(dErrors.CodeValidation, "advance months must not be negative")
	}
	if req.AdvanceMonths > cfg.MaxAdvanceMonths {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("advance months %d exceeds the statutory cap of %d", req.AdvanceMonths, cfg.MaxAdvanceMonths))
	}
	if req.LeaseDurationMonths < cfg.MinLeaseDuration || req.LeaseDurationMonths > cfg.MaxLeaseDuration {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("lease duration %d months is outside the statutory bounds [%d, %d]",
				req.LeaseDurationMonths, cfg.MinLeaseDuration, cfg.MaxLeaseDuration))
	}
	if err := cfg.ValidateFieldValues(req.CustomFieldValues); err != nil {
		return err
	}
	if req.AgreedRent.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "agreed rent must not be negative")
	}
	return nil
}

// Accept transitions a pending agreement to active on behalf of the named
// tenant. Accepting an already-active agreement is a no-op, not an error.
func (s *Service) Accept(ctx context.Context, agreementID domain.AgreementID, tenantID domain.PartyID) (*Agreement, error) {
	ctx, span := s.tracer.Start(ctx, "tenancy.Accept",
		trace.WithAttributes(attribute.String("agreement_id", agreementID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	activated := false
	agreement, err := s.store.ExecuteAgreement(ctx, agreementID,
		func(a *Agreement) error {
			if err := a.CanAccept(tenantID); err != nil {
				return err
			}
			activated = a.Status == StatusPending
			return nil
		},
		func(a *Agreement) {
			a.ApplyAcceptance(now)
		},
	)
	if err != nil {
		return nil, wrapAgreementErr(err)
	}

	if activated {
		s.metrics.IncrementTransition("accepted")
		s.emitAudit(ctx, audit.Event{
			Action:           audit.ActionTenancyAccepted,
			ActorID:          tenantID.String(),
			AgreementID:      agreement.ID.String(),
			RegistrationCode: agreement.RegistrationCode,
		})
	}
	return agreement, nil
}

// Decline rejects a pending agreement on behalf of the named tenant and
// releases the unit.
func (s *Service) Decline(ctx context.Context, agreementID domain.AgreementID, tenantID domain.PartyID) (*Agreement, error) {
	return s.terminalTransition(ctx, agreementID, tenantID, "declined", audit.ActionTenancyDeclined,
		func(a *Agreement) error { return a.CanDecline(tenantID) },
		(*Agreement).ApplyDecline)
}

// Terminate ends an active agreement at the request of either party and
// releases the unit.
func (s *Service) Terminate(ctx context.Context, agreementID domain.AgreementID, actorID domain.PartyID) (*Agreement, error) {
	return s.terminalTransition(ctx, agreementID, actorID, "terminated", audit.ActionTenancyTerminated,
		func(a *Agreement) error { return a.CanTerminate(actorID) },
		(*Agreement).ApplyTermination)
}

// ExpireDue sweeps active agreements past their end date into expired,
// releasing their units. Invoked periodically from main.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.store.ListActiveEndingBefore(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expiring agreements")
	}

	expired := 0
	for _, id := range ids {
		_, err := s.terminalTransition(ctx, id, domain.PartyID{}, "expired", audit.ActionTenancyExpired,
			func(a *Agreement) error { return a.CanExpire(now) },
			(*Agreement).ApplyExpiry)
		if err != nil {
			// Another sweep or a termination may have won the race; skip.
			if dErrors.HasCode(err, dErrors.CodePrecondition) || dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *Service) terminalTransition(ctx context.Context, agreementID domain.AgreementID,
	actorID domain.PartyID, transition string, action string,
	validate func(*Agreement) error, mutate func(*Agreement, time.Time)) (*Agreement, error) {

	now := requestcontext.Now(ctx)
	var agreement *Agreement
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		agreement, err = s.store.ExecuteAgreement(txCtx, agreementID,
			validate,
			func(a *Agreement) { mutate(a, now) },
		)
		if err != nil {
			return err
		}
		return s.store.ReleaseUnit(txCtx, agreement.UnitID)
	})
	if err != nil {
		return nil, wrapAgreementErr(err)
	}

	s.metrics.IncrementTransition(transition)
	s.emitAudit(ctx, audit.Event{
		Action:           action,
		ActorID:          actorID.String(),
		AgreementID:      agreement.ID.String(),
		UnitID:           agreement.UnitID.String(),
		RegistrationCode: agreement.RegistrationCode,
	})
	return agreement, nil
}

// Get returns an agreement by ID.
func (s *Service) Get(ctx context.Context, agreementID domain.AgreementID) (*Agreement, error) {
	agreement, err := s.store.FindAgreement(ctx, agreementID)
	if err != nil {
		return nil, wrapAgreementErr(err)
	}
	return agreement, nil
}

// RegisterUnit records a unit so proposals can target it. Catalog management
// proper lives outside the engine; this is the minimal write surface tests and
// seeding need.
func (s *Service) RegisterUnit(ctx context.Context, unit *Unit) error {
	if unit.ID.IsNil() {
		unit.ID = domain.NewUnitID()
	}
	if unit.Status == "" {
		unit.Status = UnitVacant
	}
	if !unit.MonthlyRent.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "unit monthly rent must be positive")
	}
	now := requestcontext.Now(ctx)
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = now
	if err := s.store.SaveUnit(ctx, unit); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save unit")
	}
	return nil
}

// GetUnit returns a unit by ID.
func (s *Service) GetUnit(ctx context.Context, unitID domain.UnitID) (*Unit, error) {
	unit, err := s.store.FindUnit(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unit not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}
	return unit, nil
}

// emitAudit runs after the transaction commits. The state change is already
// durable at that point, so a sink failure is logged for reconciliation
// instead of failing an operation the caller could not safely retry.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	s.logger.InfoContext(ctx, event.Action,
		"agreement_id", event.AgreementID,
		"registration_code", event.RegistrationCode,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	if s.auditP == nil {
		return
	}
	if err := s.auditP.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit event emission failed",
			"action", event.Action,
			"agreement_id", event.AgreementID,
			"error", err,
		)
	}
}

func wrapAgreementErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "agreement not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "conflicting update")
	default:
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "tenancy store failure")
	}
}
