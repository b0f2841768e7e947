package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rentledger/internal/audit"
	"rentledger/internal/platform/metrics"
	"rentledger/pkg/domain"
	dErrors "rentledger/pkg/domain-errors"
	"rentledger/pkg/platform/sentinel"
	"rentledger/pkg/requestcontext"
)

// AuditPublisher records confirmation events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives the dual-confirmation state machine and serves the derived
// validity and arrears values.
type Service struct {
	store      Store
	agreements AgreementDirectory
	logger     *slog.Logger
	metrics    *metrics.Metrics
	auditP     AuditPublisher
	tracer     trace.Tracer
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

func NewService(store Store, agreements AgreementDirectory, opts ...Option) *Service {
	s := &Service{
		store:      store,
		agreements: agreements,
		logger:     slog.Default(),
		tracer:     otel.Tracer("rentledger/payment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkTenantPaid records the Payment Confirmation Source's notification that
// the tax payment for one obligation cleared. Idempotent; sets only the
// tenant-side flag. The obligation status is untouched - landlord confirmation
// is the only path to confirmed.
func (s *Service) MarkTenantPaid(ctx context.Context, obligationID domain.ObligationID) (*Obligation, error) {
	ctx, span := s.tracer.Start(ctx, "payment.MarkTenantPaid",
		trace.WithAttributes(attribute.String("obligation_id", obligationID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	firstEvent := false
	obligation, err := s.store.Execute(ctx, obligationID,
		func(o *Obligation) error {
			firstEvent = !o.TenantMarkedPaid
			return nil
		},
		func(o *Obligation) {
			o.ApplyTenantPayment(now)
		},
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	if firstEvent {
		s.metrics.IncrementConfirmation("tenant")
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionTenantMarkedPaid,
			AgreementID:  obligation.AgreementID.String(),
			ObligationID: obligation.ID.String(),
			Detail:       obligation.MonthLabel,
		})
	}
	return obligation, nil
}

// ConfirmByLandlord settles an obligation on the landlord's authority. The
// caller must be the landlord on the parent agreement. Idempotent: replaying a
// confirmation on an already-confirmed obligation is a no-op.
func (s *Service) ConfirmByLandlord(ctx context.Context, obligationID domain.ObligationID, landlordID domain.PartyID) (*Obligation, error) {
	ctx, span := s.tracer.Start(ctx, "payment.ConfirmByLandlord",
		trace.WithAttributes(attribute.String("obligation_id", obligationID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)

	// The landlord on an agreement never changes, so the precondition can be
	// resolved outside the obligation lock.
	target, err := s.store.FindObligation(ctx, obligationID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	landlord, err := s.agreements.LandlordOf(ctx, target.AgreementID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if landlord != landlordID {
		return nil, dErrors.New(dErrors.CodePrecondition, "only the landlord on the agreement may confirm")
	}

	firstEvent := false
	obligation, err := s.store.Execute(ctx, obligationID,
		func(o *Obligation) error {
			firstEvent = !o.LandlordConfirmed
			return nil
		},
		func(o *Obligation) {
			o.ApplyLandlordConfirmation(now)
		},
	)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	if firstEvent {
		s.metrics.IncrementConfirmation("landlord")
		s.emitAudit(ctx, audit.Event{
			Action:       audit.ActionLandlordConfirmed,
			ActorID:      landlordID.String(),
			AgreementID:  obligation.AgreementID.String(),
			ObligationID: obligation.ID.String(),
			Detail:       obligation.MonthLabel,
		})
	}
	return obligation, nil
}

// Obligations lists an agreement's schedule ordered by due date.
func (s *Service) Obligations(ctx context.Context, agreementID domain.AgreementID) ([]*Obligation, error) {
	if _, err := s.agreements.LandlordOf(ctx, agreementID); err != nil {
		return nil, translateStoreErr(err)
	}
	obligations, err := s.store.ListByAgreement(ctx, agreementID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return obligations, nil
}

// Summary recomputes the derived validity and arrears values from persisted
// state, as of the request time.
func (s *Service) Summary(ctx context.Context, agreementID domain.AgreementID) (Summary, error) {
	start := time.Now()
	obligations, err := s.Obligations(ctx, agreementID)
	if err != nil {
		return Summary{}, err
	}
	summary := Summarize(obligations, requestcontext.Now(ctx))
	s.metrics.ObserveSummaryLatency(time.Since(start))
	return summary, nil
}

// emitAudit runs after the confirmation is persisted. The flag flip is already
// durable, so a sink failure is logged for reconciliation rather than turned
// into an error on an operation the caller already completed.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	s.logger.InfoContext(ctx, event.Action,
		"agreement_id", event.AgreementID,
		"obligation_id", event.ObligationID,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	if s.auditP == nil {
		return
	}
	if err := s.auditP.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit event emission failed",
			"action", event.Action,
			"obligation_id", event.ObligationID,
			"error", err,
		)
	}
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "obligation or agreement not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "conflicting update")
	default:
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "payment store failure")
	}
}
