package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentledger/internal/payment"
	"rentledger/internal/platform/middleware"
	"rentledger/internal/templateconfig"
	"rentledger/internal/tenancy"
)

// Handler is the thin HTTP layer. It delegates to domain services without
// embedding business logic so transport concerns remain isolated.
type Handler struct {
	tenancies *tenancy.Service
	payments  *payment.Service
	configs   *templateconfig.Resolver
	logger    *slog.Logger
	validator middleware.TokenValidator
}

func NewHandler(
	tenancies *tenancy.Service,
	payments *payment.Service,
	configs *templateconfig.Resolver,
	validator middleware.TokenValidator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tenancies: tenancies,
		payments:  payments,
		configs:   configs,
		validator: validator,
		logger:    logger,
	}
}

// NewRouter wires all public endpoints.
//
// The tenant-paid webhook sits outside the bearer-token group: it is called
// by the Payment Confirmation Source, whose transport authentication
// (gateway signatures) terminates before this engine.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/regulator/template-config", h.handleGetConfig)
	r.Post("/obligations/{obligationID}/tenant-paid", h.handleTenantPaid)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(h.validator, h.logger))

		r.Put("/regulator/template-config", h.handlePutConfig)

		r.Post("/units", h.handleRegisterUnit)
		r.Get("/units/{unitID}", h.handleGetUnit)

		r.Post("/tenancies", h.handlePropose)
		r.Get("/tenancies/{agreementID}", h.handleGetTenancy)
		r.Post("/tenancies/{agreementID}/accept", h.handleAccept)
		r.Post("/tenancies/{agreementID}/decline", h.handleDecline)
		r.Post("/tenancies/{agreementID}/terminate", h.handleTerminate)
		r.Get("/tenancies/{agreementID}/obligations", h.handleListObligations)
		r.Get("/tenancies/{agreementID}/summary", h.handleSummary)

		r.Post("/obligations/{obligationID}/confirm", h.handleConfirm)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
