package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rentledger/internal/tenancy"
	"rentledger/pkg/domain"
	dErrors "rentledger/pkg/domain-errors"
	"rentledger/pkg/requestcontext"
)

// handlePropose creates a tenancy proposal. The authenticated actor is the
// landlord; the proposal enters pending until the named tenant accepts.
func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := validateRequest(&req); err != nil {
		WriteError(w, err)
		return
	}

	tenantID, err := domain.ParsePartyID(req.TenantID)
	if err != nil {
		WriteError(w, err)
		return
	}
	unitID, err := domain.ParseUnitID(req.UnitID)
	if err != nil {
		WriteError(w, err)
		return
	}
	startDate, err := req.parseStartDate()
	if err != nil {
		WriteError(w, dErrors.New(dErrors.CodeValidation, "start_date must be YYYY-MM-DD"))
		return
	}

	agreement, err := h.tenancies.Propose(ctx, tenancy.ProposeRequest{
		LandlordID:          requestcontext.Actor(ctx),
		TenantID:            tenantID,
		UnitID:              unitID,
		AgreedRent:          req.AgreedRent,
		AdvanceMonths:       req.AdvanceMonths,
		LeaseDurationMonths: req.LeaseDurationMonths,
		StartDate:           startDate,
		CustomFieldValues:   req.CustomFieldValues,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, agreement)
}

func (h *Handler) handleGetTenancy(w http.ResponseWriter, r *http.Request) {
	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	agreement, err := h.tenancies.Get(r.Context(), agreementID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, agreement)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenancies.Accept)
}

func (h *Handler) handleDecline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenancies.Decline)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenancies.Terminate)
}

type transitionFunc func(ctx context.Context, agreementID domain.AgreementID, actor domain.PartyID) (*tenancy.Agreement, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	ctx := r.Context()
	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	agreement, err := fn(ctx, agreementID, requestcontext.Actor(ctx))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, agreement)
}

func (h *Handler) handleRegisterUnit(w http.ResponseWriter, r *http.Request) {
	var req registerUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := validateRequest(&req); err != nil {
		WriteError(w, err)
		return
	}
	propertyID, err := domain.ParsePropertyID(req.PropertyID)
	if err != nil {
		WriteError(w, err)
		return
	}

	unit := &tenancy.Unit{
		PropertyID:  propertyID,
		MonthlyRent: req.MonthlyRent,
	}
	if err := h.tenancies.RegisterUnit(r.Context(), unit); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, unit)
}

func (h *Handler) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := domain.ParseUnitID(chi.URLParam(r, "unitID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	unit, err := h.tenancies.GetUnit(r.Context(), unitID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, unit)
}
