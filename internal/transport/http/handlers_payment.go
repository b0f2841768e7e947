package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rentledger/pkg/domain"
	"rentledger/pkg/requestcontext"
)

// handleTenantPaid is the Payment Confirmation Source webhook: the tax
// payment for one obligation cleared. Idempotent by design, so gateway
// redelivery is harmless.
func (h *Handler) handleTenantPaid(w http.ResponseWriter, r *http.Request) {
	obligationID, err := domain.ParseObligationID(chi.URLParam(r, "obligationID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	obligation, err := h.payments.MarkTenantPaid(r.Context(), obligationID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, obligation)
}

// handleConfirm records the landlord's authoritative confirmation for one
// obligation. The authenticated actor must be the landlord on the parent
// agreement.
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	obligationID, err := domain.ParseObligationID(chi.URLParam(r, "obligationID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	obligation, err := h.payments.ConfirmByLandlord(ctx, obligationID, requestcontext.Actor(ctx))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, obligation)
}

func (h *Handler) handleListObligations(w http.ResponseWriter, r *http.Request) {
	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	obligations, err := h.payments.Obligations(r.Context(), agreementID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, obligations)
}

// handleSummary serves the derived validity and arrears values, recomputed
// from persisted state on every call.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	summary, err := h.payments.Summary(r.Context(), agreementID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}
