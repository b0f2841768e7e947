package httptransport

import (
	"encoding/json"
	"net/http"

	"rentledger/internal/templateconfig"
	dErrors "rentledger/pkg/domain-errors"
)

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.Resolve(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

// handlePutConfig replaces the statutory template configuration. Regulator
// surface; existing agreements keep the snapshot they were proposed under.
func (h *Handler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var req putConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	if err := validateRequest(&req); err != nil {
		WriteError(w, err)
		return
	}

	cfg, err := h.configs.Put(r.Context(), &templateconfig.Config{
		MaxAdvanceMonths:         req.MaxAdvanceMonths,
		MinLeaseDuration:         req.MinLeaseDuration,
		MaxLeaseDuration:         req.MaxLeaseDuration,
		TaxRate:                  req.TaxRate,
		RegistrationDeadlineDays: req.RegistrationDeadlineDays,
		StandardTerms:            req.StandardTerms,
		CustomFields:             req.CustomFields,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}
