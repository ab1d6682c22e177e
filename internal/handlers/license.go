package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cheetahbyte/licensor/internal/handlers/dto"
)

// CreateLicense never reveals why a creation failed; the cause is logged.
func (h *Handlers) CreateLicense(w http.ResponseWriter, r *http.Request) {
	failed := dto.LicenseCreationResponse{Success: false, Message: msgCreateFailure}

	var data dto.LicenseCreationRequest
	if err := decodeJSON(w, r, &data); err != nil {
		h.Logger.Warn("failed to read body", "err", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, r, failed)
		return
	}

	result, err := h.Services.License().NewLicense(r.Context(), data)
	if err != nil {
		h.Logger.Error("failed to create license", "err", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, r, failed)
		return
	}

	writeJSON(w, r, result)
}
