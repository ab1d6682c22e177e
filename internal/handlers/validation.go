package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cheetahbyte/licensor/internal/handlers/dto"
	"github.com/cheetahbyte/licensor/internal/license"
)

func (h *Handlers) ValidateLicense(w http.ResponseWriter, r *http.Request) {
	var data dto.ValidationRequest
	if err := decodeJSON(w, r, &data); err != nil {
		h.Logger.Warn("failed to read body", "err", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, r, dto.ValidationResponse{Message: msgInvalidBody})
		return
	}

	result, err := h.Services.Validation().Validate(r.Context(), data)
	if err != nil {
		h.Logger.Error("validation error", "err", err, "license", license.MaskKey(data.LicenseKey),
			"request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, r, dto.ValidationResponse{Message: msgServerError})
		return
	}

	writeJSON(w, r, result)
}

func (h *Handlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var data dto.TokenVerificationRequest
	if err := decodeJSON(w, r, &data); err != nil {
		writeJSON(w, r, dto.TokenVerificationResponse{Message: msgInvalidBody})
		return
	}

	result, err := h.Services.Validation().VerifyToken(r.Context(), data)
	if err != nil {
		h.Logger.Error("token verification error", "err", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, r, dto.TokenVerificationResponse{Message: msgServerError})
		return
	}

	writeJSON(w, r, result)
}
