package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"schneider.vip/problem"

	"github.com/cheetahbyte/licensor/internal/services"
)

const (
	msgServerError   = "Server error"
	msgInvalidBody   = "Invalid request body"
	msgCreateFailure = "Error creating license"

	maxBodyBytes = 100 << 10
)

type Handlers struct {
	Services services.ServiceStack
	Logger   *slog.Logger
}

func New(s services.ServiceStack, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{Services: s, Logger: logger}
}

// writeJSON always answers 200; outcomes travel in the success flag.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), v)
}

// WriteProblem answers with an RFC 7807 body for transport level failures.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, title string) {
	_, _ = problem.Of(status).
		Append(problem.Title(title)).
		Append(problem.Instance(r.URL.Path)).
		WriteTo(w)
}

func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, r, http.StatusNotFound, "Not found")
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteProblem(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Services.Store().Ping(r.Context()); err != nil {
		h.Logger.Error("store health check failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
		WriteProblem(w, r, http.StatusServiceUnavailable, "License store unavailable")
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
