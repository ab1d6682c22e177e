package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cheetahbyte/licensor/internal/handlers"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminGate admits requests carrying the key whose argon2id hash it holds.
// A gate without a hash, or a nil gate, refuses everything.
type AdminGate struct {
	hash   string
	logger *slog.Logger
}

func NewAdminGate(hash string, logger *slog.Logger) *AdminGate {
	if logger == nil {
		logger = slog.Default()
	}
	if hash == "" {
		logger.Warn("ADMIN_API_KEY_HASH not set; admin endpoints are disabled")
	}
	return &AdminGate{hash: hash, logger: logger}
}

func (g *AdminGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.allows(r) {
			handlers.WriteProblem(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *AdminGate) allows(r *http.Request) bool {
	if g == nil || g.hash == "" {
		return false
	}
	key := presentedKey(r)
	if key == "" {
		return false
	}
	match, err := argon2id.ComparePasswordAndHash(key, g.hash)
	if err != nil {
		g.logger.Error("admin key comparison failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
		return false
	}
	if !match {
		g.logger.Warn("admin key rejected", "remote", r.RemoteAddr, "request_id", middleware.GetReqID(r.Context()))
	}
	return match
}

func presentedKey(r *http.Request) string {
	if k := r.Header.Get(AdminKeyHeader); k != "" {
		return k
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
