package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fmidev/geonames-engine/internal/cacheinvalidate"
	"github.com/fmidev/geonames-engine/internal/engine"
	apperrors "github.com/fmidev/geonames-engine/pkg/errors"
)

// adminEngine is the engine surface the admin handlers need: reload plus
// the two read-only reports behind geonames?type={meta|cache}.
type adminEngine interface {
	reloader
	Meta() engine.Meta
	CacheStats() (hits, misses int64)
}

// AdminHandler implements the two administrative endpoints: reload and
// geonames?type={meta|cache}. Grounded on the teacher's gateway handler
// shape, scoped down to this engine's two admin operations, and protected
// by internal/adminauth at the router/middleware layer rather than here.
type AdminHandler struct {
	engine    adminEngine
	publisher *cacheinvalidate.Publisher
}

// NewAdminHandler builds an AdminHandler. publisher may be nil, in which
// case a successful reload does not broadcast a cross-instance cache
// invalidation notice.
func NewAdminHandler(eng adminEngine, publisher *cacheinvalidate.Publisher) *AdminHandler {
	return &AdminHandler{engine: eng, publisher: publisher}
}

// Reload handles the administrative reload endpoint: POST /admin/reload.
// Per §7, a reload already in progress is reported, not treated as a
// server error, and a failed reload leaves the previous generation serving.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reload(r.Context()); err != nil {
		writeJSON(w, apperrors.HTTPStatusCode(err), map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	if h.publisher != nil {
		m := h.engine.Meta()
		h.publisher.Publish(r.Context(), fingerprintString(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "reload completed",
	})
}

// Geonames handles GET /admin/geonames?type={meta|cache}.
func (h *AdminHandler) Geonames(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("type") {
	case "meta":
		writeJSON(w, http.StatusOK, h.engine.Meta())
	case "cache":
		hits, misses := h.engine.CacheStats()
		writeJSON(w, http.StatusOK, map[string]int64{"hits": hits, "misses": misses})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": `type must be "meta" or "cache"`})
	}
}

func fingerprintString(m engine.Meta) string {
	if !m.HasFingerprint {
		return ""
	}
	return strconv.FormatInt(m.Fingerprint, 10)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().With("component", "httpapi").Error("failed to write response", "error", err)
	}
}
