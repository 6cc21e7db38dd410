// Package httpapi's router wires the public query-parameter front-end and
// the two administrative endpoints into one http.Handler, grounded on the
// teacher's internal/gateway/router.New (RequestID outermost, auth and rate
// limiting scoped to the admin routes only — the public query surface
// carries no credentials to check).
package httpapi

import (
	"net/http"
	"time"

	"github.com/fmidev/geonames-engine/internal/adminauth"
	pkgmw "github.com/fmidev/geonames-engine/pkg/middleware"
)

// Router builds the full geonames-engine HTTP handler.
//
// Route table:
//
//	GET  /geonames                    → query-parameter front-end
//	POST /admin/reload                → trigger a reload
//	GET  /admin/geonames?type=...     → meta | cache report
//	GET  /health/live, /health/ready  → process health (wired by the caller)
//
// Middleware chain (outermost first): RequestID → Timeout → [admin-only:
// AdminAuth → AdminRateLimit].
func Router(query *Handler, admin *AdminHandler, validator *adminauth.Validator, limiter *adminauth.RateLimiter, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /geonames", query.Query)

	var adminChain http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			admin.Reload(w, r)
			return
		}
		admin.Geonames(w, r)
	})
	adminChain = AdminRateLimit(limiter)(adminChain)
	adminChain = AdminAuth(validator)(adminChain)
	mux.Handle("POST /admin/reload", adminChain)
	mux.Handle("GET /admin/geonames", adminChain)

	var chain http.Handler = mux
	if requestTimeout > 0 {
		chain = pkgmw.Timeout(requestTimeout)(chain)
	}
	chain = RequestID(chain)
	return chain
}
