package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/jsonhandler/pkg/api"
	"github.com/rhuss/jsonhandler/pkg/transport"
)

// Middleware guards a route with chain. A non-empty scope must be held by
// the authenticated identity, otherwise the caller gets 403.
func Middleware(chain *Chain, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := chain.Authenticate(r.Context(), r)
			id := res.Identity

			switch {
			case res.Decision != Yes || id == nil:
				slog.Warn("authentication failed", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", res.Err)
				transport.WriteAPIError(w, &api.APIError{
					Type:    api.ErrorTypeUnauthorized,
					Message: ErrUnauthenticated.Error(),
				})
			case id.Subject == "":
				slog.Error("authenticator accepted an identity without subject", "path", r.URL.Path)
				transport.WriteAPIError(w, api.NewServerError("internal authentication error"))
			case scope != "" && !id.HasScope(scope):
				slog.Warn("caller lacks scope", "subject", id.Subject, "scope", scope, "path", r.URL.Path)
				transport.WriteErrorResponse(w, &api.APIError{
					Type:    api.ErrorTypeUnauthorized,
					Code:    "missing_scope",
					Message: ErrForbidden.Error() + ": scope " + scope + " required",
				}, http.StatusForbidden)
			default:
				next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
			}
		})
	}
}
