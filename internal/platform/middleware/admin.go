package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"portalpay/pkg/platform/httputil"
	"portalpay/pkg/requestcontext"

	dErrors "portalpay/pkg/domain-errors"
)

// RequireSuperAdmin gates admin routes behind a static bearer token verified
// against a bcrypt hash. An empty hash means no admin access at all; admin
// routes are never open by default.
func RequireSuperAdmin(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if tokenHash == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access is not configured"))
				return
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "invalid admin token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
