package auth

import (
	"net/http"
	"strings"

	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/userctx"
)

// Middleware resolves the planner owner from a dev bearer token.
//
// With AUTH_REQUIRED every non-public request needs a valid token. Without
// it a missing token falls through to the default owner, but a token that is
// present still has to verify.
type Middleware struct {
	config  *config.Config
	service *Service
}

func NewMiddleware(cfg *config.Config, service *Service) *Middleware {
	return &Middleware{config: cfg, service: service}
}

func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, present := bearerToken(r.Header.Get("Authorization"))
		if !present && !m.config.AuthRequired {
			next.ServeHTTP(w, r)
			return
		}

		ownerID, err := m.service.VerifyJWT(token)
		if err != nil {
			msg := "Invalid or expired token"
			if !present {
				msg = "Unauthorized"
			}
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), ownerID)))
	})
}

// bearerToken extracts the token from an Authorization header. present is
// false only when the header is blank.
func bearerToken(header string) (token string, present bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(rest), true
}

func isPublicPath(path string) bool {
	return path == "/healthz" || strings.HasPrefix(path, "/v1/auth/")
}
