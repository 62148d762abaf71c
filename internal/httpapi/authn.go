package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"remitdesk.org/internal/auth"
	"remitdesk.org/internal/policy"
	"remitdesk.org/internal/store"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/metrics",
	"/",
}

// withAuth verifies the bearer token, resolves the backing user and stores
// the principal in the request context. Authentication failures are never
// downgraded: any structural, signature or expiry problem is a 401.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				unauthorized(w, r, "token expired")
			default:
				unauthorized(w, r, "invalid token")
			}
			return
		}

		user, err := a.store.Users().Find(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				unauthorized(w, r, "invalid token")
				return
			}
			a.internalError(w, r, err)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{User: user, Claims: claims})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePrincipal pulls the authenticated principal or writes a 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}

// requireAction gates the request through the policy table or writes a 403.
func requireAction(w http.ResponseWriter, r *http.Request, p auth.Principal, resource, action string) bool {
	if !policy.Allow(p.Claims.Role, resource, action) {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="remitdesk"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
