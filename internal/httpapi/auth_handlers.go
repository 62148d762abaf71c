package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"remitdesk.org/internal/auth"
	"remitdesk.org/internal/cache"
	"remitdesk.org/internal/policy"
	"remitdesk.org/internal/store"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Region   string `json:"region"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *store.User `json:"user"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)
	region := strings.TrimSpace(strings.ToLower(req.Region))
	switch {
	case username == "":
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	case req.Password == "":
		writeError(w, r, http.StatusBadRequest, "password is required")
		return
	case !store.ValidRole(req.Role):
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	case region == "":
		writeError(w, r, http.StatusBadRequest, "region is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.internalError(w, r, err)
		return
	}

	user := &store.User{
		Username:     username,
		PasswordHash: hash,
		Role:         req.Role,
		Region:       region,
	}
	if err := a.store.Users().Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, r, http.StatusConflict, "username already exists")
			return
		}
		a.internalError(w, r, err)
		return
	}

	// Write acknowledged; invalidation and audit follow, failures of either
	// never fail the response.
	a.invalidateUserScopes(r, user.Region)
	_ = a.recorder.Record(r.Context(), "user.register", user.ID, user.ID,
		"registered "+user.Role+" in "+user.Region)

	token, expiresAt, err := a.tokens.Issue(user)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.Users().FindByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			unauthorized(w, r, "invalid credentials")
			return
		}
		a.internalError(w, r, err)
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		unauthorized(w, r, "invalid credentials")
		return
	}

	token, expiresAt, err := a.tokens.Issue(user)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.User)
}

// invalidateUserScopes drops cached user lists and stats for the affected
// region plus the global scope, which bypasses the region filter.
func (a *API) invalidateUserScopes(r *http.Request, region string) {
	regional := store.Scope{Region: region}.Key()
	global := store.Scope{Unrestricted: true}.Key()
	a.cache.Invalidate(r.Context(),
		cache.ScopeKey(policy.ResourceUsers, regional),
		cache.ScopeKey(policy.ResourceUsers, global),
		cache.ScopeKey(resourceUserStats, regional),
		cache.ScopeKey(resourceUserStats, global),
		cache.ScopeKey(policy.ResourceAudit, regional),
		cache.ScopeKey(policy.ResourceAudit, global),
	)
}
