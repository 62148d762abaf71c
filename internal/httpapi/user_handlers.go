package httpapi

import (
	"context"
	"net/http"

	"remitdesk.org/internal/cache"
	"remitdesk.org/internal/policy"
	"remitdesk.org/internal/store"
)

// resourceUserStats is a distinct scope-key resource so list and stats
// payloads never collide in the cache.
const resourceUserStats = "user_stats"

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if !requireAction(w, r, p, policy.ResourceUsers, policy.ActionRead) {
		return
	}

	scope := policy.ScopeFor(p.Claims)
	key := cache.ScopeKey(policy.ResourceUsers, scope.Key())

	var users []*store.User
	err := a.cache.GetOrCompute(r.Context(), key, &users, func(ctx context.Context) error {
		var qErr error
		users, qErr = a.store.Users().List(ctx, scope)
		return qErr
	})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if users == nil {
		users = []*store.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if !requireAction(w, r, p, policy.ResourceUsers, policy.ActionRead) {
		return
	}

	scope := policy.ScopeFor(p.Claims)
	key := cache.ScopeKey(resourceUserStats, scope.Key())

	var stats store.UserStats
	err := a.cache.GetOrCompute(r.Context(), key, &stats, func(ctx context.Context) error {
		computed, qErr := a.store.Users().Stats(ctx, scope)
		if qErr != nil {
			return qErr
		}
		stats = *computed
		return nil
	})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
