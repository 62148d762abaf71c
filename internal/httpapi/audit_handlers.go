package httpapi

import (
	"context"
	"net/http"

	"remitdesk.org/internal/cache"
	"remitdesk.org/internal/policy"
	"remitdesk.org/internal/store"
)

func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	// Audit reads are admin-only; partners get a 403 here.
	if !requireAction(w, r, p, policy.ResourceAudit, policy.ActionRead) {
		return
	}

	scope := policy.ScopeFor(p.Claims)
	key := cache.ScopeKey(policy.ResourceAudit, scope.Key())

	var recs []*store.AuditRecord
	err := a.cache.GetOrCompute(r.Context(), key, &recs, func(ctx context.Context) error {
		var qErr error
		recs, qErr = a.store.Audit().List(ctx, scope)
		return qErr
	})
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
