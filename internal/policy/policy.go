// Package policy is the single source of truth for authorization: which
// records a caller may see (region scoping) and which actions a role may
// perform (table-driven gating). It is pure computation and never errors;
// callers translate a denial into an HTTP 403.
package policy

import (
	"remitdesk.org/internal/auth"
	"remitdesk.org/internal/store"
)

// Resources the policy table knows about.
const (
	ResourceTransactions = "transactions"
	ResourceAudit        = "audit"
	ResourceUsers        = "users"
)

// Actions the policy table knows about.
const (
	ActionRead   = "read"
	ActionCreate = "create"
)

type rule struct {
	resource string
	action   string
}

// allowed maps (resource, action) to the set of roles permitted to perform
// it. Unknown (role, resource, action) combinations are denied.
var allowed = map[rule]map[string]bool{
	{ResourceTransactions, ActionRead}: {
		store.RoleGlobalAdmin:      true,
		store.RoleRegionalAdmin:    true,
		store.RoleSendingPartner:   true,
		store.RoleReceivingPartner: true,
	},
	{ResourceTransactions, ActionCreate}: {
		store.RoleGlobalAdmin:      true,
		store.RoleRegionalAdmin:    true,
		store.RoleSendingPartner:   true,
		store.RoleReceivingPartner: true,
	},
	{ResourceAudit, ActionRead}: {
		store.RoleGlobalAdmin:   true,
		store.RoleRegionalAdmin: true,
	},
	{ResourceUsers, ActionRead}: {
		store.RoleGlobalAdmin:      true,
		store.RoleRegionalAdmin:    true,
		store.RoleSendingPartner:   true,
		store.RoleReceivingPartner: true,
	},
}

// Allow reports whether role may perform action on resource.
func Allow(role, resource, action string) bool {
	roles, ok := allowed[rule{resource, action}]
	if !ok {
		return false
	}
	return roles[role]
}

// ScopeFor derives the visibility scope from verified claims. Global admins
// and principals in the global region see everything; everyone else sees
// only records of their own region.
func ScopeFor(claims *auth.Claims) store.Scope {
	if claims == nil {
		return store.Scope{Region: ""}
	}
	if claims.Role == store.RoleGlobalAdmin || claims.Region == store.RegionGlobal {
		return store.Scope{Unrestricted: true}
	}
	return store.Scope{Region: claims.Region}
}
