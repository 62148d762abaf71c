package policy

import (
	"testing"

	"remitdesk.org/internal/auth"
	"remitdesk.org/internal/store"
)

func TestAllow(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		resource string
		action   string
		want     bool
	}{
		{"sender creates transactions", store.RoleSendingPartner, ResourceTransactions, ActionCreate, true},
		{"receiver reads transactions", store.RoleReceivingPartner, ResourceTransactions, ActionRead, true},
		{"regional admin reads audit", store.RoleRegionalAdmin, ResourceAudit, ActionRead, true},
		{"global admin reads audit", store.RoleGlobalAdmin, ResourceAudit, ActionRead, true},
		{"sender denied audit", store.RoleSendingPartner, ResourceAudit, ActionRead, false},
		{"receiver denied audit", store.RoleReceivingPartner, ResourceAudit, ActionRead, false},
		{"receiver reads users", store.RoleReceivingPartner, ResourceUsers, ActionRead, true},
		{"unknown role denied", "superuser", ResourceTransactions, ActionRead, false},
		{"unknown resource denied", store.RoleGlobalAdmin, "settlements", ActionRead, false},
		{"unknown action denied", store.RoleGlobalAdmin, ResourceTransactions, "delete", false},
		{"empty everything denied", "", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allow(tc.role, tc.resource, tc.action); got != tc.want {
				t.Fatalf("Allow(%q, %q, %q) = %v, want %v", tc.role, tc.resource, tc.action, got, tc.want)
			}
		})
	}
}

func TestScopeFor(t *testing.T) {
	cases := []struct {
		name   string
		claims *auth.Claims
		want   store.Scope
	}{
		{"nil claims", nil, store.Scope{}},
		{"global admin unrestricted", &auth.Claims{Role: store.RoleGlobalAdmin, Region: "asia"}, store.Scope{Unrestricted: true}},
		{"global region unrestricted", &auth.Claims{Role: store.RoleSendingPartner, Region: store.RegionGlobal}, store.Scope{Unrestricted: true}},
		{"regional admin scoped", &auth.Claims{Role: store.RoleRegionalAdmin, Region: "europe"}, store.Scope{Region: "europe"}},
		{"sender scoped", &auth.Claims{Role: store.RoleSendingPartner, Region: "asia"}, store.Scope{Region: "asia"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScopeFor(tc.claims); got != tc.want {
				t.Fatalf("ScopeFor = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestScopeMatchesAndKey(t *testing.T) {
	unrestricted := store.Scope{Unrestricted: true}
	if !unrestricted.Matches("anywhere") {
		t.Fatal("unrestricted scope must match every region")
	}
	if unrestricted.Key() != store.RegionGlobal {
		t.Fatalf("unexpected key: %s", unrestricted.Key())
	}

	asia := store.Scope{Region: "asia"}
	if !asia.Matches("asia") || asia.Matches("europe") {
		t.Fatal("regional scope must match only its own region")
	}
	if asia.Key() != "region:asia" {
		t.Fatalf("unexpected key: %s", asia.Key())
	}
}
