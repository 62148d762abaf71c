package store

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Roles known to the service. Anything else is denied by the policy table.
const (
	RoleGlobalAdmin      = "global_admin"
	RoleRegionalAdmin    = "regional_admin"
	RoleSendingPartner   = "sending_partner"
	RoleReceivingPartner = "receiving_partner"
)

// RegionGlobal is the sentinel region granting unrestricted visibility.
const RegionGlobal = "global"

// Transaction lifecycle states. Transitions happen outside this service;
// new transactions always start as pending.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrDuplicateUsername = errors.New("store: duplicate username")
)

// User is a back-office principal: a partner or admin account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Region       string    `json:"region"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transaction is a cross-currency remittance record. Amounts and rates are
// decimals; no floats. Region is inherited from the sender at creation and
// never changes.
type Transaction struct {
	ID             string          `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencyFrom   string          `json:"currency_from"`
	CurrencyTo     string          `json:"currency_to"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	SenderID       string          `json:"sender_id"`
	ReceiverID     string          `json:"receiver_id"`
	Region         string          `json:"region"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AuditRecord is one append-only entry describing a state-changing action.
type AuditRecord struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	PrincipalID string    `json:"principal_id"`
	EntityID    string    `json:"entity_id,omitempty"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Scope narrows reads to what the caller may see. An unrestricted scope
// matches every record; otherwise only records whose region equals Region.
type Scope struct {
	Unrestricted bool
	Region       string
}

// Matches reports whether a record region is visible under the scope.
func (s Scope) Matches(region string) bool {
	return s.Unrestricted || s.Region == region
}

// Key is the cache-key fragment for the scope: "global" for unrestricted
// visibility, "region:<R>" otherwise.
func (s Scope) Key() string {
	if s.Unrestricted {
		return "global"
	}
	return "region:" + s.Region
}

// RoleCount is one slice of the role distribution.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// RegionCount is one slice of the region distribution.
type RegionCount struct {
	Region string `json:"region"`
	Count  int    `json:"count"`
}

// UserStats summarizes the visible user population for the dashboard.
type UserStats struct {
	RoleDistribution   []RoleCount   `json:"role_distribution"`
	RegionDistribution []RegionCount `json:"region_distribution"`
	TotalUsers         int           `json:"total_users"`
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleGlobalAdmin, RoleRegionalAdmin, RoleSendingPartner, RoleReceivingPartner:
		return true
	}
	return false
}
