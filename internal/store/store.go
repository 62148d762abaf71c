package store

import "context"

// Store aggregates the persistence operations the service needs.
type Store interface {
	Users() UserStore
	Transactions() TransactionStore
	Audit() AuditStore
}

// UserStore manages principal records.
type UserStore interface {
	// Create inserts a new user. The username uniqueness constraint is
	// enforced by the store itself, not by a check-then-insert.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, scope Scope) ([]*User, error)
	Stats(ctx context.Context, scope Scope) (*UserStats, error)
}

// TransactionStore manages remittance records. Transactions are never
// deleted; there is deliberately no delete operation.
type TransactionStore interface {
	Create(ctx context.Context, tx *Transaction) error
	List(ctx context.Context, scope Scope) ([]*Transaction, error)
}

// AuditStore appends and reads immutable audit entries. Scoped reads follow
// the region of the acting principal, resolved through an explicit join.
type AuditStore interface {
	Append(ctx context.Context, rec *AuditRecord) error
	List(ctx context.Context, scope Scope) ([]*AuditRecord, error)
}
