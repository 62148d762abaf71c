// Package pg implements the store interfaces on PostgreSQL through
// database/sql with the pgx driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"remitdesk.org/internal/ids"
	"remitdesk.org/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle (used by tests with sqlmock).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() store.UserStore               { return &userStore{db: s.db} }
func (s *Store) Transactions() store.TransactionStore { return &transactionStore{db: s.db} }
func (s *Store) Audit() store.AuditStore              { return &auditStore{db: s.db} }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *store.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, username, password_hash, role, region)
		 values($1,$2,$3,$4,$5)
		 returning created_at, updated_at`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.Region,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateUsername
		}
		return err
	}
	return nil
}

const userColumns = `id, username, password_hash, role, region, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var u store.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Region, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*store.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username=$1`, username))
}

func (s *userStore) List(ctx context.Context, scope store.Scope) ([]*store.User, error) {
	query := `select ` + userColumns + ` from users`
	args := []any{}
	if !scope.Unrestricted {
		query += ` where region=$1`
		args = append(args, scope.Region)
	}
	query += ` order by created_at asc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Stats(ctx context.Context, scope store.Scope) (*store.UserStats, error) {
	where := ``
	args := []any{}
	if !scope.Unrestricted {
		where = ` where region=$1`
		args = append(args, scope.Region)
	}

	stats := &store.UserStats{}

	rows, err := s.db.QueryContext(ctx,
		`select role, count(*) from users`+where+` group by role order by role`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rc store.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, err
		}
		stats.RoleDistribution = append(stats.RoleDistribution, rc)
		stats.TotalUsers += rc.Count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	regionRows, err := s.db.QueryContext(ctx,
		`select region, count(*) from users`+where+` group by region order by region`, args...)
	if err != nil {
		return nil, err
	}
	defer regionRows.Close()
	for regionRows.Next() {
		var rc store.RegionCount
		if err := regionRows.Scan(&rc.Region, &rc.Count); err != nil {
			return nil, err
		}
		stats.RegionDistribution = append(stats.RegionDistribution, rc)
	}
	return stats, regionRows.Err()
}

// Transaction store --------------------------------------------------------

type transactionStore struct{ db *sql.DB }

func (s *transactionStore) Create(ctx context.Context, tx *store.Transaction) error {
	if tx.ID == "" {
		tx.ID = ids.New()
	}
	if tx.Status == "" {
		tx.Status = store.StatusPending
	}
	row := s.db.QueryRowContext(ctx,
		`insert into transactions(id, amount, currency_from, currency_to, conversion_rate, sender_id, receiver_id, region, status)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 returning created_at`,
		tx.ID, tx.Amount, tx.CurrencyFrom, tx.CurrencyTo, tx.ConversionRate,
		tx.SenderID, tx.ReceiverID, tx.Region, tx.Status,
	)
	return row.Scan(&tx.CreatedAt)
}

func (s *transactionStore) List(ctx context.Context, scope store.Scope) ([]*store.Transaction, error) {
	query := `select id, amount, currency_from, currency_to, conversion_rate, sender_id, receiver_id, region, status, created_at
	          from transactions`
	args := []any{}
	if !scope.Unrestricted {
		query += ` where region=$1`
		args = append(args, scope.Region)
	}
	query += ` order by created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*store.Transaction
	for rows.Next() {
		var tx store.Transaction
		if err := rows.Scan(&tx.ID, &tx.Amount, &tx.CurrencyFrom, &tx.CurrencyTo, &tx.ConversionRate,
			&tx.SenderID, &tx.ReceiverID, &tx.Region, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

// Audit store --------------------------------------------------------------

type auditStore struct{ db *sql.DB }

func (s *auditStore) Append(ctx context.Context, rec *store.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into audit_log(id, action, principal_id, entity_id, details)
		 values($1,$2,$3,$4,$5)
		 returning created_at`,
		rec.ID, rec.Action, rec.PrincipalID, rec.EntityID, rec.Details,
	)
	return row.Scan(&rec.CreatedAt)
}

func (s *auditStore) List(ctx context.Context, scope store.Scope) ([]*store.AuditRecord, error) {
	// Region scoping follows the acting principal's region via an explicit
	// join; audit rows themselves carry no region.
	query := `select a.id, a.action, a.principal_id, a.entity_id, a.details, a.created_at
	          from audit_log a`
	args := []any{}
	if !scope.Unrestricted {
		query += ` join users u on u.id = a.principal_id where u.region=$1`
		args = append(args, scope.Region)
	}
	query += ` order by a.created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*store.AuditRecord
	for rows.Next() {
		var rec store.AuditRecord
		var entityID, details sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.PrincipalID, &entityID, &details, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.EntityID = entityID.String
		rec.Details = details.String
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
