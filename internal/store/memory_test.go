package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func seedUser(t *testing.T, s *InMemory, username, role, region string) *User {
	t.Helper()
	u := &User{Username: username, PasswordHash: "x", Role: role, Region: region}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestUsersCreateRejectsDuplicateUsername(t *testing.T) {
	s := NewInMemory()
	seedUser(t, s, "sender_1", RoleSendingPartner, "asia")

	err := s.Users().Create(context.Background(), &User{Username: "sender_1", Role: RoleSendingPartner, Region: "europe"})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestUsersFind(t *testing.T) {
	s := NewInMemory()
	u := seedUser(t, s, "sender_1", RoleSendingPartner, "asia")

	got, err := s.Users().Find(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Username != "sender_1" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	if _, err := s.Users().Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Users().FindByUsername(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersListHonorsScope(t *testing.T) {
	s := NewInMemory()
	seedUser(t, s, "sender_1", RoleSendingPartner, "asia")
	seedUser(t, s, "receiver_1", RoleReceivingPartner, "asia")
	seedUser(t, s, "sender_2", RoleSendingPartner, "europe")

	asia, err := s.Users().List(context.Background(), Scope{Region: "asia"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(asia) != 2 {
		t.Fatalf("expected 2 asia users, got %d", len(asia))
	}
	for _, u := range asia {
		if u.Region != "asia" {
			t.Fatalf("leaked user from region %s", u.Region)
		}
	}

	all, err := s.Users().List(context.Background(), Scope{Unrestricted: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 users, got %d", len(all))
	}
}

func TestUsersStats(t *testing.T) {
	s := NewInMemory()
	seedUser(t, s, "sender_1", RoleSendingPartner, "asia")
	seedUser(t, s, "sender_2", RoleSendingPartner, "europe")
	seedUser(t, s, "admin_1", RoleRegionalAdmin, "asia")

	stats, err := s.Users().Stats(context.Background(), Scope{Unrestricted: true})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalUsers != 3 {
		t.Fatalf("expected 3 total users, got %d", stats.TotalUsers)
	}
	roles := map[string]int{}
	for _, rc := range stats.RoleDistribution {
		roles[rc.Role] = rc.Count
	}
	if roles[RoleSendingPartner] != 2 || roles[RoleRegionalAdmin] != 1 {
		t.Fatalf("unexpected role distribution: %+v", stats.RoleDistribution)
	}

	scoped, err := s.Users().Stats(context.Background(), Scope{Region: "asia"})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if scoped.TotalUsers != 2 {
		t.Fatalf("expected 2 asia users, got %d", scoped.TotalUsers)
	}
	if len(scoped.RegionDistribution) != 1 || scoped.RegionDistribution[0].Region != "asia" {
		t.Fatalf("unexpected region distribution: %+v", scoped.RegionDistribution)
	}
}

func TestTransactionsListScopedNewestFirst(t *testing.T) {
	s := NewInMemory()
	sender := seedUser(t, s, "sender_1", RoleSendingPartner, "asia")
	receiver := seedUser(t, s, "receiver_1", RoleReceivingPartner, "europe")

	mk := func(amount string, region string) *Transaction {
		tx := &Transaction{
			Amount:         decimal.RequireFromString(amount),
			CurrencyFrom:   "USD",
			CurrencyTo:     "USDC",
			ConversionRate: decimal.NewFromInt(1),
			SenderID:       sender.ID,
			ReceiverID:     receiver.ID,
			Region:         region,
			Status:         StatusPending,
		}
		if err := s.Transactions().Create(context.Background(), tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
		return tx
	}
	mk("100", "asia")
	mk("200", "asia")
	mk("300", "europe")

	asia, err := s.Transactions().List(context.Background(), Scope{Region: "asia"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(asia) != 2 {
		t.Fatalf("expected 2 asia transactions, got %d", len(asia))
	}
	if !asia[0].Amount.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("expected newest first, got %s", asia[0].Amount)
	}

	all, err := s.Transactions().List(context.Background(), Scope{Unrestricted: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(all))
	}
}

func TestTransactionsCreateDefaults(t *testing.T) {
	s := NewInMemory()
	tx := &Transaction{
		Amount:         decimal.NewFromInt(50),
		CurrencyFrom:   "USD",
		CurrencyTo:     "EUR",
		ConversionRate: decimal.NewFromFloat(0.9),
		SenderID:       "u1",
		ReceiverID:     "u2",
		Region:         "asia",
	}
	if err := s.Transactions().Create(context.Background(), tx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.ID == "" {
		t.Fatal("expected generated id")
	}
	if tx.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", tx.Status)
	}
	if tx.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestAuditListScopesByPrincipalRegion(t *testing.T) {
	s := NewInMemory()
	asiaSender := seedUser(t, s, "sender_1", RoleSendingPartner, "asia")
	europeAdmin := seedUser(t, s, "europe_admin", RoleRegionalAdmin, "europe")

	record := func(principalID, action string) {
		if err := s.Audit().Append(context.Background(), &AuditRecord{Action: action, PrincipalID: principalID}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	record(asiaSender.ID, "transaction.create")
	record(europeAdmin.ID, "user.register")
	record(asiaSender.ID, "transaction.create")

	asia, err := s.Audit().List(context.Background(), Scope{Region: "asia"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(asia) != 2 {
		t.Fatalf("expected 2 asia records, got %d", len(asia))
	}
	for _, rec := range asia {
		if rec.PrincipalID != asiaSender.ID {
			t.Fatalf("leaked record for principal %s", rec.PrincipalID)
		}
	}

	all, err := s.Audit().List(context.Background(), Scope{Unrestricted: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].Action != "transaction.create" {
		t.Fatalf("expected newest first, got %+v", all[0])
	}
}
