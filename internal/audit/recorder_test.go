package audit

import (
	"context"
	"errors"
	"testing"

	"remitdesk.org/internal/store"
)

type failingAuditStore struct{}

func (failingAuditStore) Append(ctx context.Context, rec *store.AuditRecord) error {
	return errors.New("disk full")
}

func (failingAuditStore) List(ctx context.Context, scope store.Scope) ([]*store.AuditRecord, error) {
	return nil, nil
}

func TestRecordAppendsToStore(t *testing.T) {
	mem := store.NewInMemory()
	rec := NewRecorder(mem.Audit())

	ctx := WithRequestID(context.Background(), "req-123")
	if err := rec.Record(ctx, "transaction.create", "user-1", "tx-1", `{"amount":"100"}`); err != nil {
		t.Fatalf("Record: %v", err)
	}

	records, err := mem.Audit().List(context.Background(), store.Scope{Unrestricted: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Action != "transaction.create" || got.PrincipalID != "user-1" || got.EntityID != "tx-1" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", got)
	}
}

func TestRecordRequiresAction(t *testing.T) {
	rec := NewRecorder(store.NewInMemory().Audit())
	if err := rec.Record(context.Background(), "  ", "user-1", "", ""); err == nil {
		t.Fatal("expected error for empty action")
	}
}

func TestRecordReturnsAppendErrorWithoutPanic(t *testing.T) {
	rec := NewRecorder(failingAuditStore{})
	err := rec.Record(context.Background(), "user.register", "user-1", "user-1", "")
	if err == nil {
		t.Fatal("expected append error to be returned")
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	if err := rec.Record(context.Background(), "user.register", "user-1", "", ""); err != nil {
		t.Fatalf("nil recorder must not fail: %v", err)
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-9")
	if got := requestIDFromContext(ctx); got != "req-9" {
		t.Fatalf("unexpected request id: %s", got)
	}
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %s", got)
	}
	if got := requestIDFromContext(WithRequestID(context.Background(), "  ")); got != "" {
		t.Fatalf("expected blank request id ignored, got %s", got)
	}
}
