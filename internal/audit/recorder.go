// Package audit appends an immutable record for every state-changing
// action. Recording happens only after the protected mutation has durably
// succeeded; a recording failure is logged but never rolls back or fails
// the already-committed mutation.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"remitdesk.org/internal/obs"
	"remitdesk.org/internal/store"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit
// log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder persists audit records and mirrors them to the structured log.
type Recorder struct {
	store store.AuditStore
}

// NewRecorder constructs a Recorder over the given audit store.
func NewRecorder(s store.AuditStore) *Recorder {
	return &Recorder{store: s}
}

// Record appends one audit entry. entityID may be empty for actions that do
// not reference a single entity. The returned error exists for callers that
// want to log it; per contract they must not surface it.
func (r *Recorder) Record(ctx context.Context, action, principalID, entityID, details string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return errors.New("audit action is required")
	}

	rec := &store.AuditRecord{
		Action:      action,
		PrincipalID: principalID,
		EntityID:    entityID,
		Details:     details,
	}

	var appendErr error
	if r != nil && r.store != nil {
		appendErr = r.store.Append(ctx, rec)
	}

	entry := map[string]any{
		"ts":           time.Now().UTC().Format(time.RFC3339Nano),
		"type":         "audit",
		"event":        action,
		"principal_id": principalID,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if entityID != "" {
		entry["entity_id"] = entityID
	}
	if details != "" {
		entry["details"] = details
	}
	if appendErr != nil {
		entry["level"] = "error"
		entry["error"] = appendErr.Error()
	}
	obs.LogEntry(entry)

	return appendErr
}
