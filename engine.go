package novackauth

import (
	"context"
	"time"

	"github.com/Novack-secure/novack-auth/password"
)

// Engine coordinates password verification, lockout enforcement, and factor
// dispatch across the credential store, SMS gateway, and token issuer.
//
// Engine instances are configured through [Builder.Build] and are immutable
// afterwards; all methods are safe for concurrent use when the collaborators
// are.
type Engine struct {
	config   Config
	store    CredentialStore
	sms      SMSGateway
	issuer   TokenIssuer
	password *password.Argon2
	audit    *auditDispatcher
	metrics  *Metrics

	// now is replaceable in tests; everything time-based flows through it.
	now func() time.Time
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// HashPassword derives a storable hash with the engine's configured Argon2id
// parameters. Registration lives outside this core, so the host application
// uses this to create credentials that Login can verify.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if e == nil || e.password == nil {
		return "", ErrEngineNotReady
	}
	return e.password.Hash(plaintext)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, accountID string, opErr error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		AccountID: accountID,
		Success:   success,
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if rc, ok := requestContextFrom(ctx); ok {
		event.IP = rc.IP
	}

	e.audit.Emit(ctx, event)
}

type requestContextKey struct{}

// WithRequestContext attaches transport metadata to ctx so audit events can
// record the caller's IP.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

func requestContextFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}
