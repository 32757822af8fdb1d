package novackauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login_failure"})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
		default:
			if received != 5 {
				t.Fatalf("received %d events, want 5", received)
			}
			return
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// A blocking sink lets the buffer fill.
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login_failure"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer")
	}
	close(block)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	count   int
}

func (s *blockingSink) Emit(_ context.Context, _ AuditEvent) {
	s.once.Do(func() { <-s.release })
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled config must produce a nil dispatcher")
	}
	// Nil receivers are safe.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		EventType: "account_locked",
		AccountID: "u1",
		Error:     "too many attempts",
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.EventType != "account_locked" || decoded.AccountID != "u1" {
		t.Fatalf("round trip lost fields: %+v", decoded)
	}
}

func TestEngineEmitsAuditEvents(t *testing.T) {
	sink := NewChannelSink(64)
	store := newMemStore()

	cfg := defaultConfig()
	cfg.Password = testPasswordConfig()

	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithSMSGateway(&fakeSMS{}).
		WithTokenIssuer(newStaticIssuer()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	hash, err := engine.HashPassword("pass-phrase-1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	store.put(&Account{
		ID:    "u1",
		Email: "user@example.com",
		Credentials: Credentials{
			PasswordHash:  hash,
			EmailVerified: true,
		},
	})

	ctx := context.Background()
	if _, err := engine.Login(ctx, "user@example.com", "wrong", RequestContext{IP: "203.0.113.9"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := engine.Login(ctx, "user@example.com", "pass-phrase-1", RequestContext{IP: "203.0.113.9"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	engine.Close()

	var events []AuditEvent
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
			continue
		default:
		}
		break
	}

	if len(events) != 2 {
		t.Fatalf("received %d events, want 2", len(events))
	}
	if events[0].EventType != auditEventLoginFailure || events[0].Success {
		t.Fatalf("first event: %+v", events[0])
	}
	if events[0].Error != ErrInvalidCredentials.Error() {
		t.Fatalf("failure event missing error text: %+v", events[0])
	}
	if events[1].EventType != auditEventLoginSuccess || !events[1].Success {
		t.Fatalf("second event: %+v", events[1])
	}
	for _, ev := range events {
		if ev.IP != "203.0.113.9" {
			t.Fatalf("event missing caller IP: %+v", ev)
		}
		if ev.AccountID != "u1" {
			t.Fatalf("event missing account: %+v", ev)
		}
	}
}

func TestMetricsCounters(t *testing.T) {
	env := newTestEngine(t)
	env.seedAccount(t, "u1", "user@example.com", "", "pass-phrase-1")

	ctx := context.Background()
	env.engine.Login(ctx, "user@example.com", "wrong", RequestContext{})
	env.engine.Login(ctx, "user@example.com", "wrong", RequestContext{})
	env.engine.Login(ctx, "user@example.com", "pass-phrase-1", RequestContext{})

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("failure counter = %d, want 2", snap.Counters[MetricLoginFailure])
	}
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("success counter = %d, want 1", snap.Counters[MetricLoginSuccess])
	}
	if _, present := snap.Counters[MetricAccountLocked]; present {
		t.Fatal("untouched counter must be omitted from the snapshot")
	}
}

func TestMetricsDisabledSnapshotEmpty(t *testing.T) {
	m := newMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled registry must not count")
	}
}
