package novackauth

import "sync/atomic"

// MetricID identifies a counter in the in-process metrics registry.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that issued tokens.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected password attempts.
	MetricLoginFailure
	// MetricAccountLocked counts lockouts triggered by failed attempts.
	MetricAccountLocked
	// MetricSMSOTPIssued counts SMS challenge codes dispatched.
	MetricSMSOTPIssued
	// MetricSMSOTPSuccess counts SMS codes verified successfully.
	MetricSMSOTPSuccess
	// MetricSMSOTPFailure counts expired, missing, and mismatched SMS codes.
	MetricSMSOTPFailure
	// MetricPhoneVerified counts phone-ownership confirmations.
	MetricPhoneVerified
	// MetricTOTPSetupRequested counts generated TOTP secrets.
	MetricTOTPSetupRequested
	// MetricTOTPEnabled counts successful TOTP enrollments.
	MetricTOTPEnabled
	// MetricTOTPDisabled counts TOTP factor removals.
	MetricTOTPDisabled
	// MetricTOTPFailure counts rejected TOTP codes.
	MetricTOTPFailure
	// MetricTOTPSuccess counts accepted TOTP codes.
	MetricTOTPSuccess
	// MetricBackupCodeGenerated counts minted recovery codes.
	MetricBackupCodeGenerated
	// MetricBackupCodeUsed counts consumed recovery codes.
	MetricBackupCodeUsed
	// MetricBackupCodeFailed counts recovery-code misses.
	MetricBackupCodeFailed
	// MetricRefreshSuccess counts token refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh tokens.
	MetricRefreshFailure
	// MetricLogout counts revocations.
	MetricLogout

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds per-operation atomic counters. All methods are no-ops on a
// disabled registry, so callers never branch.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies every counter. Counters that never fired are omitted.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: map[MetricID]uint64{}}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if v := atomic.LoadUint64(&m.counters[id].value); v > 0 {
			snap.Counters[id] = v
		}
	}
	return snap
}
