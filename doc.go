// Package novackauth is the account-security core of the Novack backend: the
// login state machine, the SMS one-time-password challenge subsystem, TOTP
// enrollment and validation, and the single-use backup-code vault.
//
// The package owns state-transition logic only. Persistence, transport,
// message delivery, and token internals are collaborators supplied by the
// host application:
//
//   - [CredentialStore] persists accounts and their credentials record and
//     supports partial field updates.
//   - [SMSGateway] delivers challenge codes to a phone number.
//   - [TokenIssuer] mints, refreshes, and revokes session token pairs. A
//     Redis-backed JWT implementation is provided in the jwt subpackage.
//
// # Architecture boundaries
//
// novackauth exposes [Engine], [Builder], [Config], and value types. Engine
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build]. The engine never decides authorization once a
// session exists, never renders transport responses, and never retries a
// failed collaborator call: every failure here surfaces to the caller.
//
// # Verification factors
//
// A login attempt moves through at most one challenge: password verification
// first, then, when SMS two-factor is enabled and the phone is verified, an
// SMS code round-trip before tokens are issued. TOTP and backup codes are
// validated through their own entry points. Only one SMS code can be pending
// per account at a time; issuing a code for one purpose overwrites a pending
// code of the other.
package novackauth
