// Package jwt provides the stock [novackauth.TokenIssuer]: signed JWT access
// tokens paired with opaque, Redis-backed refresh tokens.
//
// Access tokens are stateless and carry only the account and session IDs.
// Refresh tokens are random secrets whose SHA-256 digest is stored under the
// session key in Redis; every refresh rotates the secret, so a replayed old
// token no longer matches and the session is revoked on the spot.
//
// Hosts with their own token infrastructure implement
// [novackauth.TokenIssuer] directly and skip this package.
package jwt
