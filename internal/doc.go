// Package internal holds shared helpers that must not leak into the public
// novackauth API, chiefly the cryptographic generation of challenge and
// recovery codes.
package internal
