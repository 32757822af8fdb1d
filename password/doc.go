// Package password implements password hashing and verification with
// Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification is constant time over the derived key. If a stored hash was
// produced with weaker parameters, [Argon2.NeedsUpgrade] reports true so the
// caller can re-hash on the next successful login.
//
// This package owns hashing and verification only; lockout and attempt
// accounting belong to the engine. It never stores plaintext and imports no
// other novack-auth package.
package password
