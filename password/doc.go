// Package password implements password hashing and verification for the credential
// verifier.
//
// # Formats
//
// Two formats are understood:
//
//	$2a$<cost>$<salt+hash>                                       bcrypt (default)
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>  argon2id PHC
//
// [Auto] verifies either by prefix and hashes new passwords with the configured primary
// algorithm.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Looking up the stored hash is the
// credential store's job; deciding what a failed match means is the Authenticator's.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other rotauth package.
//   - Log plaintext passwords or hashes.
package password
