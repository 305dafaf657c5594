// Package password hashes and verifies user passwords with argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash use unpadded standard base64, the format produced by the
// reference argon2 CLI and most bindings, so hashes migrated from other
// stacks verify unchanged.
package password
