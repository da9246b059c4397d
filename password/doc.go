// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes are PHC strings with unpadded base64 salt and key:
//
//	$argon2id$v=19$m=<memory KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// Verify reads the cost parameters from the stored string, so hashes made
// under an older config keep verifying. [Argon2.NeedsUpgrade] reports when the
// stored parameters are weaker than the current ones, letting the engine
// rehash after a successful login. Stored strings that fail to decode yield
// errors wrapping [ErrMalformedHash].
//
// Passwords are never stored or logged here; callers pass plaintext in and get
// a hash back. Account rules live in the engine.
package password
