// Package proof defines the cryptographic proof an out-of-band secure
// device produces for a challenge, and the verifier that checks it.
//
// A proof binds to exactly one challenge:
//
//	digest  = SHA-256(secret || rotatingCode || nonce)
//	authTag = HMAC-SHA-256(key=secret, msg=digest)
//
// The digest proves knowledge of the secret combined with the challenge's
// own rotating code and nonce; the keyed tag is what actually prevents
// forgery by an observer of past digests. Both comparisons are constant
// time. Verification consumes the challenge first, so every challenge
// permits exactly one attempt, successful or not.
package proof
