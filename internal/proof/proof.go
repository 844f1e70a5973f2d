// ABOUTME: Proof type and the device-side computation of digest and auth tag
// ABOUTME: Shared by the verifier, the provekit CLI, and tests

package proof

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Proof is the claim an untrusted actor submits on behalf of the human.
// The actor relays it verbatim; only the secure device can compute it.
type Proof struct {
	ChallengeID string `json:"challenge_id"`
	Digest      string `json:"digest"`
	AuthTag     string `json:"auth_tag"`
}

// Build computes the proof for a challenge the way the secure device does:
// the digest hashes secret, rotating code, and nonce joined by "||", and the
// auth tag is an HMAC over the hex digest keyed by the secret.
func Build(secret []byte, challengeID, rotatingCode, nonce string) Proof {
	digest := computeDigest(secret, rotatingCode, nonce)
	return Proof{
		ChallengeID: challengeID,
		Digest:      digest,
		AuthTag:     computeTag(secret, digest),
	}
}

// computeDigest returns hex(SHA-256(secret || "||" || code || "||" || nonce)).
func computeDigest(secret []byte, rotatingCode, nonce string) string {
	h := sha256.New()
	h.Write(secret)
	h.Write([]byte("||"))
	h.Write([]byte(rotatingCode))
	h.Write([]byte("||"))
	h.Write([]byte(nonce))
	return hex.EncodeToString(h.Sum(nil))
}

// computeTag returns hex(HMAC-SHA-256(key=secret, msg=hex digest)).
func computeTag(secret []byte, digest string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(digest))
	return hex.EncodeToString(mac.Sum(nil))
}
