// Package secret holds the long-term shared secret and derives the rotating
// short-lived code. The secret never leaves the verifying process; the
// rotating code is disclosed in challenges but is worthless without the
// secret. Derivation is a pure function of the timestamp's calendar period,
// so the human's independently-held device computes the same code without
// any synchronization.
package secret
