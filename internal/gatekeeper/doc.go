// Package gatekeeper classifies incoming actions and decides whether they
// may proceed. Non-sensitive actions pass immediately; sensitive actions are
// blocked behind a challenge until a valid out-of-band proof is presented.
// Every decision is appended to the audit log. Each request is classified
// independently: there is no session linking a blocked response to a later
// allowed one beyond the challenge id itself.
package gatekeeper
