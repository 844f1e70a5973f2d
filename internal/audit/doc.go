// Package audit provides an append-only record of every authorization
// decision the gatekeeper makes, backed by memory or SQLite.
package audit
