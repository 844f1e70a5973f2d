// Package rpc exposes the gatekeeper over a method-dispatched JSON request
// surface, usable both in-process and over HTTP.
//
// # Methods
//
// Requests carry a method name plus method-specific fields:
//
//	{"method": "execute_action", "action": "delete_database",
//	 "params": {"db": "production"},
//	 "proof": {"challenge_id": "...", "digest": "...", "auth_tag": "..."}}
//
//	{"method": "get_audit_log"}
//
//	{"method": "list_sensitive_actions"}
//
// Unknown methods produce {"error": "Unknown method"}.
//
// # HTTP transport
//
// The same dispatch is reachable via HTTP POST on /v1/gate, with a request
// body size limit and JSON responses. GET /healthz reports liveness. The
// transport is a thin wrapper: all security decisions live in the
// gatekeeper and its sub-components.
package rpc
