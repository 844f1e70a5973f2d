// Package challenge creates, stores, and single-use-consumes the
// time-bounded challenges that gate sensitive actions. A challenge can be
// consumed exactly once; expiry is enforced lazily on access with a
// periodic background sweep to bound memory.
package challenge
