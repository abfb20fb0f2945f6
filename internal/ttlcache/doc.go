// Package ttlcache provides a thread-safe, size-bounded cache with per-entry TTL.
package ttlcache
