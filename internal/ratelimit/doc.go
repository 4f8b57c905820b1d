// Package ratelimit provides per-client request counting over fixed
// time windows, with background eviction of idle entries.
//
// This is a single-instance, in-memory limiter intended for basic
// abuse prevention on the API namespace. Counters live only in process
// memory and reset on restart. It does not protect against distributed
// attacks or bandwidth-bill attacks; for those, use an upstream WAF or
// CDN-level rate limiting.
package ratelimit
