// Package filters provides ready-made filter handlers for the web back
// end.
//
// RateLimit grants requests while a token bucket per client address (or a
// single shared bucket) has tokens and answers 429 otherwise. Expression
// grants requests for which a CEL expression over the request yields true
// and answers 403 otherwise.
//
// With RateLimitSettings.Redis the buckets live in Redis and are shared by
// every instance. A circuit breaker guards the Redis calls; while Redis
// fails the local buckets answer.
//
// Filters run once per dispatch step, so a request whose processors span
// several steps is evaluated once per step.
package filters
