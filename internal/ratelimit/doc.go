// Package ratelimit gates outbound metadata provider calls.
//
// Limiter bounds concurrency with weighted semaphore permits. StateMachine
// tracks provider health across three states: NORMAL, THROTTLE after an HTTP
// 429 until the backoff elapses, and CACHE_ONLY when the error rate over the
// recent request window exceeds a threshold. Callers consult ShouldMakeRequest
// and RetryDelay before each request and report the outcome afterwards.
package ratelimit
