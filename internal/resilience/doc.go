// Package resilience wraps calls to external collaborators with a timeout,
// bounded retries and mapping onto the domain error taxonomy. It also
// provides the sliding-window rate limiter used by driving adapters.
//
// Every backing-store call made by the core goes through Store, which
// composes the three: each attempt gets its own timeout, transient failures
// (5xx, 429, network, timeout) are retried with exponential backoff up to
// the attempt cap, terminal failures (other 4xx, parse failures) surface on
// the first attempt, and whatever escapes is a *domain.Error.
package resilience
