package sdk

import "time"

type options struct {
	timeout      time.Duration
	maxAttempts  int
	initialDelay time.Duration
}

func defaultOptions() options {
	return options{timeout: 30 * time.Second, maxAttempts: 3, initialDelay: 500 * time.Millisecond}
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds every request. Reading a large project tree over a
// slow transport may need more than the 30s default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry sets how often a failed call is attempted and the first
// backoff delay. One attempt disables retries.
func WithRetry(attempts int, firstDelay time.Duration) Option {
	return func(o *options) {
		if attempts < 1 {
			attempts = 1
		}
		o.maxAttempts, o.initialDelay = attempts, firstDelay
	}
}
