package meta

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed wait between attempts.
	DefaultRetryDelay = 2 * time.Second
)

// RetryPolicy defines the retry behavior for Graph API calls.
type RetryPolicy struct {
	maxRetries int
	delay      time.Duration
}

// DefaultRetryPolicy returns the rate-limit retry policy: 3 retries, 2s apart.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		maxRetries: DefaultMaxRetries,
		delay:      DefaultRetryDelay,
	}
}

// WithMaxRetries sets the number of retries beyond the first attempt.
func (p *RetryPolicy) WithMaxRetries(n int) *RetryPolicy {
	if n < 0 {
		n = 0
	}
	p.maxRetries = n
	return p
}

// WithDelay sets the fixed delay between attempts.
func (p *RetryPolicy) WithDelay(d time.Duration) *RetryPolicy {
	p.delay = d
	return p
}

// MaxAttempts returns the total number of attempts, first try included.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxRetries + 1
}

// Delay returns the wait between attempts.
func (p *RetryPolicy) Delay() time.Duration {
	return p.delay
}

// ShouldRetry determines if an error should be retried after the given attempt.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxAttempts() {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return false
}

// WaitForRetry blocks for the fixed delay.
// Returns false if the context is cancelled during wait.
func (p *RetryPolicy) WaitForRetry(ctx context.Context) bool {
	if p.delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// RetryResult holds the result of a retry operation.
type RetryResult struct {
	Attempts  int
	LastError error
	Duration  time.Duration
}

// Retries returns how many attempts followed the first one.
func (r *RetryResult) Retries() int {
	if r.Attempts == 0 {
		return 0
	}
	return r.Attempts - 1
}

// Executor executes an operation with the retry policy.
type Executor struct {
	policy *RetryPolicy
}

// NewExecutor creates a new retry executor with the given policy.
func NewExecutor(policy *RetryPolicy) *Executor {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return &Executor{policy: policy}
}

// Execute runs the operation, resending it while it reports a rate limit.
// The operation is resent unchanged on every attempt.
func (e *Executor) Execute(ctx context.Context, operation func() error) *RetryResult {
	start := time.Now()
	result := &RetryResult{}

	for attempt := 1; attempt <= e.policy.MaxAttempts(); attempt++ {
		result.Attempts = attempt

		err := operation()
		if err == nil {
			result.LastError = nil
			result.Duration = time.Since(start)
			return result
		}

		result.LastError = err

		if !e.policy.ShouldRetry(err, attempt) {
			break
		}

		if !e.policy.WaitForRetry(ctx) {
			result.LastError = ctx.Err()
			break
		}
	}

	result.Duration = time.Since(start)
	return result
}
