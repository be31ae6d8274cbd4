package backoff

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrRetriesExhausted is returned when the maximum number of retries has been reached.
var ErrRetriesExhausted = errors.New("retries exhausted")

type (
	// RetryPolicy defines the interface for retry policies.
	RetryPolicy interface {
		// ComputeNextInterval computes the next interval based on the retry policy.
		// Returns the duration to wait before the next retry, or an error if no
		// more retries should be attempted.
		ComputeNextInterval(retryCount int, elapsedTime time.Duration, err error) (time.Duration, error)
	}

	// Retrier manages the state of retry operations.
	Retrier interface {
		// Next computes the next retry interval and updates internal state.
		Next(err error) (time.Duration, error)
		// Reset resets the retrier to its initial state.
		Reset()
	}
)

var (
	defaultBackoffFactor = 2.0
	defaultMaxInterval   = 10 * time.Second
)

// ExponentialBackoffPolicy is a retry policy that implements exponential backoff.
type ExponentialBackoffPolicy struct {
	// InitialInterval is the initial interval before the first retry.
	InitialInterval time.Duration
	// BackoffFactor is the factor by which the interval increases after each retry.
	BackoffFactor float64
	// MaxInterval is the maximum interval cap for exponential backoff.
	MaxInterval time.Duration
	// MaxRetries is the maximum number of retries allowed. 0 means unlimited retries.
	MaxRetries int
}

// NewExponentialBackoffPolicy creates a new ExponentialBackoffPolicy with the specified initial interval.
func NewExponentialBackoffPolicy(initialInterval time.Duration) *ExponentialBackoffPolicy {
	return &ExponentialBackoffPolicy{
		InitialInterval: initialInterval,
		BackoffFactor:   defaultBackoffFactor,
		MaxInterval:     defaultMaxInterval,
	}
}

// ComputeNextInterval computes the next retry interval using exponential backoff.
func (p *ExponentialBackoffPolicy) ComputeNextInterval(retryCount int, _ time.Duration, _ error) (time.Duration, error) {
	if p.MaxRetries > 0 && retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}

	interval := float64(p.InitialInterval) * math.Pow(p.BackoffFactor, float64(retryCount))
	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}

	return time.Duration(interval), nil
}

// ConstantBackoffPolicy is a retry policy that uses a constant interval between retries.
type ConstantBackoffPolicy struct {
	// Interval is the constant interval between retries.
	Interval time.Duration
	// MaxRetries is the maximum number of retries allowed. 0 means unlimited retries.
	MaxRetries int
}

// NewConstantBackoffPolicy creates a new ConstantBackoffPolicy with the specified interval.
func NewConstantBackoffPolicy(interval time.Duration) *ConstantBackoffPolicy {
	return &ConstantBackoffPolicy{Interval: interval}
}

// ComputeNextInterval returns a constant interval for each retry.
func (p *ConstantBackoffPolicy) ComputeNextInterval(retryCount int, _ time.Duration, _ error) (time.Duration, error) {
	if p.MaxRetries > 0 && retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}
	return p.Interval, nil
}

// NewRetrier creates a new Retrier instance with the specified retry policy.
func NewRetrier(retryPolicy RetryPolicy) Retrier {
	return &retrierImpl{retryPolicy: retryPolicy}
}

type retrierImpl struct {
	retryPolicy RetryPolicy
	retryCount  int
	startTime   time.Time
	mu          sync.Mutex
}

// Next computes the next retry interval and updates internal state.
func (r *retrierImpl) Next(err error) (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.startTime.IsZero() {
		r.startTime = time.Now()
	}

	interval, computeErr := r.retryPolicy.ComputeNextInterval(r.retryCount, time.Since(r.startTime), err)
	if computeErr != nil {
		return 0, computeErr
	}

	r.retryCount++
	return interval, nil
}

// Reset resets the retrier to its initial state.
func (r *retrierImpl) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryCount = 0
	r.startTime = time.Time{}
}
