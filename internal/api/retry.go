package api

import (
	"math"
	"time"
)

// Connectivity is the app's transport availability as reported by the host
// environment. A backgrounded app cannot complete transfers, so network
// retries there are pointless.
type Connectivity int

const (
	Foregrounded Connectivity = iota
	Backgrounded
)

// Policy defines backoff behavior for retried attempts.
type Policy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	BaseDelay: 500 * time.Millisecond,
	MaxDelay:  30 * time.Second,
}

// Decision is the outcome of a retry evaluation.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide determines whether a failed attempt should be retried and how long
// to wait first. attempt is 0-based for the try that just failed, so the
// first retry waits BaseDelay.
func (p Policy) Decide(kind Kind, attempt, maxAttempts int, conn Connectivity) Decision {
	if attempt >= maxAttempts {
		return Decision{}
	}

	switch kind {
	case KindServerFault:
		// Transient by assumption.
	case KindNetwork:
		if conn == Backgrounded {
			// The environment blocks transport regardless of attempts.
			return Decision{}
		}
	case KindAuth, KindQuota:
		// Needs user or session intervention, not repetition.
		return Decision{}
	default:
		// ClientFault, Unknown: a malformed request will not succeed by
		// repetition.
		return Decision{}
	}

	return Decision{Retry: true, Delay: p.backoff(attempt)}
}

func (p Policy) backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}
