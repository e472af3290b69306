// Package resilience decorates outbound collaborator calls with bounded
// retries, a circuit breaker and a fallback value. Business failures coming
// back from a healthy collaborator (a 404, a rejected request) must be
// wrapped with Permanent so they are neither retried nor counted against
// the breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/wb-go/wbf/retry"

	"campusbooker/internal/apperr"
)

type Config struct {
	Name string

	Attempts int
	Delay    time.Duration
	Backoff  float64

	// The breaker opens once FailureRatio is reached over at least
	// MinRequests calls, and stays open for Cooldown.
	FailureRatio float64
	MinRequests  uint32
	Cooldown     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Delay <= 0 {
		c.Delay = 200 * time.Millisecond
	}
	if c.Backoff <= 0 {
		c.Backoff = 2
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	if c.MinRequests == 0 {
		c.MinRequests = 4
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 10 * time.Second
	}
	return c
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as a definitive business answer rather than a
// transport failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Caller wraps calls returning T for one collaborator.
type Caller[T any] struct {
	cb       *gobreaker.CircuitBreaker[T]
	strategy retry.Strategy
	fallback func() T
	log      *zerolog.Logger
	name     string
}

// New builds a Caller. fallback supplies the substitute value returned,
// tagged with apperr.ErrUnavailable, when the circuit is open or retries
// are exhausted.
func New[T any](cfg Config, fallback func() T, log *zerolog.Logger) *Caller[T] {
	cfg = cfg.withDefaults()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var perm *permanentError
			return errors.As(err, &perm)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("collaborator", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &Caller[T]{
		cb: gobreaker.NewCircuitBreaker[T](settings),
		strategy: retry.Strategy{
			Attempts: cfg.Attempts,
			Delay:    cfg.Delay,
			Backoff:  cfg.Backoff,
		},
		fallback: fallback,
		log:      log,
		name:     cfg.Name,
	}
}

// Call runs fn with retries inside the circuit breaker. It returns either
// fn's value, a Permanent business error unchanged, or the fallback value
// together with an apperr.ErrUnavailable-tagged error so the caller can
// tell "confirmed negative" from "could not determine".
func (c *Caller[T]) Call(ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.cb.Execute(func() (T, error) {
		var out T
		var perm error
		rerr := retry.Do(func() error {
			res, ferr := fn(ctx)
			if ferr != nil {
				var p *permanentError
				if errors.As(ferr, &p) {
					perm = ferr
					return nil
				}
				return ferr
			}
			out = res
			return nil
		}, c.strategy)
		if rerr != nil {
			return out, rerr
		}
		if perm != nil {
			return out, perm
		}
		return out, nil
	})
	if err == nil {
		return v, nil
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return v, perm.err
	}

	c.log.Warn().
		Err(err).
		Str("collaborator", c.name).
		Str("op", op).
		Msg("falling back after collaborator failure")
	return c.fallback(), apperr.Unavailable(err, "%s %s failed", c.name, op)
}
