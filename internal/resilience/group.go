package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [Group] fails or has an open
// circuit breaker.
var ErrAllFailed = errors.New("resilience: all providers failed")

// Config configures the per-entry circuit breaker created for each provider
// in a [Group].
type Config struct {
	CircuitBreaker BreakerConfig
}

// entry pairs a provider value with its dedicated circuit breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// Group wraps a primary and zero or more fallback instances of the same
// provider type. When the primary fails or its breaker is open, the next
// healthy fallback is tried in registration order.
//
// Group is safe for concurrent use once fallback registration is finished;
// AddFallback must not race with Do.
type Group[T any] struct {
	entries []entry[T]
	cfg     Config
}

// NewGroup creates a [Group] with primary as its first entry.
func NewGroup[T any](primary T, primaryName string, cfg Config) *Group[T] {
	g := &Group[T]{cfg: cfg}
	g.entries = append(g.entries, g.newEntry(primaryName, primary))
	return g
}

// AddFallback appends a fallback provider, tried after everything added
// before it.
func (g *Group[T]) AddFallback(name string, fallback T) {
	g.entries = append(g.entries, g.newEntry(name, fallback))
}

func (g *Group[T]) newEntry(name string, value T) entry[T] {
	cbCfg := g.cfg.CircuitBreaker
	cbCfg.Name = name
	return entry[T]{name: name, value: value, breaker: NewCircuitBreaker(cbCfg)}
}

// Primary returns the first registered provider.
func (g *Group[T]) Primary() T {
	return g.entries[0].value
}

// Do tries fn against each entry in order until one succeeds, returning the
// result. Entries with open breakers are skipped. When every entry fails the
// error wraps [ErrAllFailed] around the last failure.
//
// Do is a package-level generic function rather than a method because Go does
// not support method-level type parameters.
func Do[T any, R any](g *Group[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range g.entries {
		e := &g.entries[i]
		var result R
		err := e.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(e.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider, circuit open", "provider", e.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", e.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
