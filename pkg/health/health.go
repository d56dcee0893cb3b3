// Package health provides Kubernetes-style liveness and readiness probes.
// Checks are evaluated on demand when a probe endpoint is hit, each under its
// own timeout, and readiness is additionally gated by an explicit ready flag
// so the server can drain before shutdown.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports the health of one component: nil means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Service evaluates registered checks and serves the probe endpoints.
type Service struct {
	mu        sync.Mutex
	liveness  []check
	readiness []check
	ready     atomic.Bool
}

// New creates an empty health Service. It starts not-ready; call SetReady(true)
// once startup completes.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a check evaluated by the liveness endpoint.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check evaluated by the readiness endpoint.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the readiness gate. While false the readiness endpoint fails
// regardless of check results, which lets load balancers drain the instance.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	checks := append([]check(nil), s.liveness...)
	s.mu.Unlock()

	s.respond(w, r, checks, true)
}

// ReadyEndpoint serves the readiness probe.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	checks := append([]check(nil), s.readiness...)
	s.mu.Unlock()

	s.respond(w, r, checks, s.ready.Load())
}

func (s *Service) respond(w http.ResponseWriter, r *http.Request, checks []check, gate bool) {
	results := make(map[string]string, len(checks))
	healthy := gate
	if !gate {
		results["ready"] = "not ready"
	}

	for _, c := range checks {
		if err := s.run(r.Context(), c); err != nil {
			results[c.name] = err.Error()
			healthy = false
		} else {
			results[c.name] = "ok"
		}
	}

	status := http.StatusOK
	text := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		text = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": text,
		"checks": results,
	})
}

func (s *Service) run(ctx context.Context, c check) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("check %s timed out", c.name)
	}
}

// GoroutineCountCheck fails when the process exceeds max goroutines, a cheap
// proxy for leak detection.
func GoroutineCountCheck(max int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return fmt.Errorf("too many goroutines: %d > %d", n, max)
		}
		return nil
	}
}
