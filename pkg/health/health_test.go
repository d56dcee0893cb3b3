package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func probe(t *testing.T, endpoint http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	endpoint(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestLiveEndpoint_NoChecks(t *testing.T) {
	s := New()
	assert.Equal(t, http.StatusOK, probe(t, s.LiveEndpoint).Code)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	s := New()
	s.AddLivenessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	rec := probe(t, s.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestReadyEndpoint_GatedUntilReady(t *testing.T) {
	s := New()
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, s.ReadyEndpoint).Code)

	s.SetReady(true)
	assert.Equal(t, http.StatusOK, probe(t, s.ReadyEndpoint).Code)

	s.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, probe(t, s.ReadyEndpoint).Code)
}

func TestReadyEndpoint_CheckFailureOverridesGate(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		return errors.New("pool exhausted")
	})

	assert.Equal(t, http.StatusServiceUnavailable, probe(t, s.ReadyEndpoint).Code)
}

func TestCheckTimeout(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	rec := probe(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "timed out")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
