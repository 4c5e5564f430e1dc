package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, max int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(max, window)
	rl.now = clock.Now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestRateLimiter_CheckUserLimit(t *testing.T) {
	rl, clock := newTestLimiter(t, 3, time.Minute)
	alice, bob := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.CheckUserLimit(alice), "request %d", i+1)
	}
	assert.False(t, rl.CheckUserLimit(alice))
	assert.Equal(t, 0, rl.Remaining(alice))

	// Limits are per user.
	assert.True(t, rl.CheckUserLimit(bob))
	assert.Equal(t, 2, rl.Remaining(bob))

	clock.Advance(time.Minute + time.Second)
	assert.True(t, rl.CheckUserLimit(alice))
	assert.Equal(t, 2, rl.Remaining(alice))
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl, _ := newTestLimiter(t, 10, time.Minute)
	user := uuid.New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.CheckUserLimit(user) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}

func TestRateLimiter_Limit(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, 30*time.Second)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	sessionUser := &service.SessionUser{User: &domain.User{ID: uuid.New()}, SessionID: uuid.New()}

	tests := []struct {
		name       string
		withUser   bool
		wantStatus int
	}{
		{name: "first request passes", withUser: true, wantStatus: http.StatusNoContent},
		{name: "second request limited", withUser: true, wantStatus: http.StatusTooManyRequests},
		{name: "no session", withUser: false, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/matches", nil)
			if tt.withUser {
				req = req.WithContext(WithSessionUser(req.Context(), sessionUser))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusTooManyRequests {
				assert.Equal(t, "30", rec.Header().Get("Retry-After"))
				assert.JSONEq(t, `{"message":"Too many requests"}`, rec.Body.String())
			}
		})
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	rl.Stop()
	rl.Stop()
}
