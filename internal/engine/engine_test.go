package engine

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// roundTripFunc lets tests stand in for the network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse(r *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    r,
	}
}

// recordingWaiter records requested waits instead of sleeping.
type recordingWaiter struct {
	mu    sync.Mutex
	waits []time.Duration
	// onWait runs after each recorded wait.
	onWait func()
}

func (w *recordingWaiter) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	if w.onWait != nil {
		w.onWait()
	}
	return ctx.Err()
}

func (w *recordingWaiter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waits)
}

func seeded() *rand.Rand {
	return rand.New(rand.NewSource(42))
}
