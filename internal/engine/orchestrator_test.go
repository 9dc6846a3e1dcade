package engine

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/thetangentline/pcftraffic/internal/stats"
	"github.com/thetangentline/pcftraffic/internal/ui"
	"github.com/thetangentline/pcftraffic/pkg/netutil"
)

func TestTimestampBody(t *testing.T) {
	body := TimestampBody(time.Unix(1700000000, 250000000))
	if body != "1700000000.25" {
		t.Errorf("TimestampBody = %q", body)
	}
	if _, err := strconv.ParseFloat(TimestampBody(time.Now()), 64); err != nil {
		t.Errorf("body not parseable as float: %v", err)
	}
}

func TestRunTimestamps_SingleCycle(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
		urls    []string
		bodies  []string
		ctypes  []string
	)
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		methods = append(methods, r.Method)
		urls = append(urls, r.URL.String())
		bodies = append(bodies, string(b))
		ctypes = append(ctypes, r.Header.Get("Content-Type"))
		mu.Unlock()
		return okResponse(r), nil
	})}

	waiter := &recordingWaiter{}
	var out bytes.Buffer
	sent := time.Unix(1700000123, 500000000)
	orch := NewOrchestrator(ui.Nop(),
		WithClient(client),
		WithRand(seeded()),
		WithWaiter(waiter.wait),
		WithClock(func() time.Time { return sent }),
		WithOutput(&out),
	)

	cfg := TimestampConfig{Host: "example.com", Port: 8080, Path: "/t", MeanInterval: 10, Iterations: 1}
	if err := orch.RunTimestamps(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	if len(methods) != 1 {
		t.Fatalf("got %d requests, want exactly 1", len(methods))
	}
	if methods[0] != http.MethodPost {
		t.Errorf("method = %s, want POST", methods[0])
	}
	if urls[0] != "http://example.com:8080/t" {
		t.Errorf("url = %s", urls[0])
	}
	ts, err := strconv.ParseFloat(bodies[0], 64)
	if err != nil {
		t.Fatalf("body %q not a float: %v", bodies[0], err)
	}
	if ts != 1700000123.5 {
		t.Errorf("timestamp = %v, want 1700000123.5", ts)
	}
	if ctypes[0] != "text/plain" {
		t.Errorf("Content-Type = %q", ctypes[0])
	}
	if waiter.count() != 1 {
		t.Errorf("waits = %d, want 1", waiter.count())
	}
	if got := out.String(); got != "example.com 8080 0.1 /t\n" {
		t.Errorf("header = %q", got)
	}
}

func TestRunTimestamps_AgainstServer(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if _, err := strconv.ParseFloat(string(b), 64); err != nil {
			t.Errorf("body %q not a float", b)
		}
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().(*net.TCPAddr)
	waiter := &recordingWaiter{}
	orch := NewOrchestrator(nil, WithWaiter(waiter.wait), WithOutput(io.Discard))

	cfg := TimestampConfig{Host: "127.0.0.1", Port: addr.Port, Path: "/pcf/t.html", MeanInterval: 0.5, Iterations: 3}
	if err := orch.RunTimestamps(context.Background(), cfg); err != nil {
		t.Fatalf("5xx responses must not stop the run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(paths))
	}
	for _, p := range paths {
		if p != "POST /pcf/t.html" {
			t.Errorf("request = %q", p)
		}
	}
	snap := orch.Collector().Snapshot()
	if snap.Requests != 3 || snap.Waits != 3 {
		t.Errorf("snapshot: %+v", snap)
	}
}

func TestRunTimestamps_InvalidConfig(t *testing.T) {
	waiter := &recordingWaiter{}
	orch := NewOrchestrator(nil, WithWaiter(waiter.wait), WithOutput(io.Discard))
	err := orch.RunTimestamps(context.Background(), TimestampConfig{Host: "h", Port: 80, MeanInterval: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if waiter.count() != 0 {
		t.Error("no wait should happen before validation")
	}
}

func TestRunTimestamps_ConnectionFailureStopsRun(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().(*net.TCPAddr)
	srv.Close()

	waiter := &recordingWaiter{}
	orch := NewOrchestrator(nil, WithWaiter(waiter.wait), WithOutput(io.Discard))

	cfg := TimestampConfig{Host: "127.0.0.1", Port: addr.Port, Path: "/", MeanInterval: 1}
	err := orch.RunTimestamps(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !strings.Contains(err.Error(), "iteration 1") {
		t.Errorf("error should name the iteration: %v", err)
	}
	if waiter.count() != 1 {
		t.Errorf("waits = %d, want 1 (no further iterations)", waiter.count())
	}
	snap := orch.Collector().Snapshot()
	if snap.Failures != 1 || snap.Requests != 0 {
		t.Errorf("snapshot: %+v", snap)
	}
	if netutil.ClassifyError(err) != netutil.ReasonRefused {
		t.Errorf("ClassifyError = %q, want refused", netutil.ClassifyError(err))
	}
}

func TestRunTimestamps_CancelDuringWait(t *testing.T) {
	var calls int
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return okResponse(r), nil
	})}

	ctx, cancel := context.WithCancel(context.Background())
	waiter := &recordingWaiter{}
	waiter.onWait = func() {
		if waiter.count() == 3 {
			cancel()
		}
	}
	orch := NewOrchestrator(nil, WithClient(client), WithWaiter(waiter.wait), WithOutput(io.Discard))

	err := orch.RunTimestamps(ctx, NewTimestampConfig("example.com"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 2 {
		t.Errorf("requests = %d, want 2 (pending request dropped)", calls)
	}
}

func TestRunTimestamps_SleepContextHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("unexpected request")
	})}
	orch := NewOrchestrator(nil, WithClient(client), WithRand(seeded()), WithOutput(io.Discard))
	start := time.Now()
	err := orch.RunTimestamps(ctx, TimestampConfig{Host: "example.com", Port: 80, Path: "/", MeanInterval: 60})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("wait did not stop on cancellation")
	}
}

func TestRunBursts_FullRun(t *testing.T) {
	var (
		mu     sync.Mutex
		bursts []int
	)
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodGet || r.URL.String() != "http://myhost/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		mu.Lock()
		bursts[len(bursts)-1]++
		mu.Unlock()
		return okResponse(r), nil
	})}
	waiter := &recordingWaiter{}
	waiter.onWait = func() {
		mu.Lock()
		bursts = append(bursts, 0)
		mu.Unlock()
	}

	collector := stats.NewCollector(nil)
	var out bytes.Buffer
	orch := NewOrchestrator(ui.NewPacketRenderer(&out),
		WithClient(client),
		WithRand(seeded()),
		WithWaiter(waiter.wait),
		WithCollector(collector),
	)

	cfg := DefaultBurstConfig()
	cfg.Address = "myhost"
	result, err := orch.RunBursts(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if result.Iterations != 1400 {
		t.Errorf("Iterations = %d, want 1400", result.Iterations)
	}
	if len(bursts) != 1400 {
		t.Fatalf("observed %d bursts, want 1400", len(bursts))
	}
	sum := 0
	for i, n := range bursts {
		if n < 1 || n > 4 {
			t.Fatalf("burst %d has size %d", i, n)
		}
		sum += n
	}
	if result.Packets != sum {
		t.Errorf("Packets = %d, want sum of bursts %d", result.Packets, sum)
	}
	for _, d := range waiter.waits {
		if d%time.Second != 0 || d < 10*time.Second || d > 30*time.Second {
			t.Fatalf("wait %v outside integer [10s, 30s]", d)
		}
	}
	snap := collector.Snapshot()
	if snap.Packets != uint64(sum) || snap.Requests != uint64(sum) || snap.Bursts != 1400 {
		t.Errorf("snapshot: %+v", snap)
	}
	final := "\r" + strconv.Itoa(sum) + " packets sent\n"
	if !strings.HasSuffix(out.String(), final) {
		t.Errorf("output does not end with %q", final)
	}
}

func TestRunBursts_AgainstServer(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	waiter := &recordingWaiter{}
	orch := NewOrchestrator(nil, WithWaiter(waiter.wait))
	cfg := DefaultBurstConfig()
	cfg.Address = srv.URL
	cfg.Iterations = 5

	result, err := orch.RunBursts(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if result.Packets != count {
		t.Errorf("Packets = %d, server saw %d", result.Packets, count)
	}
	if snap := orch.Collector().Snapshot(); snap.TotalBytesRecv != uint64(5*count) {
		t.Errorf("TotalBytesRecv = %d, want %d", snap.TotalBytesRecv, 5*count)
	}
}

func TestRunBursts_ConnectionFailureStopsRun(t *testing.T) {
	var calls int
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	})}
	waiter := &recordingWaiter{}
	orch := NewOrchestrator(nil, WithClient(client), WithWaiter(waiter.wait), WithRand(seeded()))

	result, err := orch.RunBursts(context.Background(), DefaultBurstConfig())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("requests attempted = %d, want 1", calls)
	}
	if waiter.count() != 1 {
		t.Errorf("waits = %d, want 1", waiter.count())
	}
	if result.Iterations != 0 || result.Packets != 0 {
		t.Errorf("result = %+v, want zero", result)
	}
}

func TestRunBursts_InvalidConfig(t *testing.T) {
	cfg := DefaultBurstConfig()
	cfg.MaxBurst = 0
	waiter := &recordingWaiter{}
	_, err := NewOrchestrator(nil, WithWaiter(waiter.wait)).RunBursts(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if waiter.count() != 0 {
		t.Error("no wait should happen before validation")
	}
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	orch := NewOrchestrator(nil)
	if orch.client == nil || orch.rng == nil || orch.collector == nil || orch.lg == nil || orch.renderer == nil {
		t.Fatalf("defaults not applied: %+v", orch)
	}
	if orch.client.Timeout != 0 {
		t.Errorf("client timeout = %v, want 0", orch.client.Timeout)
	}
	tr, ok := orch.client.Transport.(*http.Transport)
	if !ok || !tr.DisableKeepAlives {
		t.Error("default transport must disable keep-alives")
	}
}
