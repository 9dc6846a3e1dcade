package engine

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/thetangentline/pcftraffic/internal/stats"
	"github.com/thetangentline/pcftraffic/internal/ui"
	"github.com/thetangentline/pcftraffic/pkg/netutil"
)

// Waiter blocks for d or until ctx is done, returning ctx.Err() in the latter case.
type Waiter func(ctx context.Context, d time.Duration) error

// SleepContext is the default Waiter.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Orchestrator runs the wait/request loop. Requests are strictly sequential.
type Orchestrator struct {
	renderer  ui.Renderer
	client    *http.Client
	rng       *rand.Rand
	wait      Waiter
	now       func() time.Time
	collector *stats.Collector
	lg        *zap.SugaredLogger
	out       io.Writer
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithRand sets the random source used by the schedules.
func WithRand(rng *rand.Rand) Option {
	return func(o *Orchestrator) { o.rng = rng }
}

// WithWaiter replaces the sleep between cycles.
func WithWaiter(w Waiter) Option {
	return func(o *Orchestrator) { o.wait = w }
}

// WithClock sets the time source for timestamp bodies.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCollector sets the stats collector.
func WithCollector(c *stats.Collector) Option {
	return func(o *Orchestrator) { o.collector = c }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.SugaredLogger) Option {
	return func(o *Orchestrator) { o.lg = lg }
}

// WithOutput sets where the run header is printed.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// NewOrchestrator constructs a new Orchestrator. A nil renderer prints nothing.
func NewOrchestrator(renderer ui.Renderer, opts ...Option) *Orchestrator {
	if renderer == nil {
		renderer = ui.Nop()
	}
	o := &Orchestrator{
		renderer: renderer,
		wait:     SleepContext,
		now:      time.Now,
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	// Sensible defaults if not provided
	if o.client == nil {
		o.client = newHTTPClient()
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.collector == nil {
		o.collector = stats.NewCollector(nil)
	}
	if o.lg == nil {
		o.lg = zap.NewNop().Sugar()
	}
	return o
}

// Collector returns the collector receiving this orchestrator's events.
func (o *Orchestrator) Collector() *stats.Collector {
	return o.collector
}

// RunTimestamps POSTs the current timestamp to the configured target after
// each exponentially distributed wait. It returns when cfg.Iterations cycles
// are done (never, if zero), when ctx is done, or on the first failed request.
func (o *Orchestrator) RunTimestamps(ctx context.Context, cfg TimestampConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	target := netutil.TargetURL(cfg.Host, cfg.Port, cfg.Path)
	ui.PrintRunHeader(o.out, cfg.Host, cfg.Port, cfg.Rate(), cfg.Path)
	o.lg.Infow("starting timestamp run",
		"target", target,
		"mean_minutes", cfg.MeanInterval,
		"iterations", cfg.Iterations,
	)
	defer func() { o.renderer.RenderFinal(o.collector.Snapshot()) }()

	schedule := NewExponentialSchedule(cfg.MeanInterval, o.rng)
	for i := 1; cfg.Iterations == 0 || i <= cfg.Iterations; i++ {
		if err := o.pause(ctx, schedule); err != nil {
			return err
		}

		body := TimestampBody(o.now())
		if err := o.send(ctx, http.MethodPost, target, []byte(body)); err != nil {
			if ctx.Err() != nil {
				return err
			}
			return errors.Wrapf(err, "iteration %d", i)
		}
		o.renderer.Render(o.collector.Snapshot())
	}
	return nil
}

// BurstResult accumulates the progress of a burst run.
type BurstResult struct {
	Iterations int
	Packets    int
}

func (r BurstResult) add(burst int) BurstResult {
	return BurstResult{Iterations: r.Iterations + 1, Packets: r.Packets + burst}
}

// RunBursts performs cfg.Iterations cycles of a uniform wait followed by a
// back-to-back burst of GET requests. The returned result covers the bursts
// that completed, including when an error cuts the run short.
func (o *Orchestrator) RunBursts(ctx context.Context, cfg BurstConfig) (BurstResult, error) {
	var result BurstResult
	if err := cfg.Validate(); err != nil {
		return result, err
	}

	target := netutil.NormalizeAddress(cfg.Address)
	o.lg.Infow("starting burst run",
		"target", target,
		"iterations", cfg.Iterations,
		"wait", []int{cfg.MinWait, cfg.MaxWait},
		"burst", []int{cfg.MinBurst, cfg.MaxBurst},
	)
	defer func() { o.renderer.RenderFinal(o.collector.Snapshot()) }()

	schedule := NewUniformSchedule(cfg.MinWait, cfg.MaxWait, o.rng)
	for result.Iterations < cfg.Iterations {
		if err := o.pause(ctx, schedule); err != nil {
			return result, err
		}

		burst := DrawBurstSize(o.rng, cfg.MinBurst, cfg.MaxBurst)
		for sent := 0; sent < burst; sent++ {
			if err := o.send(ctx, http.MethodGet, target, nil); err != nil {
				if ctx.Err() != nil {
					return result, err
				}
				return result, errors.Wrapf(err, "iteration %d, request %d of %d", result.Iterations+1, sent+1, burst)
			}
		}

		result = result.add(burst)
		o.collector.RecordBurst(burst)
		o.renderer.Render(o.collector.Snapshot())
	}

	o.lg.Infow("burst run finished", "iterations", result.Iterations, "packets", result.Packets)
	return result, nil
}

func (o *Orchestrator) pause(ctx context.Context, schedule Schedule) error {
	d := schedule.NextWait()
	o.collector.RecordWait(d)
	o.lg.Debugw("waiting", "duration", d)
	return o.wait(ctx, d)
}
