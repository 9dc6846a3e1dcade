package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thetangentline/pcftraffic/internal/engine"
	"github.com/thetangentline/pcftraffic/internal/logging"
	"github.com/thetangentline/pcftraffic/internal/stats"
	"github.com/thetangentline/pcftraffic/internal/ui"
)

// runFlags are shared by both commands.
type runFlags struct {
	seed        int64
	metricsAddr string
	logLevel    string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (0 seeds from the clock)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

// NewTimestampCommand builds the command that POSTs timestamps with
// exponentially distributed waits.
func NewTimestampCommand() *cobra.Command {
	cfg := engine.NewTimestampConfig("")
	var (
		flags     runFlags
		preflight bool
	)

	cmd := &cobra.Command{
		Use:   "exporequests host",
		Short: "POST timestamps to a web server at exponentially distributed intervals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Host = args[0]
			return execute(cmd, flags, ui.Nop(), func(ctx context.Context, orch *engine.Orchestrator, lg *zap.SugaredLogger) error {
				if preflight {
					if err := preflightTarget(cfg, lg); err != nil {
						return err
					}
				}
				return orch.RunTimestamps(ctx, cfg)
			})
		},
	}

	cmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port of the web server")
	cmd.Flags().Float64VarP(&cfg.MeanInterval, "sleep", "s", cfg.MeanInterval, "The mean time in minutes to sleep between connections")
	cmd.Flags().StringVarP(&cfg.Path, "url", "u", cfg.Path, "Relative URL to be requested on the server")
	cmd.Flags().IntVarP(&cfg.Iterations, "count", "n", 0, "Number of requests to send (0 runs until interrupted)")
	cmd.Flags().BoolVar(&preflight, "preflight", false, "Resolve the host before the first cycle")
	flags.register(cmd)
	return cmd
}

// NewBurstCommand builds the command that sends bursts of GET requests with
// uniformly distributed waits.
func NewBurstCommand() *cobra.Command {
	cfg := engine.DefaultBurstConfig()
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "httptraffic [address]",
		Short: "Send bursts of GET requests to an address at random intervals",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Address = args[0]
			}
			renderer := ui.NewPacketRenderer(cmd.OutOrStdout())
			return execute(cmd, flags, renderer, func(ctx context.Context, orch *engine.Orchestrator, lg *zap.SugaredLogger) error {
				_, err := orch.RunBursts(ctx, cfg)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "Number of bursts to send")
	cmd.Flags().IntVar(&cfg.MinWait, "min-wait", cfg.MinWait, "Minimum wait between bursts, in seconds")
	cmd.Flags().IntVar(&cfg.MaxWait, "max-wait", cfg.MaxWait, "Maximum wait between bursts, in seconds")
	cmd.Flags().IntVar(&cfg.MinBurst, "min-burst", cfg.MinBurst, "Minimum requests per burst")
	cmd.Flags().IntVar(&cfg.MaxBurst, "max-burst", cfg.MaxBurst, "Maximum requests per burst")
	flags.register(cmd)
	return cmd
}

type runFunc func(ctx context.Context, orch *engine.Orchestrator, lg *zap.SugaredLogger) error

// execute wires logging, metrics and signal handling around a run.
func execute(cmd *cobra.Command, flags runFlags, renderer ui.Renderer, run runFunc) error {
	lg, err := logging.New(flags.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	reg := prometheus.NewRegistry()
	collector := stats.NewCollector(stats.NewMetrics(reg))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.metricsAddr != "" {
		ms, err := startMetricsServer(flags.metricsAddr, reg, lg)
		if err != nil {
			return err
		}
		defer ms.Close()
	}

	opts := []engine.Option{
		engine.WithCollector(collector),
		engine.WithLogger(lg),
		engine.WithOutput(cmd.OutOrStdout()),
	}
	if flags.seed != 0 {
		opts = append(opts, engine.WithRand(rand.New(rand.NewSource(flags.seed))))
	}
	orch := engine.NewOrchestrator(renderer, opts...)

	err = run(ctx, orch, lg)
	if errors.Is(err, context.Canceled) {
		lg.Infow("stopped by signal", "requests", collector.Snapshot().Requests)
		return nil
	}
	if err != nil {
		lg.Errorw("run failed", "err", err)
		return err
	}
	return nil
}

// Execute runs cmd and exits non-zero on error.
func Execute(cmd *cobra.Command) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
