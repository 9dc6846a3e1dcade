package cli

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/thetangentline/pcftraffic/internal/stats"
)

// metricsServer exposes /metrics for the lifetime of a run.
type metricsServer struct {
	srv *http.Server
	ln  net.Listener
}

func startMetricsServer(addr string, g prometheus.Gatherer, lg *zap.SugaredLogger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on metrics address %q", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", stats.Handler(g))
	m := &metricsServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}

	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Errorw("metrics server stopped", "err", err)
		}
	}()
	lg.Infow("serving metrics", "addr", m.Addr())
	return m, nil
}

// Addr is the bound listen address.
func (m *metricsServer) Addr() string {
	return m.ln.Addr().String()
}

func (m *metricsServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
}
