package cli

import (
	"go.uber.org/zap"

	"github.com/thetangentline/pcftraffic/internal/engine"
	"github.com/thetangentline/pcftraffic/pkg/netutil"
)

func preflightTarget(cfg engine.TimestampConfig, lg *zap.SugaredLogger) error {
	target := netutil.TargetURL(cfg.Host, cfg.Port, cfg.Path)
	if err := netutil.PreflightDNS(target); err != nil {
		return err
	}
	lg.Debugw("preflight ok", "target", target)
	return nil
}
