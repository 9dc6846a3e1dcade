package engine

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/thetangentline/pcftraffic/pkg/netutil"
)

// TimestampBody renders t as Unix seconds with a fractional part.
func TimestampBody(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', -1, 64)
}

// send issues one request and discards the response. Any status code counts
// as sent; only transport failures are returned.
func (o *Orchestrator) send(ctx context.Context, method, target string, body []byte) error {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "text/plain")
	}

	start := time.Now()
	resp, err := o.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.collector.RecordFailure(netutil.ClassifyError(err))
		return errors.Wrapf(err, "%s %s", method, target)
	}

	n, _ := io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	o.collector.RecordRequest(method, resp.StatusCode, latency, uint64(len(body)), uint64(n))
	o.lg.Debugw("request sent",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"latency", latency,
	)
	return nil
}
