package netutil

import (
	"net"
	"syscall"

	"github.com/pkg/errors"
)

// Failure reasons reported by ClassifyError.
const (
	ReasonTimeout = "timeout"
	ReasonRefused = "refused"
	ReasonDNS     = "dns"
	ReasonUnknown = "unknown_error"
)

// ClassifyError maps a request failure to a short label usable as a metric
// label value.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	return ReasonUnknown
}
