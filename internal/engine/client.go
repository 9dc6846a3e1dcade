package engine

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient returns an *http.Client that opens a fresh connection for
// every request, the way a single heartbeat from an independent client would.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext: (&net.Dialer{
			Timeout: 30 * time.Second,
		}).DialContext,
	}

	return &http.Client{
		Timeout:   0, // cancellation comes from the run context
		Transport: transport,
	}
}
