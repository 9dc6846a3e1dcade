package netutil

import (
	"net"
	"net/url"

	"github.com/pkg/errors"
)

// PreflightDNS validates that the URL is well-formed and its host resolves.
func PreflightDNS(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "invalid url")
	}

	host := parsed.Hostname()
	if host == "" {
		return errors.New("missing host in url")
	}

	if _, err := net.LookupHost(host); err != nil {
		return errors.Wrapf(err, "dns resolution failed for host %q", host)
	}
	return nil
}
