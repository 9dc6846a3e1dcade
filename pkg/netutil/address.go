package netutil

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DefaultAddress is the target used when no address is given.
const DefaultAddress = "http://localhost/"

// NormalizeAddress turns a bare host (or host/path) into an absolute http URL.
// The scheme is prepended when missing and an empty path becomes "/", so
// "myhost" yields "http://myhost/".
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return DefaultAddress
	}

	lower := strings.ToLower(address)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		address = "http://" + address
	}

	parsed, err := url.Parse(address)
	if err != nil {
		// Left as is; the request itself reports the malformed URL.
		return address
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String()
}

// TargetURL builds http://host:port/path. IPv6 literals are bracketed and a
// missing leading slash on path is added.
func TargetURL(host string, port int, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path
}
