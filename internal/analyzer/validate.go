package analyzer

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHosts are hostnames the analyzer refuses to fetch, to keep the
// service from being used as an internal-network probe.
var blockedHosts = map[string]struct{}{
	"localhost":                {},
	"metadata.google.internal": {},
	"169.254.169.254":          {},
}

// validateTargetURL parses and checks the normalized URL before fetching.
// allowPrivate skips the private-IP check so tests can target loopback
// servers.
func validateTargetURL(rawURL string, allowPrivate bool) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: %s", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, fmt.Errorf("invalid URL: missing host")
	}
	if _, blocked := blockedHosts[host]; blocked {
		return nil, fmt.Errorf("blocked hostname: %s", host)
	}

	if ip := net.ParseIP(host); !allowPrivate && ip != nil && isPrivateIP(ip) {
		return nil, fmt.Errorf("blocked IP address: %s", host)
	}

	return parsed, nil
}

// isPrivateIP reports whether the IP is non-routable or link-local.
func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
