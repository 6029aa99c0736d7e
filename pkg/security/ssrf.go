package security

import (
	"fmt"
	"net"
	"net/url"
)

// forbiddenConfigHeaders are never allowed in source configuration; these
// must come from the process environment instead (spec.md §6).
var forbiddenConfigHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"x-api-key":           {},
	"x-auth-token":        {},
	"proxy-authorization": {},
}

// ValidateConfigHeaders returns an error if any configured header name is
// one that must only ever be sourced from the environment.
func ValidateConfigHeaders(headers map[string]string) error {
	for name := range headers {
		if _, forbidden := forbiddenConfigHeaders[lower(name)]; forbidden {
			return fmt.Errorf("header %q must not appear in configuration; read it from the environment", name)
		}
	}
	return nil
}

var privateIPv4Ranges = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

// IsPrivateIP reports whether ip is loopback, link-local, or within a
// private IPv4 range (including the 169.254.169.254 cloud metadata host).
func IsPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	for _, n := range privateIPv4Ranges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ValidateFetchURL rejects URLs that are not http/https, or whose host
// resolves to a private address, to prevent SSRF via source or redirect
// URLs. A DNS lookup failure is not itself rejected: unresolvable hosts
// fail later at the network layer with a normal fetch error.
func ValidateFetchURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url must have a host")
	}

	ips, err := net.LookupIP(u.Hostname())
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if IsPrivateIP(ip) {
			return fmt.Errorf("url host %q resolves to a private address", u.Hostname())
		}
	}
	return nil
}
