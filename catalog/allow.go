package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

// Allowlist gates fetch targets to the configured catalog/CDN hosts.
// A host matches when it equals an allowed domain or is a subdomain of it.
type Allowlist struct {
	domains []string
}

// NewAllowlist creates an allowlist from bare domains ("dam.example.com").
// An empty list allows everything (trusted single-catalog deployments).
func NewAllowlist(domains []string) *Allowlist {
	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return &Allowlist{domains: cleaned}
}

// Allowed reports whether rawURL targets an allowed host.
func (a *Allowlist) Allowed(rawURL string) bool {
	if len(a.domains) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range a.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Check returns an error naming the rejected host, for fetch-path wrapping.
func (a *Allowlist) Check(rawURL string) error {
	if a.Allowed(rawURL) {
		return nil
	}
	return fmt.Errorf("host not in allowlist: %s", rawURL)
}
