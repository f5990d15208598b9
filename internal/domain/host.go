package domain

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var archivePrefix = regexp.MustCompile(`^https?://web\.archive\.org/web/\d{14}/`)

// StripArchive removes a Wayback Machine snapshot prefix so the archived URL is attributed to its origin.
func StripArchive(rawURL string) string {
	return archivePrefix.ReplaceAllString(rawURL, "")
}

// RegistrableDomain returns the eTLD+1 of rawURL's host. IP hosts are returned unchanged.
// Scheme-less input such as "cdc.gov/vaccines" is accepted.
func RegistrableDomain(rawURL string) (string, bool) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", false
	}
	if strings.HasPrefix(raw, "//") {
		raw = "http:" + raw
	} else if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", false
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), true
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	return registrable, true
}
