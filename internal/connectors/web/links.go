package web

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// skipPathFragments mark admin, commerce and auth pages that never carry
// trust content.
var skipPathFragments = []string{
	"/cdn-cgi/",
	"/wp-admin/",
	"/wp-content/",
	"/cart",
	"/checkout",
	"/login",
	"/signin",
	"/signup",
	"/register",
	"/admin",
}

var binaryExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {}, ".ico": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {}, ".exe": {}, ".dmg": {},
	".mp4": {}, ".mp3": {}, ".css": {}, ".js": {}, ".woff": {}, ".woff2": {},
}

// Scope decides which URLs belong to a vendor crawl.
type Scope struct {
	// Domain is the vendor domain; the apex, www and any subdomain are in scope.
	Domain string

	// Blocked holds canonical URL prefixes, or path prefixes starting with
	// "/", that are never followed.
	Blocked []string
}

// NewScope normalises the vendor domain.
func NewScope(vendorDomain string, blocked []string) Scope {
	return Scope{Domain: domain.NormaliseDomain(vendorDomain), Blocked: blocked}
}

// InDomain reports whether host is the vendor domain or one of its subdomains.
func (s Scope) InDomain(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host == s.Domain || strings.HasSuffix(host, "."+s.Domain)
}

// Allows reports whether a canonical URL may be fetched.
func (s Scope) Allows(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !s.InDomain(u.Hostname()) {
		return false
	}

	p := strings.ToLower(u.Path)
	for _, frag := range skipPathFragments {
		if strings.Contains(p, frag) {
			return false
		}
	}
	if _, binary := binaryExtensions[path.Ext(p)]; binary {
		return false
	}

	canonical := canonicalString(u)
	for _, b := range s.Blocked {
		if b == "" {
			continue
		}
		if strings.HasPrefix(b, "/") {
			if strings.HasPrefix(u.Path, b) {
				return false
			}
			continue
		}
		if strings.HasPrefix(canonical, b) {
			return false
		}
	}
	return true
}

// Canonicalize parses an absolute URL and rebuilds it as
// scheme://host/path[?query], dropping any fragment and user info.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}
	return canonicalString(u), nil
}

func canonicalString(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	s := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + p
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	return s
}

// ExtractLinks resolves hrefs against base, canonicalises them and keeps
// those the scope allows. The result is de-duplicated and sorted.
func ExtractLinks(base *url.URL, hrefs []string, scope Scope) []string {
	seen := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		abs.RawFragment = ""
		abs.User = nil
		abs.Scheme = strings.ToLower(abs.Scheme)
		if !scope.Allows(abs) {
			continue
		}
		seen[canonicalString(abs)] = struct{}{}
	}

	links := make([]string, 0, len(seen))
	for l := range seen {
		links = append(links, l)
	}
	sort.Strings(links)
	return links
}
