package web

import (
	"strings"
	"time"
)

// robotsRules are the directives of the robots.txt group that applies to
// our user agent.
type robotsRules struct {
	allow    []string
	disallow []string
	delay    time.Duration
}

// allowed applies longest-match precedence between allow and disallow
// rules, with allow winning ties. target is the path plus any query.
func (r *robotsRules) allowed(target string) bool {
	if r == nil {
		return true
	}
	if target == "" {
		target = "/"
	}
	longestAllow, longestDisallow := -1, -1
	for _, p := range r.allow {
		if len(p) > longestAllow && robotsMatch(p, target) {
			longestAllow = len(p)
		}
	}
	for _, p := range r.disallow {
		if len(p) > longestDisallow && robotsMatch(p, target) {
			longestDisallow = len(p)
		}
	}
	return longestDisallow < 0 || longestAllow >= longestDisallow
}

// robotsMatch matches a rule against a path. "*" matches any run of
// characters and a trailing "$" anchors the end (RFC 9309 section 2.2.3).
func robotsMatch(pattern, target string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = pattern[:len(pattern)-1]
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(target, parts[0]) {
		return false
	}
	rest := target[len(parts[0]):]
	if len(parts) == 1 {
		return !anchored || rest == ""
	}
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
	}
	last := parts[len(parts)-1]
	if anchored {
		return strings.HasSuffix(rest, last)
	}
	return strings.Contains(rest, last)
}

// matchesUA reports whether a robots.txt agent token matches the crawler's
// user agent by case-insensitive prefix, per RFC 9309 section 2.2.1.
func matchesUA(robotsAgent, crawlerUA string) bool {
	return robotsAgent != "" && robotsAgent != "*" && strings.HasPrefix(crawlerUA, robotsAgent)
}

// parseRobotsTxt returns the rules of the group naming our user agent, or
// of the wildcard group when no group names it.
func parseRobotsTxt(body, userAgent string) *robotsRules {
	userAgent = strings.ToLower(userAgent)

	var wildcard, specific robotsRules
	var matchedSpecific bool
	var currentAgents []string
	var lastDirective string

	for _, line := range strings.Split(body, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			// Consecutive user-agent lines form a single group.
			if lastDirective == "user-agent" {
				currentAgents = append(currentAgents, strings.ToLower(value))
			} else {
				currentAgents = []string{strings.ToLower(value)}
			}
		case "crawl-delay", "allow", "disallow":
			if len(currentAgents) == 0 {
				break
			}
			for _, agent := range currentAgents {
				var target *robotsRules
				switch {
				case matchesUA(agent, userAgent):
					target = &specific
					matchedSpecific = true
				case agent == "*":
					target = &wildcard
				default:
					continue
				}
				applyDirective(target, directive, value)
			}
		}
		lastDirective = directive
	}

	if matchedSpecific {
		return &specific
	}
	return &wildcard
}

func applyDirective(r *robotsRules, directive, value string) {
	switch directive {
	case "crawl-delay":
		if d, err := time.ParseDuration(value + "s"); err == nil && d > 0 {
			r.delay = d
		}
	case "allow":
		if value != "" {
			r.allow = append(r.allow, value)
		}
	case "disallow":
		if value != "" {
			r.disallow = append(r.disallow, value)
		}
	}
}
