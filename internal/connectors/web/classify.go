package web

import (
	"net/url"
	"strings"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

// privacyProbeRunes is how much leading text is checked for "privacy policy".
const privacyProbeRunes = 500

type classRule struct {
	fragments []string
	docType   domain.DocumentType
}

// classRules are checked in order against the lower-cased subdomain and
// path; the first match wins.
var classRules = []classRule{
	{[]string{"security"}, domain.DocumentTypeSecurityPage},
	{[]string{"trust"}, domain.DocumentTypeTrustCenter},
	{[]string{"compliance", "certifications"}, domain.DocumentTypeComplianceDoc},
	{[]string{"status", "uptime"}, domain.DocumentTypeStatusPage},
	{[]string{"blog"}, domain.DocumentTypeBlogPost},
	{[]string{"incident"}, domain.DocumentTypeIncidentReport},
	{[]string{"terms"}, domain.DocumentTypeTermsOfService},
}

// Classify assigns a document type from the page URL, with privacy
// policies also recognised from the opening text.
func Classify(pageURL, text string) domain.DocumentType {
	u := classifyTarget(pageURL)
	if strings.Contains(u, "privacy") || strings.Contains(strings.ToLower(leadingRunes(text, privacyProbeRunes)), "privacy policy") {
		return domain.DocumentTypePrivacyPolicy
	}
	for _, rule := range classRules {
		for _, frag := range rule.fragments {
			if strings.Contains(u, frag) {
				return rule.docType
			}
		}
	}
	return domain.DocumentTypeOther
}

// classifyTarget drops the registrable domain so a vendor named
// securityscorecard.com or trustarc.com does not classify every page.
// Subdomain labels are kept: trust.acme.com is still a trust center.
func classifyTarget(pageURL string) string {
	u, err := url.Parse(strings.ToLower(pageURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(pageURL)
	}
	labels := strings.Split(u.Hostname(), ".")
	var sub string
	if len(labels) > 2 {
		sub = strings.Join(labels[:len(labels)-2], ".")
	}
	return sub + " " + u.Path
}

// IsRelevant applies the relevance policy: a URL pattern match, or at
// least KeywordThreshold distinct keywords in the text. A threshold of
// zero or less disables the keyword rule.
func IsRelevant(policy domain.RelevancePolicy, pageURL, text string) bool {
	u := strings.ToLower(pageURL)
	for _, pattern := range policy.URLPatterns {
		if pattern != "" && strings.Contains(u, strings.ToLower(pattern)) {
			return true
		}
	}
	if policy.KeywordThreshold <= 0 {
		return false
	}
	return KeywordHits(policy.Keywords, text) >= policy.KeywordThreshold
}

// KeywordHits counts distinct keywords present in text, case-insensitively.
func KeywordHits(keywords []string, text string) int {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		if strings.Contains(lower, kw) {
			seen[kw] = struct{}{}
		}
	}
	return len(seen)
}

func leadingRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
