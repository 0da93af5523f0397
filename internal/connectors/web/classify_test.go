package web

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/vendorscope/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		text string
		want domain.DocumentType
	}{
		{"https://acme.com/security", "", domain.DocumentTypeSecurityPage},
		{"https://acme.com/legal/privacy", "", domain.DocumentTypePrivacyPolicy},
		{"https://acme.com/legal", "This Privacy Policy explains", domain.DocumentTypePrivacyPolicy},
		{"https://trust.acme.com/", "", domain.DocumentTypeTrustCenter},
		{"https://acme.com/compliance", "", domain.DocumentTypeComplianceDoc},
		{"https://acme.com/certifications", "", domain.DocumentTypeComplianceDoc},
		{"https://status.acme.com/", "", domain.DocumentTypeStatusPage},
		{"https://acme.com/blog/incident-review", "", domain.DocumentTypeBlogPost},
		{"https://acme.com/incidents/42", "", domain.DocumentTypeIncidentReport},
		{"https://acme.com/terms", "", domain.DocumentTypeTermsOfService},
		{"https://acme.com/about", "", domain.DocumentTypeOther},
		{"https://securityscorecard.com/about", "", domain.DocumentTypeOther},
		{"https://securityscorecard.com/blog/launch", "", domain.DocumentTypeBlogPost},
		{"https://trustarc.com/terms", "", domain.DocumentTypeTermsOfService},
		{"https://www.trustarc.com/legal/privacy", "", domain.DocumentTypePrivacyPolicy},
		{"https://trust.securityscorecard.com/", "", domain.DocumentTypeTrustCenter},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url, tt.text))
		})
	}
}

func TestIsRelevant(t *testing.T) {
	policy := domain.RelevancePolicy{
		URLPatterns:      []string{"/security"},
		Keywords:         []string{"encryption", "soc 2", "gdpr"},
		KeywordThreshold: 2,
	}

	assert.True(t, IsRelevant(policy, "https://acme.com/security", ""))
	assert.True(t, IsRelevant(policy, "https://acme.com/about", "We use encryption and are SOC 2 certified."))
	assert.False(t, IsRelevant(policy, "https://acme.com/about", "We use encryption."))

	policy.KeywordThreshold = 0
	assert.False(t, IsRelevant(policy, "https://acme.com/about", "encryption soc 2 gdpr"))
}

func TestKeywordHits(t *testing.T) {
	assert.Equal(t, 2, KeywordHits([]string{"SOC 2", "soc 2", "GDPR", "hipaa", ""}, "soc 2 and gdpr"))
}
