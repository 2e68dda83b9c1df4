package scrape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const rulesYAML = `
sites:
  - host: amazon.com
    selectors:
      name: ["#productTitle"]
      price: [".a-price .a-offscreen"]
  - host: gearit.com
    render_js: true
    selectors:
      name: [".product__title h1"]
      price: [".price-item--sale", ".price-item--regular"]
    affiliate:
      param: aff_id
      id: USER_AFFILIATE_ID
      campaign: tech_affiliate
`

func writeRules(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesYAML), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(writeRules(t))
	require.NoError(t, err)

	rule := reg.Lookup("gearit.com")
	require.True(t, rule.RenderJS)
	require.NotNil(t, rule.Affiliate)
	require.Equal(t, "aff_id", rule.Affiliate.Param)

	rule = reg.Lookup("amazon.com")
	require.Equal(t, []string{"#productTitle"}, rule.Selectors.Name)
	require.False(t, rule.RenderJS)
}

func TestLoadRegistryEmptyPath(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)

	// Only the generic rule; any host falls through to it.
	rule := reg.Lookup("whatever.example")
	require.Nil(t, rule.Affiliate)
	require.Contains(t, rule.Selectors.Name, "h1")
}

func TestLoadRegistryRejectsMissingHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sites:\n  - render_js: true\n"), 0o644))

	_, err := LoadRegistry(path)
	require.Error(t, err)
}

func TestLookupHostMatching(t *testing.T) {
	reg, err := LoadRegistry(writeRules(t))
	require.NoError(t, err)

	tests := []struct {
		host        string
		wantGeneric bool
	}{
		{"amazon.com", false},
		{"www.amazon.com", false},
		{"smile.amazon.com", false},
		{"notamazon.com", true},
		{"amazon.com.evil.example", true},
		{"example.org", true},
	}
	for _, tt := range tests {
		rule := reg.Lookup(tt.host)
		if tt.wantGeneric {
			require.Empty(t, rule.Host, "host %s should fall back to the generic rule", tt.host)
		} else {
			require.Equal(t, "amazon.com", rule.Host, "host %s", tt.host)
		}
	}
}

func TestAffiliateURL(t *testing.T) {
	rule := &AffiliateRule{Param: "aff_id", ID: "AFF123", Campaign: "tech_affiliate"}
	got := AffiliateURL("https://www.gearit.com/products/cable?color=black", rule)

	require.Contains(t, got, "aff_id=AFF123")
	require.Contains(t, got, "utm_source=affiliate")
	require.Contains(t, got, "utm_medium=partner")
	require.Contains(t, got, "utm_campaign=tech_affiliate")
	require.Contains(t, got, "color=black")
}

func TestAffiliateURLNoRule(t *testing.T) {
	url := "https://example.com/p"
	require.Equal(t, url, AffiliateURL(url, nil))
	require.Equal(t, url, AffiliateURL(url, &AffiliateRule{}))
}
