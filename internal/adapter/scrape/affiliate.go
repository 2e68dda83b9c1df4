package scrape

import "net/url"

// AffiliateURL decorates a product URL with the affiliate tracking of the
// matched site rule. Rules without affiliate settings leave the URL
// untouched.
func AffiliateURL(productURL string, rule *AffiliateRule) string {
	if rule == nil || rule.Param == "" || rule.ID == "" {
		return productURL
	}

	u, err := url.Parse(productURL)
	if err != nil {
		return productURL
	}

	q := u.Query()
	q.Set(rule.Param, rule.ID)
	q.Set("utm_source", "affiliate")
	q.Set("utm_medium", "partner")
	campaign := rule.Campaign
	if campaign == "" {
		campaign = "product"
	}
	q.Set("utm_campaign", campaign)
	u.RawQuery = q.Encode()

	return u.String()
}
