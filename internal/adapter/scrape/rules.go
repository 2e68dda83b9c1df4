package scrape

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SelectorChains holds the per-field CSS selector chains of a site rule.
// For each field the first selector that matches wins.
type SelectorChains struct {
	Name          []string `yaml:"name"`
	Price         []string `yaml:"price"`
	OriginalPrice []string `yaml:"original_price"`
	Description   []string `yaml:"description"`
	Image         []string `yaml:"image"`
	Rating        []string `yaml:"rating"`
	Tags          []string `yaml:"tags"`
}

// AffiliateRule describes how to decorate a product URL with the user's
// affiliate tracking for this site.
type AffiliateRule struct {
	Param    string `yaml:"param"`
	ID       string `yaml:"id"`
	Campaign string `yaml:"campaign"`
}

// SiteRule binds a host pattern to its extraction behavior.
type SiteRule struct {
	Host      string         `yaml:"host"` // suffix match, e.g. "amazon.com"
	RenderJS  bool           `yaml:"render_js"`
	Selectors SelectorChains `yaml:"selectors"`
	Affiliate *AffiliateRule `yaml:"affiliate"`
}

// Registry resolves the extraction rule for a host. Rules are checked in
// file order; the first whose host pattern matches wins, otherwise the
// generic rule applies.
type Registry struct {
	rules   []SiteRule
	generic SiteRule
}

type rulesFile struct {
	Sites []SiteRule `yaml:"sites"`
}

// NewRegistry builds a registry over the given rules.
func NewRegistry(rules []SiteRule) *Registry {
	return &Registry{rules: rules, generic: genericRule()}
}

// LoadRegistry reads site rules from a YAML file. An empty path yields a
// registry with only the generic rule.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site rules %s: %w", path, err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing site rules %s: %w", path, err)
	}
	for i, r := range f.Sites {
		if r.Host == "" {
			return nil, fmt.Errorf("site rules %s: rule %d has no host", path, i)
		}
	}
	return NewRegistry(f.Sites), nil
}

// Lookup returns the rule for a host, falling back to the generic rule.
func (r *Registry) Lookup(host string) SiteRule {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, rule := range r.rules {
		if hostMatches(host, rule.Host) {
			return rule
		}
	}
	return r.generic
}

// hostMatches reports whether host equals the pattern or is a subdomain
// of it. "shop.amazon.com" matches "amazon.com"; "notamazon.com" does not.
func hostMatches(host, pattern string) bool {
	pattern = strings.ToLower(pattern)
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

// genericRule carries the selector chains that work across most
// storefronts: common product-title and price classes with meta-tag
// fallbacks.
func genericRule() SiteRule {
	return SiteRule{
		Selectors: SelectorChains{
			Name: []string{
				`h1[data-automation-id="product-title"]`,
				"h1.x-item-title-label",
				".product-title h1",
				"h1.product-name",
				"h1.pdp-product-name",
				"h1",
				".title",
				`meta[property="og:title"]`,
			},
			Price: []string{
				".price-current",
				".price .current",
				".price-now",
				".current-price",
				".sale-price",
				`[data-testid="price"]`,
				".price",
				`meta[property="product:price:amount"]`,
			},
			OriginalPrice: []string{
				".price-was",
				".original-price",
				".list-price",
				"s.price",
				"del",
			},
			Description: []string{
				".product-description",
				".description",
				".product-details",
				".overview",
				`meta[name="description"]`,
				`meta[property="og:description"]`,
			},
			Image: []string{
				".product-image img",
				".main-image img",
				".hero-image img",
				`img[data-testid="product-image"]`,
				`meta[property="og:image"]`,
			},
			Rating: []string{
				`[data-testid="rating"]`,
				".rating",
				".stars",
				".review-rating",
			},
			Tags: []string{
				".product-features li",
				".specifications li",
				".key-features li",
				".features li",
			},
		},
	}
}
