package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/urlutil"
)

const (
	maxDescriptionLen = 500
	maxTags           = 5
	maxTagLen         = 100
)

var (
	priceRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	ratingRe = regexp.MustCompile(`\d(?:\.\d)?`)
)

// Extractor turns a fetched HTML document into product fields by walking
// the selector chains of a site rule.
type Extractor struct {
	rule SiteRule
}

// NewExtractor builds an extractor for the given rule.
func NewExtractor(rule SiteRule) *Extractor {
	return &Extractor{rule: rule}
}

// Extract parses the document and pulls out the product fields. A page
// that yields neither a name nor a price is reported as
// repository.ErrParse: there is no product on it worth keeping.
func (e *Extractor) Extract(body []byte, pageURL string) (*entity.ProductData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrParse, err)
	}

	sel := e.rule.Selectors

	name := firstText(doc, sel.Name)
	priceText := firstText(doc, sel.Price)
	price, priceOK := parsePrice(priceText)

	if name == "" && !priceOK {
		return nil, fmt.Errorf("%w: no product name or price on %s", repository.ErrParse, pageURL)
	}

	data := &entity.ProductData{
		Name:  name,
		Price: price,
	}

	if orig, ok := parsePrice(firstText(doc, sel.OriginalPrice)); ok && orig > 0 {
		data.OriginalPrice = &orig
	}

	if desc := firstText(doc, sel.Description); desc != "" {
		data.Description = truncate(desc, maxDescriptionLen)
	}

	if img := firstImage(doc, sel.Image); img != "" {
		data.ImageURL = resolveURL(pageURL, img)
	}

	if rating, ok := parseRating(firstText(doc, sel.Rating)); ok {
		data.Rating = &rating
	}

	data.Tags = collectTags(doc, sel.Tags)

	return data, nil
}

// firstText walks a selector chain and returns the first non-empty match.
// Meta tags contribute their content attribute, everything else its text.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		s := doc.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		var text string
		if goquery.NodeName(s) == "meta" {
			text, _ = s.Attr("content")
		} else {
			text = s.Text()
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text
		}
	}
	return ""
}

// firstImage is firstText for image chains: img tags contribute src (or
// lazy-loading data-src), meta tags their content.
func firstImage(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		s := doc.Find(selector).First()
		if s.Length() == 0 {
			continue
		}
		var src string
		if goquery.NodeName(s) == "meta" {
			src, _ = s.Attr("content")
		} else {
			src, _ = s.Attr("src")
			if src == "" {
				src, _ = s.Attr("data-src")
			}
		}
		src = strings.TrimSpace(src)
		if src != "" {
			return src
		}
	}
	return ""
}

func collectTags(doc *goquery.Document, selectors []string) []string {
	var tags []string
	for _, selector := range selectors {
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			tag := strings.TrimSpace(s.Text())
			if tag != "" && len(tag) < maxTagLen {
				tags = append(tags, tag)
			}
			return len(tags) < maxTags
		})
		if len(tags) > 0 {
			break
		}
	}
	return tags
}

// parsePrice pulls the first numeric value out of a price string,
// tolerating currency symbols and thousands separators:
// "$1,299.99" → 1299.99.
func parsePrice(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	m := priceRe.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseRating pulls a rating like "4.5 out of 5 stars" → 4.5. Values
// outside [0, 5] are rejected as not being a star rating.
func parseRating(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	m := ratingRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}

// resolveURL makes an image reference absolute against the page URL.
// Protocol-relative and path-relative references both resolve; anything
// unparsable is returned as-is.
func resolveURL(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	abs, err := urlutil.Absolute(base, ref)
	if err != nil {
		return ref
	}
	return abs
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
