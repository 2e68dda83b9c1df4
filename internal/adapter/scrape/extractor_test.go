package scrape

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/user/scraper-service/internal/repository"
)

const productPage = `<!DOCTYPE html>
<html>
<head>
	<title>Widget深 Store</title>
	<meta name="description" content="A very nice widget for all your widget needs.">
	<meta property="og:image" content="https://cdn.example.com/og.jpg">
</head>
<body>
	<h1 class="product-name">Super Widget 3000</h1>
	<div class="price-current">$1,299.99</div>
	<div class="original-price">$1,499.00</div>
	<div class="rating">4.5 out of 5 stars</div>
	<div class="product-image"><img src="/images/widget.jpg"></div>
	<ul class="key-features">
		<li>Titanium body</li>
		<li>Self-sharpening</li>
	</ul>
</body>
</html>`

func TestExtractFullProduct(t *testing.T) {
	e := NewExtractor(genericRule())
	data, err := e.Extract([]byte(productPage), "https://shop.example.com/widgets/3000")
	require.NoError(t, err)

	require.Equal(t, "Super Widget 3000", data.Name)
	require.Equal(t, 1299.99, data.Price)
	require.NotNil(t, data.OriginalPrice)
	require.Equal(t, 1499.00, *data.OriginalPrice)
	require.Equal(t, "A very nice widget for all your widget needs.", data.Description)
	require.Equal(t, "https://shop.example.com/images/widget.jpg", data.ImageURL)
	require.NotNil(t, data.Rating)
	require.Equal(t, 4.5, *data.Rating)
	require.Equal(t, []string{"Titanium body", "Self-sharpening"}, data.Tags)
}

func TestExtractMetaFallbacks(t *testing.T) {
	page := `<html><head>
		<meta property="og:title" content="Fallback Widget">
		<meta property="product:price:amount" content="49.90">
		<meta property="og:image" content="//cdn.example.com/w.jpg">
	</head><body><p>nothing structured here</p></body></html>`

	e := NewExtractor(genericRule())
	data, err := e.Extract([]byte(page), "https://example.com/p")
	require.NoError(t, err)
	require.Equal(t, "Fallback Widget", data.Name)
	require.Equal(t, 49.90, data.Price)
	require.Equal(t, "https://cdn.example.com/w.jpg", data.ImageURL)
}

func TestExtractNoProductIsParseError(t *testing.T) {
	page := `<html><body><p>just a blog post, nothing for sale</p></body></html>`

	e := NewExtractor(genericRule())
	_, err := e.Extract([]byte(page), "https://example.com/blog")
	require.True(t, errors.Is(err, repository.ErrParse), "got %v", err)
}

func TestExtractCustomRule(t *testing.T) {
	page := `<html><body>
		<span class="gadget-label">Odd Gadget</span>
		<span class="gadget-cost">€89.00</span>
	</body></html>`

	rule := SiteRule{
		Host: "gadgets.example",
		Selectors: SelectorChains{
			Name:  []string{".gadget-label"},
			Price: []string{".gadget-cost"},
		},
	}
	data, err := NewExtractor(rule).Extract([]byte(page), "https://gadgets.example/odd")
	require.NoError(t, err)
	require.Equal(t, "Odd Gadget", data.Name)
	require.Equal(t, 89.0, data.Price)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$19.99", 19.99, true},
		{"£1,299.00", 1299.00, true},
		{"Now only 5", 5, true},
		{"", 0, false},
		{"call for price", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePrice(tt.in)
		require.Equal(t, tt.ok, ok, "parsePrice(%q)", tt.in)
		require.Equal(t, tt.want, got, "parsePrice(%q)", tt.in)
	}
}

func TestParseRatingRejectsOutOfRange(t *testing.T) {
	_, ok := parseRating("9 reviews")
	require.False(t, ok)

	got, ok := parseRating("4.2")
	require.True(t, ok)
	require.Equal(t, 4.2, got)
}

func TestExtractTruncatesDescription(t *testing.T) {
	long := make([]byte, 0, 700)
	for i := 0; i < 700; i++ {
		long = append(long, 'a')
	}
	page := `<html><body><h1>X</h1><div class="price">$1</div><div class="description">` + string(long) + `</div></body></html>`

	data, err := NewExtractor(genericRule()).Extract([]byte(page), "https://example.com/p")
	require.NoError(t, err)
	require.Len(t, data.Description, maxDescriptionLen)
}

func TestExtractTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte runes straddling the cut must not leave invalid UTF-8.
	long := strings.Repeat("世", 400) // 3 bytes each; the cut lands mid-rune
	page := `<html><body><h1>X</h1><div class="price">$1</div><div class="description">` + long + `</div></body></html>`

	data, err := NewExtractor(genericRule()).Extract([]byte(page), "https://example.com/p")
	require.NoError(t, err)
	require.True(t, utf8.ValidString(data.Description))
	require.LessOrEqual(t, len(data.Description), maxDescriptionLen)
}
