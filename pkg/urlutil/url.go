package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// ErrInvalidURL is returned by Normalize for malformed input or any
// scheme other than http/https.
var ErrInvalidURL = errors.New("invalid url")

// trackingParams are query parameters that identify campaigns and clicks,
// not resources. They are stripped so that two shares of the same page
// deduplicate to one queue entry.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"gclsrc":       {},
	"dclid":        {},
	"msclkid":      {},
	"ref":          {},
	"ref_src":      {},
}

// Normalize canonicalizes a raw URL into the deduplication key: lowercased
// scheme and host, default port removed, user info and fragment dropped,
// tracking parameters stripped, remaining query sorted, path cleaned and
// the trailing slash removed. The scheme is preserved, never upgraded.
// Deterministic and pure.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	u.Scheme = scheme
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host

	if u.RawQuery != "" {
		u.RawQuery = filteredQuery(u.Query())
	}

	if u.Path != "" {
		cleaned := path.Clean(u.Path)
		if cleaned == "/" || cleaned == "." {
			cleaned = ""
		}
		u.Path = cleaned
		u.RawPath = ""
	}

	return u.String(), nil
}

// filteredQuery drops tracking parameters and re-encodes the rest with
// keys and values in sorted order.
func filteredQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if _, drop := trackingParams[strings.ToLower(k)]; drop {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Hash creates a SHA256 hash of a normalized URL string, used as the
// seen-index key in Redis.
func Hash(normalizedURL string) string {
	h := sha256.New()
	h.Write([]byte(normalizedURL))
	return hex.EncodeToString(h.Sum(nil))
}

// Host returns the bare host of a URL with any www. prefix removed, used
// as the product source and as a metrics label. Returns "" for unparsable
// input.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Absolute converts a possibly relative reference to an absolute URL
// against the given base.
func Absolute(base *url.URL, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(refURL).String(), nil
}
