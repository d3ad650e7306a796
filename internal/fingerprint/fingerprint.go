// Package fingerprint provides deterministic content fingerprinting and
// the append-only dedup ledger used to skip already-harvested recipes.
// Inputs are normalized before hashing so that the same recipe expressed
// slightly differently produces the same fingerprint.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// descriptionLimit is the number of leading characters of the description
// that participate in the fingerprint.
const descriptionLimit = 200

// fieldSeparator joins the normalized inputs. The unit separator control
// character does not occur in page content.
const fieldSeparator = "\x1f"

// Generate computes the content fingerprint of a recipe page from its URL
// and cheaply available title and description. It is pure and
// deterministic: identical inputs always yield the identical hex digest.
func Generate(rawURL, title, description string) string {
	parts := []string{
		normalizeURL(rawURL),
		normalizeText(title, 0),
		normalizeText(description, descriptionLimit),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}

// normalizeURL lowercases the URL and strips its query string and
// fragment. Unparseable input falls back to string-level stripping so
// Generate stays total.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.ToLower(stripAfter(stripAfter(strings.TrimSpace(rawURL), '#'), '?'))
	}

	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""

	return strings.ToLower(parsed.String())
}

// normalizeText trims and lowercases s, truncating to limit runes when
// limit is positive.
func normalizeText(s string, limit int) string {
	out := strings.ToLower(strings.TrimSpace(s))
	if limit > 0 {
		runes := []rune(out)
		if len(runes) > limit {
			out = string(runes[:limit])
		}
	}
	return out
}

// stripAfter cuts s at the first occurrence of sep.
func stripAfter(s string, sep byte) string {
	if i := strings.IndexByte(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}
