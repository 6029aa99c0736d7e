package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// CanonicalizeURL normalizes scheme and host and strips the configured
// tracking query parameters. The result is stable under repeated
// canonicalization: CanonicalizeURL(CanonicalizeURL(u)) == CanonicalizeURL(u).
func CanonicalizeURL(raw string, stripParams []string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		strip := make(map[string]struct{}, len(stripParams))
		for _, p := range stripParams {
			strip[strings.ToLower(p)] = struct{}{}
		}

		q := u.Query()
		for key := range q {
			if _, ok := strip[strings.ToLower(key)]; ok {
				q.Del(key)
			}
		}

		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := url.Values{}
		for _, k := range keys {
			for _, v := range q[k] {
				values.Add(k, v)
			}
		}
		u.RawQuery = values.Encode()
	}

	// Drop a single trailing slash on the path so "/x" and "/x/" canonicalize
	// to the same value, but never touch the bare root "/".
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// ContentHash computes a SHA-256 hex digest over a canonicalized subset of
// an item's fields. Field order is fixed so the hash is stable across runs
// for unchanged content regardless of map iteration order upstream.
func ContentHash(title, canonicalURL, publishedAt string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(canonicalURL))
	h.Write([]byte{0})
	h.Write([]byte(publishedAt))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeTitleKey lowercases, collapses whitespace, and strips
// punctuation from a title for use as a fallback grouping key.
func NormalizeTitleKey(title string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasSpace = false
		case r == ' ' || r == '\t' || r == '\n' || r == '-' || r == '_':
			if !lastWasSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastWasSpace = true
		default:
			// punctuation: drop entirely
		}
	}
	return strings.TrimSpace(b.String())
}

// FallbackKeyHash computes the SHA-256 hex digest of a normalized title key,
// used to build the "fallback:<hash>" story ID precedence tier.
func FallbackKeyHash(normalizedTitle string) string {
	sum := sha256.Sum256([]byte(normalizedTitle))
	return hex.EncodeToString(sum[:])
}
