package extract

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	urlutil "github.com/law-makers/sourcer/internal/utils/url"
)

// ParsePrice keeps only digits and decimal points from raw and parses the rest.
// Text that leaves no valid non-negative number behind is reported as a miss.
func ParsePrice(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// priceAcceptor validates price text and canonicalizes it to a plain decimal
func priceAcceptor(raw string) (string, bool) {
	v, ok := ParsePrice(raw)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// Thumbnail conventions on alicdn hosts. Both patterns apply to the last path
// segment only. This is a heuristic: a file legitimately named like
// "chart_1x2.png" is indistinguishable from a resized variant.
var (
	// O1CN01.jpg_60x60.jpg, O1CN01.jpg_.webp, O1CN01.jpg_460x460q90.jpg_.webp
	thumbVariant = regexp.MustCompile(`(?i)^(.+?\.(?:jpe?g|png|gif|webp|bmp))_[^/]*$`)
	// img_60x60.jpg, img_460x460q90.jpg
	sizeSuffix = regexp.MustCompile(`(?i)^(.+?)(?:_\d+x\d+(?:q\d+)?)+(\.(?:jpe?g|png|gif|webp|bmp))$`)
)

// StripSizeSuffix recovers the full resolution file name from a thumbnail path
func StripSizeSuffix(path string) string {
	dir, file := "", path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		dir, file = path[:i+1], path[i+1:]
	}
	if m := thumbVariant.FindStringSubmatch(file); m != nil {
		file = m[1]
	}
	if m := sizeSuffix.FindStringSubmatch(file); m != nil {
		file = m[1] + m[2]
	}
	return dir + file
}

// URLNormalizer canonicalizes asset URLs found on a page
type URLNormalizer struct {
	// Base resolves relative references; relative values are kept as-is when empty
	Base string
}

// Normalize returns the canonical form of raw, or false when raw is unusable
// (blank, a data URI placeholder, or a non-HTTP scheme). It is idempotent.
func (n URLNormalizer) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() && n.Base != "" {
		u, err = url.Parse(urlutil.ResolveURL(n.Base, raw))
		if err != nil {
			return "", false
		}
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", false
		}
		if u.Host == "" {
			return "", false
		}
	}

	// work on the escaped form so an encoded "/" stays part of the file name
	escaped := u.EscapedPath()
	if stripped := StripSizeSuffix(escaped); stripped != escaped {
		path, err := url.PathUnescape(stripped)
		if err != nil {
			return "", false
		}
		u.Path, u.RawPath = path, stripped
	}
	return u.String(), true
}

// NormalizeAssetURL normalizes raw without a base URL
func NormalizeAssetURL(raw string) (string, bool) {
	return URLNormalizer{}.Normalize(raw)
}

// URLSet is an insertion-ordered set of URLs
type URLSet struct {
	seen  map[string]struct{}
	items []string
}

// NewURLSet creates an empty set
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add inserts u and reports whether it was new
func (s *URLSet) Add(u string) bool {
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	s.items = append(s.items, u)
	return true
}

// Len returns the number of distinct URLs
func (s *URLSet) Len() int {
	return len(s.items)
}

// Items returns the URLs in insertion order; never nil
func (s *URLSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Dedupe normalizes urls and drops duplicates and unusable entries
func (n URLNormalizer) Dedupe(urls []string) []string {
	set := NewURLSet()
	for _, raw := range urls {
		if v, ok := n.Normalize(raw); ok {
			set.Add(v)
		}
	}
	return set.Items()
}
