package dispatch

import (
	"fmt"
	"strings"
	"unicode"

	"identitypulse/internal/identity/dispatch/elastic"
)

// identityKeywords mark an index as holding person records.
var identityKeywords = []string{"identity", "person", "individual"}

// selection is the index discovery picked.
type selection struct {
	Index    string
	Docs     int64
	Fallback bool
}

// selectIndex picks the index to search from a catalog. Indices whose name
// contains an identity keyword or the country code as a token are
// candidates and the largest wins. With no candidate the largest index
// overall is used and Fallback is set. System indices are ignored. ok is
// false when nothing is left to choose from.
func selectIndex(catalog []elastic.IndexInfo, countryCode string) (selection, bool) {
	code := strings.ToLower(countryCode)
	var best, largest *elastic.IndexInfo
	for i := range catalog {
		idx := &catalog[i]
		if idx.Name == "" || strings.HasPrefix(idx.Name, ".") {
			continue
		}
		if largest == nil || larger(idx, largest) {
			largest = idx
		}
		if matchesIdentity(idx.Name, code) && (best == nil || larger(idx, best)) {
			best = idx
		}
	}
	switch {
	case best != nil:
		return selection{Index: best.Name, Docs: best.DocsCount}, true
	case largest != nil:
		return selection{Index: largest.Name, Docs: largest.DocsCount, Fallback: true}, true
	default:
		return selection{}, false
	}
}

// larger orders by document count, then by name so the pick is stable.
func larger(a, b *elastic.IndexInfo) bool {
	if a.DocsCount != b.DocsCount {
		return a.DocsCount > b.DocsCount
	}
	return a.Name < b.Name
}

func matchesIdentity(name, code string) bool {
	lower := strings.ToLower(name)
	for _, kw := range identityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if code == "" {
		return false
	}
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if tok == code {
			return true
		}
	}
	return false
}

func fallbackWarning(index string) string {
	return fmt.Sprintf("no identity index matched, used fallback index %s", index)
}

func offlineWarning(endpoint string) string {
	return fmt.Sprintf("endpoint %s last reported offline", endpoint)
}
