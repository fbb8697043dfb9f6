// Package analyzer finds open tabs that show the same page.
package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/tabsieb/internal/types"
)

// NormalizeURL drops the fragment, sorts query values and trims a trailing
// slash so equivalent addresses compare equal.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	out := u.String()
	if strings.HasSuffix(out, "/") && out != u.Scheme+"://"+u.Host+"/" {
		out = strings.TrimRight(out, "/")
	}
	return out
}

// Duplicates maps the id of every tab whose normalized URL is shared with
// another tab to the ids of those other tabs, in input order.
func Duplicates(tabs []types.Tab) map[int][]int {
	byURL := make(map[string][]int)
	for _, t := range tabs {
		key := NormalizeURL(t.URL)
		byURL[key] = append(byURL[key], t.ID)
	}
	dups := make(map[int][]int)
	for _, ids := range byURL {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			others := make([]int, 0, len(ids)-1)
			for _, o := range ids {
				if o != id {
					others = append(others, o)
				}
			}
			dups[id] = others
		}
	}
	return dups
}
