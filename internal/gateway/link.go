package gateway

import (
	"net/url"
	"strconv"
	"strings"
)

// ParseLinkHeader parses a GitHub Link header such as
//
//	<https://api.github.com/repositories/1/forks?page=2>; rel="next", <...?page=9>; rel="last"
//
// into a map from relation name to URL. Malformed entries are skipped.
func ParseLinkHeader(header string) map[string]string {
	links := make(map[string]string)
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(strings.TrimSpace(part), ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		target, ok := strings.CutPrefix(target, "<")
		if !ok {
			continue
		}
		target, ok = strings.CutSuffix(target, ">")
		if !ok || target == "" {
			continue
		}
		for _, param := range segments[1:] {
			key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(key) != "rel" {
				continue
			}
			// A single rel may carry several space-separated relation names.
			for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(val), `"`)) {
				links[rel] = target
			}
		}
	}
	return links
}

// PageNumber returns the value of the "page" query parameter of a pagination URL.
func PageNumber(rawURL string) (int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 0 {
		return 0, false
	}
	return page, true
}
