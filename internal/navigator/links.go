package navigator

import (
	"net/url"
	"strings"

	"github.com/user/activity-monitor/internal/entity"
)

// Candidate is a link queued for a one-hop visit.
type Candidate struct {
	URL      string
	Text     string
	Platform string // set for external candidates
}

// ClassifyLinks splits a page's links into same-site content pages and
// recognised external event platforms, in document order and without
// duplicates. Links back to the root page are ignored.
func ClassifyLinks(root *url.URL, links []entity.Link) (internal, external []Candidate) {
	seen := map[string]bool{normalizeURL(root): true}

	for _, l := range links {
		u, err := url.Parse(l.URL)
		if err != nil || u.Host == "" {
			continue
		}
		key := normalizeURL(u)
		if seen[key] {
			continue
		}

		if label, ok := MatchPlatform(u); ok {
			seen[key] = true
			external = append(external, Candidate{URL: l.URL, Text: l.Text, Platform: label})
			continue
		}

		if !strings.EqualFold(u.Hostname(), root.Hostname()) {
			continue
		}
		if hasContentKeyword(l.Text, u) {
			seen[key] = true
			internal = append(internal, Candidate{URL: l.URL, Text: l.Text})
		}
	}
	return internal, external
}

// MatchPlatform returns the label of the external platform hosting u.
func MatchPlatform(u *url.URL) (string, bool) {
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.EscapedPath())
	for _, p := range ExternalPlatforms {
		if host != p.Domain && !strings.HasSuffix(host, "."+p.Domain) {
			continue
		}
		if p.PathPrefix != "" && !strings.HasPrefix(path, p.PathPrefix) {
			continue
		}
		return p.Label, true
	}
	return "", false
}

// hasContentKeyword looks at the link text and the URL path and query. The
// host is left out so that a facility named e.g. "news-hub" does not turn
// every link into a candidate.
func hasContentKeyword(text string, u *url.URL) bool {
	text = strings.ToLower(text)
	path := strings.ToLower(u.Path + "?" + u.RawQuery)
	for _, kw := range ContentKeywords {
		if strings.Contains(text, kw) || strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.Host = strings.ToLower(c.Host)
	c.Scheme = strings.ToLower(c.Scheme)
	s := c.String()
	return strings.TrimSuffix(s, "/")
}
