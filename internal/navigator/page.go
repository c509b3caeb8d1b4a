package navigator

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/user/activity-monitor/internal/entity"
)

// ParsePage parses rendered HTML into a RawPage. Links and advertised feeds
// are read from the whole document; visible text is read after boilerplate
// elements are removed.
func ParsePage(pageURL, htmlContent string) (*entity.RawPage, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &entity.RawPage{
		URL:   pageURL,
		Links: []entity.Link{},
	}

	// Extract feeds
	doc.Find(`link[rel="alternate"]`).Each(func(i int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		typ = strings.ToLower(typ)
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") {
			return
		}
		href, _ := s.Attr("href")
		if abs, ok := absoluteHTTP(base, href); ok {
			page.Feeds = append(page.Feeds, abs)
		}
	})

	// Extract links
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := absoluteHTTP(base, href)
		if !ok || seen[abs] {
			return
		}
		seen[abs] = true

		text := collapseSpaces(s.Text())
		if text == "" {
			if label, ok := s.Attr("aria-label"); ok {
				text = collapseSpaces(label)
			} else if title, ok := s.Attr("title"); ok {
				text = collapseSpaces(title)
			}
		}
		page.Links = append(page.Links, entity.Link{URL: abs, Text: text})
	})

	doc.Find(boilerplateSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var b strings.Builder
	for _, n := range root.Nodes {
		writeVisibleText(&b, n)
	}
	page.Text = normalizeLines(b.String())

	return page, nil
}

// writeVisibleText approximates innerText: block elements start new lines,
// table cells are space separated.
func writeVisibleText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		writeText(b, n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisibleText(b, c)
	}
	if n.Type != html.ElementNode {
		return
	}
	switch {
	case blockElements[n.Data]:
		b.WriteByte('\n')
	case n.Data == "td" || n.Data == "th":
		b.WriteByte(' ')
	}
}

// writeText keeps a single space where the source had whitespace at a node
// boundary, so inline markup neither merges nor splits words.
func writeText(b *strings.Builder, s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			b.WriteByte(' ')
		}
		return
	}
	if strings.TrimLeftFunc(s, unicode.IsSpace) != s {
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(fields, " "))
	if strings.TrimRightFunc(s, unicode.IsSpace) != s {
		b.WriteByte(' ')
	}
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = collapseSpaces(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// absoluteHTTP resolves href against base and keeps only http(s) targets,
// without fragments.
func absoluteHTTP(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}
