package feeds

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// PacketStormAdapter scrapes a PacketStorm file listing page. Each listed
// advisory becomes one source document whose RawID is the full title text;
// canonical key resolution extracts the CVE identifier from it, and titles
// naming zero or several distinct CVEs are diverted downstream.
type PacketStormAdapter struct {
	fetcher *Fetcher
	urls    []string
}

func NewPacketStormAdapter(fetcher *Fetcher, urls []string) *PacketStormAdapter {
	return &PacketStormAdapter{fetcher: fetcher, urls: urls}
}

func (a *PacketStormAdapter) Name() domain.SourceName { return domain.SourcePacketStorm }

func (a *PacketStormAdapter) Fetch(ctx context.Context) ([]domain.SourceDocument, error) {
	var docs []domain.SourceDocument
	for _, url := range a.urls {
		raw, err := a.fetcher.Fetch(ctx, url)
		if err != nil {
			return docs, fmt.Errorf("packetstorm: %w", err)
		}
		pageDocs, err := ParsePacketStorm(raw, url)
		if err != nil {
			return docs, err
		}
		docs = append(docs, pageDocs...)
	}
	return docs, nil
}

// ParsePacketStorm extracts advisory entries from a listing page. An entry
// is an anchor inside an element with id or class "files"; the anchor text
// is the advisory title.
func ParsePacketStorm(raw []byte, pageURL string) ([]domain.SourceDocument, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("packetstorm: parse page: %w", err)
	}

	var docs []domain.SourceDocument
	seen := map[string]bool{}

	var walk func(n *html.Node, inFiles bool)
	walk = func(n *html.Node, inFiles bool) {
		if n.Type == html.ElementNode {
			if attrValue(n, "id") == "files" || hasClass(n, "files") {
				inFiles = true
			}
			if inFiles && n.Data == "a" {
				title := strings.TrimSpace(nodeText(n))
				href := attrValue(n, "href")
				if title != "" && !seen[title] {
					seen[title] = true
					exploited := true
					doc := domain.SourceDocument{
						Source:         domain.SourcePacketStorm,
						RawID:          title,
						Description:    title,
						Exploited:      &exploited,
						PatchAvailable: domain.TriUnknown,
					}
					if href != "" {
						doc.References = []domain.Reference{{
							URL:    resolveHref(pageURL, href),
							Source: string(domain.SourcePacketStorm),
							Tags:   []string{"advisory"},
						}}
					}
					docs = append(docs, doc)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inFiles)
		}
	}
	walk(root, false)

	return docs, nil
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func resolveHref(pageURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base := pageURL
	if i := strings.Index(base, "://"); i >= 0 {
		if j := strings.Index(base[i+3:], "/"); j >= 0 {
			base = base[:i+3+j]
		}
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}
