package feeds

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// VulnHubAdapter scrapes VulnHub-style entry listings. Entries carry a
// free-text description; the CVE identifier is embedded somewhere in that
// text, so the description itself is the RawID and canonical key resolution
// does the extraction.
type VulnHubAdapter struct {
	fetcher *Fetcher
	urls    []string
}

func NewVulnHubAdapter(fetcher *Fetcher, urls []string) *VulnHubAdapter {
	return &VulnHubAdapter{fetcher: fetcher, urls: urls}
}

func (a *VulnHubAdapter) Name() domain.SourceName { return domain.SourceVulnHub }

func (a *VulnHubAdapter) Fetch(ctx context.Context) ([]domain.SourceDocument, error) {
	var docs []domain.SourceDocument
	for _, url := range a.urls {
		raw, err := a.fetcher.Fetch(ctx, url)
		if err != nil {
			return docs, fmt.Errorf("vulnhub: %w", err)
		}
		pageDocs, err := ParseVulnHub(raw, url)
		if err != nil {
			return docs, err
		}
		docs = append(docs, pageDocs...)
	}
	return docs, nil
}

// ParseVulnHub extracts entries from a listing page. An entry is an element
// carrying class "entry" or "vulnerability"; its heading becomes the title
// and the concatenated text becomes the description.
func ParseVulnHub(raw []byte, pageURL string) ([]domain.SourceDocument, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("vulnhub: parse page: %w", err)
	}

	var docs []domain.SourceDocument
	seen := map[string]bool{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (hasClass(n, "entry") || hasClass(n, "vulnerability")) {
			text := strings.Join(strings.Fields(nodeText(n)), " ")
			if text != "" && !seen[text] {
				seen[text] = true
				doc := domain.SourceDocument{
					Source:         domain.SourceVulnHub,
					RawID:          text,
					Description:    text,
					PatchAvailable: domain.TriUnknown,
				}
				if href := firstHref(n); href != "" {
					doc.References = []domain.Reference{{
						URL:    resolveHref(pageURL, href),
						Source: string(domain.SourceVulnHub),
						Tags:   []string{"writeup"},
					}}
				}
				docs = append(docs, doc)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return docs, nil
}

func firstHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		if href := attrValue(n, "href"); href != "" {
			return href
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := firstHref(c); href != "" {
			return href
		}
	}
	return ""
}
