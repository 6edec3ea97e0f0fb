package feeds

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// kevCatalog mirrors the CISA Known Exploited Vulnerabilities catalog JSON.
type kevCatalog struct {
	Title           string `json:"title"`
	CatalogVersion  string `json:"catalogVersion"`
	Vulnerabilities []struct {
		CVEID             string `json:"cveID"`
		VendorProject     string `json:"vendorProject"`
		Product           string `json:"product"`
		VulnerabilityName string `json:"vulnerabilityName"`
		DateAdded         string `json:"dateAdded"`
		ShortDescription  string `json:"shortDescription"`
		RequiredAction    string `json:"requiredAction"`
		DueDate           string `json:"dueDate"`
		Notes             string `json:"notes"`
	} `json:"vulnerabilities"`
}

// KEVAdapter ingests the CISA KEV catalog. Presence in the catalog is a
// positive exploitation signal, so every document carries exploited=true.
type KEVAdapter struct {
	fetcher *Fetcher
	url     string
}

func NewKEVAdapter(fetcher *Fetcher, url string) *KEVAdapter {
	return &KEVAdapter{fetcher: fetcher, url: url}
}

func (a *KEVAdapter) Name() domain.SourceName { return domain.SourceCISAKEV }

func (a *KEVAdapter) Fetch(ctx context.Context) ([]domain.SourceDocument, error) {
	raw, err := a.fetcher.Fetch(ctx, a.url)
	if err != nil {
		return nil, err
	}
	return ParseKEV(raw)
}

// ParseKEV decodes a KEV catalog payload into source documents.
func ParseKEV(raw []byte) ([]domain.SourceDocument, error) {
	var catalog kevCatalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("kev: decode catalog: %w", err)
	}

	docs := make([]domain.SourceDocument, 0, len(catalog.Vulnerabilities))
	for _, v := range catalog.Vulnerabilities {
		exploited := true
		doc := domain.SourceDocument{
			Source:         domain.SourceCISAKEV,
			RawID:          v.CVEID,
			Description:    v.ShortDescription,
			Exploited:      &exploited,
			Mitigation:     v.RequiredAction,
			DateAdded:      v.DateAdded,
			VendorProject:  v.VendorProject,
			Product:        v.Product,
			PatchAvailable: domain.TriUnknown,
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
