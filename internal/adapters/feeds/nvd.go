package feeds

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// nvdFeed mirrors the NVD 1.1 JSON data feed layout, reduced to the fields
// the fusion pipeline consumes.
type nvdFeed struct {
	CVEItems []nvdItem `json:"CVE_Items"`
}

type nvdItem struct {
	CVE struct {
		CVEDataMeta struct {
			ID string `json:"ID"`
		} `json:"CVE_data_meta"`
		Description struct {
			DescriptionData []struct {
				Lang  string `json:"lang"`
				Value string `json:"value"`
			} `json:"description_data"`
		} `json:"description"`
		References struct {
			ReferenceData []struct {
				URL  string   `json:"url"`
				Name string   `json:"name"`
				Tags []string `json:"tags"`
			} `json:"reference_data"`
		} `json:"references"`
	} `json:"cve"`
	Configurations struct {
		Nodes []nvdNode `json:"nodes"`
	} `json:"configurations"`
	Impact struct {
		BaseMetricV3 struct {
			CVSSV3 struct {
				BaseScore    float64 `json:"baseScore"`
				BaseSeverity string  `json:"baseSeverity"`
				AttackVector string  `json:"attackVector"`
			} `json:"cvssV3"`
		} `json:"baseMetricV3"`
		BaseMetricV2 struct {
			Severity string `json:"severity"`
			CVSSV2   struct {
				BaseScore    float64 `json:"baseScore"`
				AccessVector string  `json:"accessVector"`
			} `json:"cvssV2"`
		} `json:"baseMetricV2"`
	} `json:"impact"`
}

type nvdNode struct {
	CPEMatch []struct {
		Vulnerable bool   `json:"vulnerable"`
		CPE23URI   string `json:"cpe23Uri"`
	} `json:"cpe_match"`
	Children []nvdNode `json:"children"`
}

// NVDAdapter ingests an NVD 1.1 JSON data feed, plain or gzip-compressed.
type NVDAdapter struct {
	fetcher *Fetcher
	url     string
}

func NewNVDAdapter(fetcher *Fetcher, url string) *NVDAdapter {
	return &NVDAdapter{fetcher: fetcher, url: url}
}

func (a *NVDAdapter) Name() domain.SourceName { return domain.SourceNVD }

func (a *NVDAdapter) Fetch(ctx context.Context) ([]domain.SourceDocument, error) {
	raw, err := a.fetcher.Fetch(ctx, a.url)
	if err != nil {
		return nil, err
	}
	return ParseNVD(raw)
}

// ParseNVD decodes a feed payload into source documents. Gzip payloads are
// detected by magic bytes so the same code handles .json and .json.gz URLs.
func ParseNVD(raw []byte) ([]domain.SourceDocument, error) {
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("nvd: gzip payload: %w", err)
		}
		defer gz.Close()
		raw, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("nvd: gzip payload: %w", err)
		}
	}

	var feed nvdFeed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("nvd: decode feed: %w", err)
	}

	docs := make([]domain.SourceDocument, 0, len(feed.CVEItems))
	for _, item := range feed.CVEItems {
		doc := domain.SourceDocument{
			Source:         domain.SourceNVD,
			RawID:          item.CVE.CVEDataMeta.ID,
			PatchAvailable: domain.TriUnknown,
		}

		for _, d := range item.CVE.Description.DescriptionData {
			if d.Lang == "en" {
				doc.Description = d.Value
				break
			}
		}

		if v3 := item.Impact.BaseMetricV3.CVSSV3; v3.BaseSeverity != "" {
			doc.Severity = strings.ToUpper(v3.BaseSeverity)
			doc.AttackVector = strings.ToUpper(v3.AttackVector)
			score := v3.BaseScore
			doc.ImpactScore = &score
		} else if v2 := item.Impact.BaseMetricV2; v2.Severity != "" {
			doc.Severity = strings.ToUpper(v2.Severity)
			doc.AttackVector = strings.ToUpper(v2.CVSSV2.AccessVector)
			score := v2.CVSSV2.BaseScore
			doc.ImpactScore = &score
		}

		for _, ref := range item.CVE.References.ReferenceData {
			if ref.URL == "" {
				continue
			}
			doc.References = append(doc.References, domain.Reference{
				URL:    ref.URL,
				Source: string(domain.SourceNVD),
				Tags:   ref.Tags,
			})
			if doc.PatchAvailable != domain.TriTrue && referenceIsPatch(ref.Name, ref.Tags) {
				doc.PatchAvailable = domain.TriTrue
			}
		}

		collectCPEs(item.Configurations.Nodes, &doc.AffectedProducts)

		docs = append(docs, doc)
	}
	return docs, nil
}

// referenceIsPatch reports whether a reference advertises a fix. The feed
// never states "no patch exists", so absence stays unknown rather than
// becoming false.
func referenceIsPatch(name string, tags []string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, "patch") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(name), "patch")
}

func collectCPEs(nodes []nvdNode, out *[]string) {
	for _, node := range nodes {
		for _, match := range node.CPEMatch {
			if match.Vulnerable && match.CPE23URI != "" {
				*out = append(*out, match.CPE23URI)
			}
		}
		collectCPEs(node.Children, out)
	}
}
