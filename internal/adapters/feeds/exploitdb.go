package feeds

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// ExploitDBAdapter ingests the Exploit-DB files_exploits.csv index. Columns
// are resolved by header name, not position, because the upstream index has
// grown columns over the years.
type ExploitDBAdapter struct {
	fetcher *Fetcher
	url     string
}

func NewExploitDBAdapter(fetcher *Fetcher, url string) *ExploitDBAdapter {
	return &ExploitDBAdapter{fetcher: fetcher, url: url}
}

func (a *ExploitDBAdapter) Name() domain.SourceName { return domain.SourceExploitDB }

func (a *ExploitDBAdapter) Fetch(ctx context.Context) ([]domain.SourceDocument, error) {
	raw, err := a.fetcher.Fetch(ctx, a.url)
	if err != nil {
		return nil, err
	}
	return ParseExploitDB(raw)
}

// ParseExploitDB decodes the exploit index CSV. Rows without a CVE column
// value are dropped: an exploit that names no CVE cannot be fused. A row may
// list several CVEs separated by ";"; it contributes one document per CVE.
func ParseExploitDB(raw []byte) ([]domain.SourceDocument, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("exploitdb: read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["codes"]; !ok {
		if _, ok := col["cve"]; !ok {
			return nil, fmt.Errorf("exploitdb: no cve column in header %v", header)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var docs []domain.SourceDocument
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("exploitdb: read row: %w", err)
		}

		cves := field(row, "codes")
		if cves == "" {
			cves = field(row, "cve")
		}
		if cves == "" {
			continue
		}

		id := field(row, "id")
		entry := domain.ExploitEntry{
			ID:       id,
			Title:    field(row, "description"),
			Platform: field(row, "platform"),
			Type:     field(row, "type"),
			Date:     field(row, "date"),
		}
		if entry.Date == "" {
			entry.Date = field(row, "date_published")
		}
		if id != "" {
			entry.URL = "https://www.exploit-db.com/exploits/" + id
		}

		for _, cve := range strings.Split(cves, ";") {
			cve = strings.TrimSpace(cve)
			if cve == "" {
				continue
			}
			exploited := true
			docs = append(docs, domain.SourceDocument{
				Source:         domain.SourceExploitDB,
				RawID:          cve,
				Description:    entry.Title,
				Exploited:      &exploited,
				PatchAvailable: domain.TriUnknown,
				Exploits:       []domain.ExploitEntry{entry},
			})
		}
	}
	return docs, nil
}
