package feeds

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// pocLine is one NDJSON line of a PoC-in-GitHub dump.
type pocLine struct {
	CVEID       string `json:"cve_id"`
	URL         string `json:"url"`
	Repository  string `json:"repository"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Date        string `json:"date"`
}

// GitHubPoCAdapter ingests a PoC-in-GitHub NDJSON dump. Its documents are
// not merged during ingestion; the orchestrator hands them to the
// github-poc-link enrichment pass, which runs after the primary feeds so PoC
// links attach to already-fused records.
type GitHubPoCAdapter struct {
	fetcher *Fetcher
	url     string
}

func NewGitHubPoCAdapter(fetcher *Fetcher, url string) *GitHubPoCAdapter {
	return &GitHubPoCAdapter{fetcher: fetcher, url: url}
}

func (a *GitHubPoCAdapter) Name() domain.SourceName { return domain.SourceGitHubPoC }

func (a *GitHubPoCAdapter) Fetch(ctx context.Context) ([]domain.SourceDocument, error) {
	raw, err := a.fetcher.Fetch(ctx, a.url)
	if err != nil {
		return nil, err
	}
	return ParseGitHubPoC(raw), nil
}

// ParseGitHubPoC decodes an NDJSON dump. Malformed lines are logged and
// skipped; one broken line must not discard the rest of the corpus. Lines
// with a blank cve_id are kept: the fusion store diverts them to the
// unresolved diagnostics, which is where they belong.
func ParseGitHubPoC(raw []byte) []domain.SourceDocument {
	var docs []domain.SourceDocument

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry pocLine
		if err := json.Unmarshal(line, &entry); err != nil {
			log.Printf("githubpoc: skipping malformed line %d: %v", lineNo, err)
			continue
		}

		url := entry.URL
		if url == "" {
			url = entry.Repository
		}
		if url == "" {
			log.Printf("githubpoc: skipping line %d: no repository URL", lineNo)
			continue
		}

		docs = append(docs, domain.SourceDocument{
			Source:         domain.SourceGitHubPoC,
			RawID:          entry.CVEID,
			PatchAvailable: domain.TriUnknown,
			PoCs: []domain.PoCEntry{{
				URL:         url,
				Description: entry.Description,
				Author:      entry.Author,
				Date:        entry.Date,
			}},
		})
	}
	if err := scanner.Err(); err != nil {
		log.Printf("githubpoc: scan stopped at line %d: %v", lineNo, err)
	}
	return docs
}
