package feeds

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
	"github.com/lcalzada-xor/cvefuse/internal/core/services/fusion"
)

func newTestStore(t *testing.T) *fusion.Store {
	t.Helper()
	return fusion.NewStore(fusion.DefaultPriorities())
}

const nvdSample = `{
  "CVE_Items": [
    {
      "cve": {
        "CVE_data_meta": {"ID": "CVE-2021-44228"},
        "description": {"description_data": [
          {"lang": "es", "value": "descripcion"},
          {"lang": "en", "value": "Apache Log4j2 JNDI features do not protect against attacker controlled endpoints."}
        ]},
        "references": {"reference_data": [
          {"url": "https://logging.apache.org/log4j/2.x/security.html", "name": "security advisory", "tags": ["Vendor Advisory", "Patch"]},
          {"url": "https://example.com/writeup", "name": "writeup", "tags": []}
        ]}
      },
      "configurations": {"nodes": [
        {
          "cpe_match": [{"vulnerable": true, "cpe23Uri": "cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*"}],
          "children": [
            {"cpe_match": [
              {"vulnerable": true, "cpe23Uri": "cpe:2.3:a:apache:log4j:2.13.0:*:*:*:*:*:*:*"},
              {"vulnerable": false, "cpe23Uri": "cpe:2.3:o:linux:linux_kernel:-:*:*:*:*:*:*:*"}
            ]}
          ]
        }
      ]},
      "impact": {"baseMetricV3": {"cvssV3": {"baseScore": 10.0, "baseSeverity": "Critical", "attackVector": "Network"}}}
    },
    {
      "cve": {
        "CVE_data_meta": {"ID": "CVE-2010-0001"},
        "description": {"description_data": [{"lang": "en", "value": "Old vulnerability."}]},
        "references": {"reference_data": []}
      },
      "configurations": {"nodes": []},
      "impact": {"baseMetricV2": {"severity": "MEDIUM", "cvssV2": {"baseScore": 4.3, "accessVector": "NETWORK"}}}
    }
  ]
}`

func TestParseNVD(t *testing.T) {
	docs, err := ParseNVD([]byte(nvdSample))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	log4j := docs[0]
	assert.Equal(t, domain.SourceNVD, log4j.Source)
	assert.Equal(t, "CVE-2021-44228", log4j.RawID)
	assert.Contains(t, log4j.Description, "Apache Log4j2")
	assert.Equal(t, "CRITICAL", log4j.Severity)
	assert.Equal(t, "NETWORK", log4j.AttackVector)
	require.NotNil(t, log4j.ImpactScore)
	assert.Equal(t, 10.0, *log4j.ImpactScore)
	assert.Equal(t, domain.TriTrue, log4j.PatchAvailable, "a Patch-tagged reference means a fix exists")
	assert.Len(t, log4j.References, 2)
	assert.Equal(t, []string{
		"cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*",
		"cpe:2.3:a:apache:log4j:2.13.0:*:*:*:*:*:*:*",
	}, log4j.AffectedProducts, "nested nodes walked, non-vulnerable entries skipped")

	old := docs[1]
	assert.Equal(t, "MEDIUM", old.Severity, "v2 fallback when no v3 metric")
	require.NotNil(t, old.ImpactScore)
	assert.Equal(t, 4.3, *old.ImpactScore)
	assert.Equal(t, domain.TriUnknown, old.PatchAvailable, "no patch signal stays unknown, never false")
}

func TestParseNVDGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(nvdSample))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	docs, err := ParseNVD(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestParseKEV(t *testing.T) {
	payload := `{
	  "title": "CISA Catalog of Known Exploited Vulnerabilities",
	  "catalogVersion": "2023.01.01",
	  "vulnerabilities": [
	    {
	      "cveID": "CVE-2021-44228",
	      "vendorProject": "Apache",
	      "product": "Log4j2",
	      "vulnerabilityName": "Apache Log4j2 Remote Code Execution Vulnerability",
	      "dateAdded": "2021-12-10",
	      "shortDescription": "Apache Log4j2 contains a remote code execution vulnerability.",
	      "requiredAction": "Apply updates per vendor instructions.",
	      "dueDate": "2021-12-24"
	    }
	  ]
	}`

	docs, err := ParseKEV([]byte(payload))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, domain.SourceCISAKEV, doc.Source)
	assert.Equal(t, "CVE-2021-44228", doc.RawID)
	require.NotNil(t, doc.Exploited)
	assert.True(t, *doc.Exploited, "catalog presence is a positive exploitation signal")
	assert.Equal(t, "Apply updates per vendor instructions.", doc.Mitigation)
	assert.Equal(t, "2021-12-10", doc.DateAdded)
	assert.Equal(t, "Apache", doc.VendorProject)
	assert.Equal(t, "Log4j2", doc.Product)
	assert.Equal(t, domain.TriUnknown, doc.PatchAvailable)
}

func TestParseExploitDB(t *testing.T) {
	payload := "id,file,description,date_published,author,type,platform,port,date_added,date_updated,verified,codes\n" +
		`47120,exploits/windows/remote/47120.py,"BlueKeep RDP Remote Code Execution",2019-07-15,anon,remote,windows,3389,2019-07-15,2019-07-16,1,CVE-2019-0708` + "\n" +
		`50000,exploits/multiple/remote/50000.rb,"Unrelated local exploit",2021-06-01,anon,local,linux,,2021-06-01,2021-06-01,0,` + "\n" +
		`51000,exploits/multiple/remote/51000.py,"Chained exploit",2022-01-01,anon,remote,multiple,,2022-01-01,2022-01-01,1,CVE-2022-0001;CVE-2022-0002` + "\n"

	docs, err := ParseExploitDB([]byte(payload))
	require.NoError(t, err)
	require.Len(t, docs, 3, "one doc per named CVE, no-CVE rows dropped")

	bluekeep := docs[0]
	assert.Equal(t, "CVE-2019-0708", bluekeep.RawID)
	require.Len(t, bluekeep.Exploits, 1)
	assert.Equal(t, "47120", bluekeep.Exploits[0].ID)
	assert.Equal(t, "windows", bluekeep.Exploits[0].Platform)
	assert.Equal(t, "https://www.exploit-db.com/exploits/47120", bluekeep.Exploits[0].URL)
	require.NotNil(t, bluekeep.Exploited)
	assert.True(t, *bluekeep.Exploited)

	assert.Equal(t, "CVE-2022-0001", docs[1].RawID)
	assert.Equal(t, "CVE-2022-0002", docs[2].RawID)
	assert.Equal(t, docs[1].Exploits[0].ID, docs[2].Exploits[0].ID, "multi-CVE row shares the catalog entry")
}

func TestExploitDBDuplicateEntriesCollapseInStore(t *testing.T) {
	// The same catalog row seen twice (overlapping snapshots) must not
	// duplicate the exploit entry on the fused record.
	docs, err := ParseExploitDB([]byte(
		"id,description,date,type,platform,cve\n" +
			`47120,"BlueKeep RDP exploit",2019-07-15,remote,windows,CVE-2019-0708` + "\n" +
			`47120,"BlueKeep RDP exploit",2019-07-15,remote,windows,CVE-2019-0708` + "\n"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	store := newTestStore(t)
	for _, doc := range docs {
		store.Merge(doc)
	}
	rec, ok := store.Lookup("CVE-2019-0708")
	require.True(t, ok)
	assert.Len(t, rec.Exploits, 1, "catalog ID is the dedup identity")
}

func TestParseGitHubPoCSkipsMalformed(t *testing.T) {
	payload := `{"cve_id": "CVE-2021-44228", "url": "https://github.com/a/poc", "author": "a", "date": "2021-12-11"}
not json at all
{"cve_id": "", "url": "https://github.com/orphan/poc"}
{"cve_id": "CVE-2020-0001", "repository": "https://github.com/b/poc"}
{"cve_id": "CVE-2020-0002"}
`

	docs := ParseGitHubPoC([]byte(payload))
	require.Len(t, docs, 3, "malformed and URL-less lines skipped, blank cve_id kept for diversion")

	assert.Equal(t, "CVE-2021-44228", docs[0].RawID)
	assert.Equal(t, "https://github.com/a/poc", docs[0].PoCs[0].URL)
	assert.Equal(t, "", docs[1].RawID, "blank cve_id rides through to the store's diagnostics")
	assert.Equal(t, "https://github.com/b/poc", docs[2].PoCs[0].URL, "repository field is the URL fallback")
}

func TestParsePacketStorm(t *testing.T) {
	page := `<html><body>
	<div id="files">
	  <dl><dt><a href="/files/12345/log4shell.txt">Apache Log4j 2.x RCE (CVE-2021-44228)</a></dt></dl>
	  <dl><dt><a href="/files/12346/roundup.txt">Weekly Advisory Roundup</a></dt></dl>
	</div>
	<div class="footer"><a href="/about">About</a></div>
	</body></html>`

	docs, err := ParsePacketStorm([]byte(page), "https://packetstorm.example/files")
	require.NoError(t, err)
	require.Len(t, docs, 2, "only anchors inside the files section")

	assert.Equal(t, domain.SourcePacketStorm, docs[0].Source)
	assert.Equal(t, "Apache Log4j 2.x RCE (CVE-2021-44228)", docs[0].RawID,
		"RawID is the raw title; key extraction happens in the fusion store")
	assert.Equal(t, "https://packetstorm.example/files/12345/log4shell.txt", docs[0].References[0].URL)

	// The roundup title has no CVE: the store diverts it.
	store := newTestStore(t)
	for _, doc := range docs {
		store.Merge(doc)
	}
	assert.Equal(t, 1, store.Len())
	assert.Len(t, store.Unresolved(), 1)
}

func TestParseVulnHub(t *testing.T) {
	page := `<html><body>
	<div class="entry">
	  <h2><a href="/entry/thing-1">Some Appliance 1.2</a></h2>
	  <p>Authentication bypass, tracked as CVE-2019-12345, allows admin access.</p>
	</div>
	<div class="entry">
	  <h2>Another Box</h2>
	  <p>No identifier in this writeup.</p>
	</div>
	</body></html>`

	docs, err := ParseVulnHub([]byte(page), "https://vulnhub.example/entries")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Contains(t, docs[0].RawID, "CVE-2019-12345")
	assert.Equal(t, "https://vulnhub.example/entry/thing-1", docs[0].References[0].URL)

	store := newTestStore(t)
	for _, doc := range docs {
		store.Merge(doc)
	}
	rec, ok := store.Lookup("CVE-2019-12345")
	require.True(t, ok, "embedded key extracted from free text")
	assert.True(t, rec.HasSource(domain.SourceVulnHub))
	assert.Len(t, store.Unresolved(), 1)
}

func TestFetcherRetriesThenServesCachedCopy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 1 {
			w.Write([]byte("payload-v1"))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), 0)
	fetcher.retries = 1

	// First fetch succeeds and populates the cache.
	data, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "payload-v1", string(data))

	// Upstream now failing: the cached copy is served.
	data, err = fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "payload-v1", string(data))
	assert.GreaterOrEqual(t, calls.Load(), int32(3), "5xx responses are retried before falling back")
}

func TestFetcherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), 0)
	fetcher.retries = 3

	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "a 4xx is terminal")
}

func TestAdapterFetchEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nvdSample))
	}))
	defer srv.Close()

	adapter := NewNVDAdapter(NewFetcher(t.TempDir(), 0), srv.URL)
	assert.Equal(t, domain.SourceNVD, adapter.Name())

	docs, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
