package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	DataDir string
	Addr    string
	DBPath  string
	Debug   bool

	// Output paths
	JSONLPath   string
	CSVPath     string
	SummaryPath string
	PDFPath     string

	// Feed endpoints
	NVDFeedURL      string
	KEVCatalogURL   string
	ExploitDBCSVURL string
	GitHubPoCURL    string
	PacketStormURLs []string
	VulnHubURLs     []string

	// Fetch tuning
	FetchRPS float64
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.DataDir = getEnv("CVEFUSE_DATA_DIR", getDefaultDataDir())
	cfg.Addr = getEnv("CVEFUSE_ADDR", "")
	cfg.DBPath = getEnv("CVEFUSE_DB", "")
	cfg.JSONLPath = getEnv("CVEFUSE_JSONL", "master_dataset.jsonl")
	cfg.CSVPath = getEnv("CVEFUSE_CSV", "master_dataset.csv")
	cfg.SummaryPath = getEnv("CVEFUSE_SUMMARY", "summary.csv")
	cfg.PDFPath = getEnv("CVEFUSE_PDF", "")
	cfg.NVDFeedURL = getEnv("CVEFUSE_NVD_URL", "https://nvd.nist.gov/feeds/json/cve/1.1/nvdcve-1.1-recent.json.gz")
	cfg.KEVCatalogURL = getEnv("CVEFUSE_KEV_URL", "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json")
	cfg.ExploitDBCSVURL = getEnv("CVEFUSE_EXPLOITDB_URL", "https://gitlab.com/exploit-database/exploitdb/-/raw/main/files_exploits.csv")
	cfg.GitHubPoCURL = getEnv("CVEFUSE_GITHUB_POC_URL", "")
	cfg.FetchRPS = getEnvFloat("CVEFUSE_FETCH_RPS", 2.0)

	psURLs := getEnv("CVEFUSE_PACKETSTORM_URLS", "")
	vhURLs := getEnv("CVEFUSE_VULNHUB_URLS", "")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for feed caches and outputs")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Status server address (empty to disable)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite snapshot database (empty to disable)")
	flag.StringVar(&cfg.JSONLPath, "jsonl", cfg.JSONLPath, "Master dataset JSONL output path")
	flag.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "Master dataset CSV output path")
	flag.StringVar(&cfg.SummaryPath, "summary", cfg.SummaryPath, "Triage summary CSV output path")
	flag.StringVar(&cfg.PDFPath, "pdf", cfg.PDFPath, "Run report PDF output path (empty to disable)")
	flag.StringVar(&cfg.NVDFeedURL, "nvd-url", cfg.NVDFeedURL, "NVD 1.1 JSON feed URL")
	flag.StringVar(&cfg.KEVCatalogURL, "kev-url", cfg.KEVCatalogURL, "CISA KEV catalog URL")
	flag.StringVar(&cfg.ExploitDBCSVURL, "exploitdb-url", cfg.ExploitDBCSVURL, "Exploit-DB files_exploits.csv URL")
	flag.StringVar(&cfg.GitHubPoCURL, "github-poc-url", cfg.GitHubPoCURL, "PoC-in-GitHub NDJSON dump URL (empty to disable)")
	flag.StringVar(&psURLs, "packetstorm-urls", psURLs, "PacketStorm listing page URLs (comma separated, empty to disable)")
	flag.StringVar(&vhURLs, "vulnhub-urls", vhURLs, "VulnHub listing page URLs (comma separated, empty to disable)")
	flag.Float64Var(&cfg.FetchRPS, "fetch-rps", cfg.FetchRPS, "Maximum feed requests per second")
	flag.BoolVar(&cfg.Debug, "debug", getEnvBool("CVEFUSE_DEBUG", false), "Enable verbose debug logging")

	flag.Parse()

	cfg.PacketStormURLs = parseList(psURLs)
	cfg.VulnHubURLs = parseList(vhURLs)

	// Outputs are relative to the data directory unless absolute.
	cfg.JSONLPath = resolvePath(cfg.DataDir, cfg.JSONLPath)
	cfg.CSVPath = resolvePath(cfg.DataDir, cfg.CSVPath)
	cfg.SummaryPath = resolvePath(cfg.DataDir, cfg.SummaryPath)
	cfg.PDFPath = resolvePath(cfg.DataDir, cfg.PDFPath)
	cfg.DBPath = resolvePath(cfg.DataDir, cfg.DBPath)

	return cfg
}

// CacheDir is where the fetcher keeps last-known-good feed payloads.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getDefaultDataDir returns the default data directory in the user's home.
// Creates the directory if it doesn't exist.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "."
	}

	dir := filepath.Join(home, ".cvefuse")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .cvefuse directory, using current dir: %v", err)
		return "."
	}
	return dir
}
