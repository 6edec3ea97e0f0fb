package feeds

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	baseBackoff       = 2 * time.Second
	maxBodySize       = 256 << 20 // feeds can be large, bound them anyway
)

// Fetcher downloads feed payloads with rate limiting, bounded retries and a
// last-known-good cache per URL. Retries apply to network errors and 5xx
// responses only; a 4xx is a terminal answer, not a transient fault. When
// every attempt fails, the cached copy of the previous successful fetch is
// served instead, so one flaky source does not abort a run.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	cacheDir string
	retries  int
}

// NewFetcher creates a fetcher that caches payloads under cacheDir. A zero
// rps disables rate limiting.
func NewFetcher(cacheDir string, rps float64) *Fetcher {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Fetcher{
		client:   &http.Client{Timeout: defaultTimeout},
		limiter:  limiter,
		cacheDir: cacheDir,
		retries:  defaultMaxRetries,
	}
}

// Fetch returns the payload at url, trying the network first and falling
// back to the last-known-good cache.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<(attempt-1))
			backoff += time.Duration(rand.Int63n(int64(time.Second)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, retryable, err := f.fetchOnce(ctx, url)
		if err == nil {
			if cacheErr := f.writeCache(url, body); cacheErr != nil {
				log.Printf("feeds: failed to cache %s: %v", url, cacheErr)
			}
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		log.Printf("feeds: attempt %d for %s failed: %v", attempt+1, url, err)
	}

	if cached, err := f.readCache(url); err == nil {
		log.Printf("feeds: serving cached copy of %s after fetch failure: %v", url, lastErr)
		return cached, nil
	}

	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", "cvefuse/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, true, err
	}
	return data, false, nil
}

// cachePath derives a stable filename from the URL so each feed keeps
// exactly one last-known-good copy.
func (f *Fetcher) cachePath(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:16])+".cache")
}

func (f *Fetcher) writeCache(url string, data []byte) error {
	if f.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return err
	}
	path := f.cachePath(url)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (f *Fetcher) readCache(url string) ([]byte, error) {
	if f.cacheDir == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(f.cachePath(url))
}
