package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

func testRecord() domain.UnifiedRecord {
	score := 9.8
	exploited := true
	return domain.UnifiedRecord{
		Key:            "CVE-2021-44228",
		Description:    "Log4Shell",
		Severity:       "CRITICAL",
		AttackVector:   "NETWORK",
		ImpactScore:    &score,
		PatchAvailable: domain.TriTrue,
		Exploited:      &exploited,
		Mitigation:     "Apply updates per vendor instructions.",
		DateAdded:      "2021-12-10",
		VendorProject:  "Apache",
		Product:        "Log4j2",
		AffectedProducts: []string{
			"cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*",
		},
		References: []domain.Reference{
			{URL: "https://logging.apache.org/log4j/2.x/security.html", Source: "NVD", Tags: []string{"Patch"}},
		},
		Exploits: []domain.ExploitEntry{
			{ID: "50592", Title: "Log4Shell RCE", Platform: "java", URL: "https://www.exploit-db.com/exploits/50592"},
		},
		PoCs: []domain.PoCEntry{
			{URL: "https://github.com/a/poc", Author: "a"},
		},
		Sources:         []domain.SourceName{domain.SourceNVD, domain.SourceCISAKEV},
		HasExploitPoC:   true,
		CriticalWithPoC: true,
		Provenance: map[domain.Field]domain.SourceName{
			domain.FieldDescription: domain.SourceNVD,
			domain.FieldExploited:   domain.SourceCISAKEV,
		},
	}
}

func newTestAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	adapter, err := NewSQLiteAdapter(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	rec := testRecord()
	require.NoError(t, adapter.SaveSnapshot(ctx, []domain.UnifiedRecord{rec}))

	got, err := adapter.GetByID(ctx, "CVE-2021-44228")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, rec.Key, got.Key)
	assert.Equal(t, rec.Description, got.Description)
	assert.Equal(t, rec.Severity, got.Severity)
	require.NotNil(t, got.ImpactScore)
	assert.Equal(t, 9.8, *got.ImpactScore)
	assert.Equal(t, domain.TriTrue, got.PatchAvailable)
	require.NotNil(t, got.Exploited)
	assert.True(t, *got.Exploited)
	assert.Equal(t, rec.AffectedProducts, got.AffectedProducts)
	assert.Equal(t, rec.References, got.References)
	assert.Equal(t, rec.Exploits, got.Exploits)
	assert.Equal(t, rec.PoCs, got.PoCs)
	assert.Equal(t, rec.Sources, got.Sources)
	assert.Equal(t, rec.Provenance, got.Provenance)
	assert.True(t, got.HasExploitPoC)
	assert.True(t, got.CriticalWithPoC)
}

func TestSaveSnapshotTriStateSurvives(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	sparse := domain.UnifiedRecord{Key: "CVE-2020-0001"}
	require.NoError(t, adapter.SaveSnapshot(ctx, []domain.UnifiedRecord{sparse}))

	got, err := adapter.GetByID(ctx, "CVE-2020-0001")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, domain.TriUnknown, got.PatchAvailable, "unknown must not collapse to false in storage")
	assert.Nil(t, got.Exploited, "unasserted exploited must come back nil")
}

func TestSaveSnapshotUpsertIdempotent(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	rec := testRecord()
	require.NoError(t, adapter.SaveSnapshot(ctx, []domain.UnifiedRecord{rec}))
	require.NoError(t, adapter.SaveSnapshot(ctx, []domain.UnifiedRecord{rec}))

	count, err := adapter.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A changed snapshot replaces the stored row.
	rec.Severity = "HIGH"
	rec.HighUnpatched = true
	require.NoError(t, adapter.SaveSnapshot(ctx, []domain.UnifiedRecord{rec}))

	got, err := adapter.GetByID(ctx, rec.Key)
	require.NoError(t, err)
	assert.Equal(t, "HIGH", got.Severity)
	assert.True(t, got.HighUnpatched)
}

func TestGetByIDMissing(t *testing.T) {
	adapter := newTestAdapter(t)

	got, err := adapter.GetByID(context.Background(), "CVE-1999-0001")
	require.NoError(t, err)
	assert.Nil(t, got)
}
