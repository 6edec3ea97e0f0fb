package storage

import (
	"context"
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// SQLiteAdapter implements ports.DatasetRepository using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// VulnerabilityModel is the GORM model for fused vulnerability records.
// List fields are stored as JSON-encoded columns; exploited and
// patch_available are stored as tri-state strings so "unknown" survives the
// round trip instead of collapsing to false.
type VulnerabilityModel struct {
	CVEID          string `gorm:"column:cve_id;primaryKey"`
	Description    string
	Severity       string
	AttackVector   string
	ImpactScore    *float64
	PatchAvailable string `gorm:"column:patch_available"`
	Exploited      string
	Mitigation     string
	DateAdded      string
	VendorProject  string
	Product        string

	AffectedProducts string // JSON encoded []string
	References       string // JSON encoded []domain.Reference
	Exploits         string // JSON encoded []domain.ExploitEntry
	GitHubPoCs       string `gorm:"column:github_pocs"` // JSON encoded []domain.PoCEntry
	Sources          string // JSON encoded []string
	Provenance       string // JSON encoded map[string]string

	HasExploitPoC   bool `gorm:"column:has_exploit_poc"`
	HighUnpatched   bool
	CriticalWithPoC bool `gorm:"column:critical_with_poc"`
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&VulnerabilityModel{}); err != nil {
		return nil, err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_vulns_severity ON vulnerability_models(severity)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_vulns_patch ON vulnerability_models(patch_available)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_vulns_high_unpatched ON vulnerability_models(high_unpatched)")

	return &SQLiteAdapter{db: db}, nil
}

// SaveSnapshot upserts the full run snapshot in a single transaction. On
// conflict (cve_id), all fields are updated: the snapshot is the new truth
// for that record.
func (a *SQLiteAdapter) SaveSnapshot(ctx context.Context, records []domain.UnifiedRecord) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]VulnerabilityModel, len(records))
	for i := range records {
		models[i] = toModel(&records[i])
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
}

// GetByID retrieves a record by its canonical CVE identifier.
func (a *SQLiteAdapter) GetByID(ctx context.Context, cveID string) (*domain.UnifiedRecord, error) {
	var model VulnerabilityModel
	err := a.db.WithContext(ctx).First(&model, "cve_id = ?", cveID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomain(model), nil
}

// Count returns the number of persisted records.
func (a *SQLiteAdapter) Count(ctx context.Context) (int, error) {
	var count int64
	if err := a.db.WithContext(ctx).Model(&VulnerabilityModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// Close releases the underlying connection pool.
func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
