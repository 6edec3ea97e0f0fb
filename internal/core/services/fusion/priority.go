package fusion

import "github.com/lcalzada-xor/cvefuse/internal/core/domain"

// PriorityTable maps (field, source) to an integer priority. A scalar field
// is overwritten only when the incoming source's priority for that field is
// greater than or equal to the priority of the source that last set it.
//
// The table is configuration, not logic: a new feed is onboarded by adding
// its rows here, never by branching inside the merge path.
type PriorityTable map[domain.Field]map[domain.SourceName]int

// Priority returns the configured priority, defaulting to 0 for any
// (field, source) pair without a row.
func (t PriorityTable) Priority(f domain.Field, s domain.SourceName) int {
	if m, ok := t[f]; ok {
		return m[s]
	}
	return 0
}

// DefaultPriorities encodes the trust ordering of the known feeds:
// NVD is authoritative for descriptive and scoring fields, CISA KEV for
// exploitation status and remediation metadata, catalog and scraped feeds
// rank below both.
func DefaultPriorities() PriorityTable {
	return PriorityTable{
		domain.FieldDescription: {
			domain.SourceNVD:         100,
			domain.SourceCISAKEV:     60,
			domain.SourceExploitDB:   40,
			domain.SourceGitHubPoC:   30,
			domain.SourcePacketStorm: 20,
			domain.SourceVulnHub:     20,
		},
		domain.FieldSeverity: {
			domain.SourceNVD:     100,
			domain.SourceCISAKEV: 60,
		},
		domain.FieldAttackVector: {
			domain.SourceNVD: 100,
		},
		domain.FieldImpactScore: {
			domain.SourceNVD: 100,
		},
		domain.FieldPatchAvailable: {
			domain.SourceNVD:     100,
			domain.SourceCISAKEV: 80,
		},
		domain.FieldExploited: {
			domain.SourceCISAKEV:     100,
			domain.SourceExploitDB:   60,
			domain.SourceGitHubPoC:   50,
			domain.SourcePacketStorm: 40,
		},
		domain.FieldMitigation: {
			domain.SourceCISAKEV: 100,
		},
		domain.FieldDateAdded: {
			domain.SourceCISAKEV: 100,
		},
		domain.FieldVendorProject: {
			domain.SourceCISAKEV: 100,
		},
		domain.FieldProduct: {
			domain.SourceCISAKEV: 100,
		},
	}
}
