package domain

// SourceName identifies an upstream vulnerability feed.
type SourceName string

const (
	SourceNVD         SourceName = "NVD"
	SourceCISAKEV     SourceName = "CISA-KEV"
	SourceExploitDB   SourceName = "ExploitDB"
	SourceGitHubPoC   SourceName = "GitHub-PoC"
	SourcePacketStorm SourceName = "PacketStorm"
	SourceVulnHub     SourceName = "VulnHub"
)

// TriState represents a boolean whose absence is meaningful. A feed that
// never mentions patch availability must not be reported as "false".
type TriState string

const (
	TriTrue    TriState = "true"
	TriFalse   TriState = "false"
	TriUnknown TriState = "unknown"
)

// Field names a scalar field subject to source-priority resolution.
type Field string

const (
	FieldDescription    Field = "description"
	FieldSeverity       Field = "severity"
	FieldAttackVector   Field = "attack_vector"
	FieldImpactScore    Field = "impact_score"
	FieldPatchAvailable Field = "patch_available"
	FieldExploited      Field = "exploited"
	FieldMitigation     Field = "mitigation"
	FieldDateAdded      Field = "date_added"
	FieldVendorProject  Field = "vendor_project"
	FieldProduct        Field = "product"
)

// Reference is an advisory, patch or exploit link reported by a feed.
// References are deduplicated by URL during fusion.
type Reference struct {
	URL    string   `json:"url"`
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// ExploitEntry is one row of a public exploit catalog (e.g. Exploit-DB).
// Entries are deduplicated by catalog ID during fusion.
type ExploitEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Platform string `json:"platform,omitempty"`
	Type     string `json:"type,omitempty"`
	Date     string `json:"date,omitempty"`
	URL      string `json:"url,omitempty"`
}

// PoCEntry is a proof-of-concept repository link (e.g. PoC-in-GitHub).
// Entries are deduplicated by URL during fusion.
type PoCEntry struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Date        string `json:"date,omitempty"`
}

// SourceDocument is one normalized unit of data from one upstream feed,
// pre-fusion. It is immutable once constructed: adapters build it, the
// fusion store reads it, nobody mutates it.
//
// Scalar absence is encoded as the zero value ("" / nil / empty TriState);
// absent values never overwrite known ones during merge.
type SourceDocument struct {
	Source SourceName
	// RawID is the identifier exactly as the feed reported it, possibly
	// embedded in free text (scrape titles, descriptions). The canonical
	// key resolver owns its normalization.
	RawID string

	Description    string
	Severity       string
	AttackVector   string
	ImpactScore    *float64
	PatchAvailable TriState
	Exploited      *bool
	Mitigation     string
	DateAdded      string
	VendorProject  string
	Product        string

	AffectedProducts []string
	References       []Reference
	Exploits         []ExploitEntry
	PoCs             []PoCEntry
}

// UnifiedRecord is the fused, multi-source view of a single vulnerability.
// Its identity is the canonical CVE key; everything else is accumulated
// from SourceDocuments and enrichment passes.
type UnifiedRecord struct {
	Key string `json:"cve_id"`

	Description    string   `json:"description"`
	Severity       string   `json:"severity"`
	AttackVector   string   `json:"attack_vector"`
	ImpactScore    *float64 `json:"impact_score"`
	PatchAvailable TriState `json:"patch_available"`
	Exploited      *bool    `json:"exploited"`
	Mitigation     string   `json:"mitigation"`
	DateAdded      string   `json:"date_added"`
	VendorProject  string   `json:"vendor_project"`
	Product        string   `json:"product"`

	AffectedProducts []string       `json:"affected_products"`
	References       []Reference    `json:"references"`
	Exploits         []ExploitEntry `json:"exploits"`
	PoCs             []PoCEntry     `json:"github_pocs"`

	// Sources lists every feed that contributed, in first-contribution
	// order, without duplicates. It never shrinks.
	Sources []SourceName `json:"sources"`

	// Flags derived by enrichment passes. Additive only.
	HasExploitPoC   bool `json:"has_exploit_poc"`
	HighUnpatched   bool `json:"high_unpatched"`
	CriticalWithPoC bool `json:"critical_with_poc"`

	// Provenance records which source last set each scalar field.
	Provenance map[Field]SourceName `json:"provenance"`
}

// HasSource reports whether the given feed already contributed to this record.
func (r *UnifiedRecord) HasSource(s SourceName) bool {
	for _, existing := range r.Sources {
		if existing == s {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so snapshots handed out by the fusion store
// cannot alias its internal state.
func (r *UnifiedRecord) Clone() UnifiedRecord {
	out := *r

	if r.ImpactScore != nil {
		v := *r.ImpactScore
		out.ImpactScore = &v
	}
	if r.Exploited != nil {
		v := *r.Exploited
		out.Exploited = &v
	}

	out.AffectedProducts = append([]string(nil), r.AffectedProducts...)
	out.Sources = append([]SourceName(nil), r.Sources...)
	out.Exploits = append([]ExploitEntry(nil), r.Exploits...)
	out.PoCs = append([]PoCEntry(nil), r.PoCs...)

	if r.References != nil {
		out.References = make([]Reference, len(r.References))
		for i, ref := range r.References {
			out.References[i] = ref
			out.References[i].Tags = append([]string(nil), ref.Tags...)
		}
	}

	if r.Provenance != nil {
		out.Provenance = make(map[Field]SourceName, len(r.Provenance))
		for k, v := range r.Provenance {
			out.Provenance[k] = v
		}
	}

	return out
}
