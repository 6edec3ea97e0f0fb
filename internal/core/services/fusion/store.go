package fusion

import (
	"sync"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// Store is the fusion store: the mapping from canonical CVE key to
// accumulated UnifiedRecord. It owns every record exclusively; readers get
// copies, enrichment passes mutate through Update/Each, and merge-in is
// serialized by the internal mutex: adapters may fetch concurrently, but
// only one mutation is in flight at a time.
type Store struct {
	mu         sync.Mutex
	records    map[string]*domain.UnifiedRecord
	order      []string // insertion order of keys, for stable materialization
	lastPri    map[string]map[domain.Field]int
	priorities PriorityTable
	unresolved []domain.SourceDocument
	stats      map[domain.SourceName]*domain.SourceStats
}

// MergeResult reports what one merge-in did.
type MergeResult struct {
	Key     string
	Merged  bool // false means the document was diverted to diagnostics
	Created bool // a new UnifiedRecord was created for the key
}

// NewStore creates an empty fusion store with the given priority table.
func NewStore(priorities PriorityTable) *Store {
	return &Store{
		records:    make(map[string]*domain.UnifiedRecord),
		lastPri:    make(map[string]map[domain.Field]int),
		priorities: priorities,
		stats:      make(map[domain.SourceName]*domain.SourceStats),
	}
}

// Merge folds one normalized document into the record for its key.
//
// The operation is idempotent: merging the same document twice leaves the
// record exactly as after the first merge. Set-valued fields are
// commutative across arrival orders; scalar fields follow the priority
// table, with equal priorities resolved most-recently-merged-wins (the
// overwrite condition is >=, not >).
//
// A document whose identifier cannot be resolved is diverted to the
// unresolved diagnostics channel and creates no record.
func (s *Store) Merge(doc domain.SourceDocument) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.sourceStats(doc.Source)

	key, ok := ResolveKey(doc.RawID)
	if !ok {
		st.Diverted++
		s.unresolved = append(s.unresolved, doc)
		return MergeResult{Merged: false}
	}

	rec, exists := s.records[key]
	if !exists {
		rec = &domain.UnifiedRecord{
			Key:            key,
			PatchAvailable: domain.TriUnknown,
			Provenance:     make(map[domain.Field]domain.SourceName),
		}
		s.records[key] = rec
		s.order = append(s.order, key)
		s.lastPri[key] = make(map[domain.Field]int)
	}

	if !rec.HasSource(doc.Source) {
		rec.Sources = append(rec.Sources, doc.Source)
	}

	last := s.lastPri[key]
	setString := func(f domain.Field, dst *string, val string) {
		if val == "" {
			return
		}
		p := s.priorities.Priority(f, doc.Source)
		if *dst == "" || p >= last[f] {
			*dst = val
			last[f] = p
			rec.Provenance[f] = doc.Source
		}
	}

	setString(domain.FieldDescription, &rec.Description, doc.Description)
	setString(domain.FieldSeverity, &rec.Severity, doc.Severity)
	setString(domain.FieldAttackVector, &rec.AttackVector, doc.AttackVector)
	setString(domain.FieldMitigation, &rec.Mitigation, doc.Mitigation)
	setString(domain.FieldDateAdded, &rec.DateAdded, doc.DateAdded)
	setString(domain.FieldVendorProject, &rec.VendorProject, doc.VendorProject)
	setString(domain.FieldProduct, &rec.Product, doc.Product)

	if doc.ImpactScore != nil {
		p := s.priorities.Priority(domain.FieldImpactScore, doc.Source)
		if rec.ImpactScore == nil || p >= last[domain.FieldImpactScore] {
			v := *doc.ImpactScore
			rec.ImpactScore = &v
			last[domain.FieldImpactScore] = p
			rec.Provenance[domain.FieldImpactScore] = doc.Source
		}
	}

	// Tri-state: only an asserted true/false participates; "unknown" (or an
	// adapter that said nothing) never overwrites a known value.
	if doc.PatchAvailable == domain.TriTrue || doc.PatchAvailable == domain.TriFalse {
		p := s.priorities.Priority(domain.FieldPatchAvailable, doc.Source)
		if rec.PatchAvailable == domain.TriUnknown || p >= last[domain.FieldPatchAvailable] {
			rec.PatchAvailable = doc.PatchAvailable
			last[domain.FieldPatchAvailable] = p
			rec.Provenance[domain.FieldPatchAvailable] = doc.Source
		}
	}

	if doc.Exploited != nil {
		p := s.priorities.Priority(domain.FieldExploited, doc.Source)
		if rec.Exploited == nil || p >= last[domain.FieldExploited] {
			v := *doc.Exploited
			rec.Exploited = &v
			last[domain.FieldExploited] = p
			rec.Provenance[domain.FieldExploited] = doc.Source
		}
	}

	rec.AffectedProducts = MergeProducts(rec.AffectedProducts, doc.AffectedProducts)
	rec.References = MergeReferences(rec.References, doc.References)
	rec.Exploits = MergeExploits(rec.Exploits, doc.Exploits)
	rec.PoCs = MergePoCs(rec.PoCs, doc.PoCs)

	st.Merged++
	return MergeResult{Key: key, Merged: true, Created: !exists}
}

// Lookup returns a copy of the record for the given key.
func (s *Store) Lookup(key string) (domain.UnifiedRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return domain.UnifiedRecord{}, false
	}
	return rec.Clone(), true
}

// Each invokes fn for every record, in insertion order of keys, under the
// store lock. Enrichment passes use it to attach additive fields in place.
func (s *Store) Each(fn func(*domain.UnifiedRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.order {
		fn(s.records[key])
	}
}

// Snapshot returns deep copies of all records in insertion order of first
// merge-in. Materializing the same store state twice yields identical input.
func (s *Store) Snapshot() []domain.UnifiedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.UnifiedRecord, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.records[key].Clone())
	}
	return out
}

// Unresolved returns the documents diverted for diagnostics: fetched but
// never merged because no canonical key could be derived.
func (s *Store) Unresolved() []domain.SourceDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SourceDocument(nil), s.unresolved...)
}

// Len returns the number of unified records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Stats returns per-source merged/diverted counters accumulated so far.
func (s *Store) Stats() map[domain.SourceName]domain.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.SourceName]domain.SourceStats, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}

func (s *Store) sourceStats(name domain.SourceName) *domain.SourceStats {
	st, ok := s.stats[name]
	if !ok {
		st = &domain.SourceStats{}
		s.stats[name] = st
	}
	return st
}
