package storage

import (
	"encoding/json"

	"github.com/lcalzada-xor/cvefuse/internal/core/domain"
)

// toModel converts a fused record to a database model.
func toModel(r *domain.UnifiedRecord) VulnerabilityModel {
	model := VulnerabilityModel{
		CVEID:           r.Key,
		Description:     r.Description,
		Severity:        r.Severity,
		AttackVector:    r.AttackVector,
		Mitigation:      r.Mitigation,
		DateAdded:       r.DateAdded,
		VendorProject:   r.VendorProject,
		Product:         r.Product,
		HasExploitPoC:   r.HasExploitPoC,
		HighUnpatched:   r.HighUnpatched,
		CriticalWithPoC: r.CriticalWithPoC,
	}

	if r.ImpactScore != nil {
		v := *r.ImpactScore
		model.ImpactScore = &v
	}

	model.PatchAvailable = string(r.PatchAvailable)
	if model.PatchAvailable == "" {
		model.PatchAvailable = string(domain.TriUnknown)
	}

	switch {
	case r.Exploited == nil:
		model.Exploited = string(domain.TriUnknown)
	case *r.Exploited:
		model.Exploited = string(domain.TriTrue)
	default:
		model.Exploited = string(domain.TriFalse)
	}

	model.AffectedProducts = encodeJSON(r.AffectedProducts)
	model.References = encodeJSON(r.References)
	model.Exploits = encodeJSON(r.Exploits)
	model.GitHubPoCs = encodeJSON(r.PoCs)
	model.Sources = encodeJSON(r.Sources)
	model.Provenance = encodeJSON(r.Provenance)

	return model
}

// toDomain converts a database model back to a fused record.
func toDomain(m VulnerabilityModel) *domain.UnifiedRecord {
	rec := &domain.UnifiedRecord{
		Key:             m.CVEID,
		Description:     m.Description,
		Severity:        m.Severity,
		AttackVector:    m.AttackVector,
		Mitigation:      m.Mitigation,
		DateAdded:       m.DateAdded,
		VendorProject:   m.VendorProject,
		Product:         m.Product,
		HasExploitPoC:   m.HasExploitPoC,
		HighUnpatched:   m.HighUnpatched,
		CriticalWithPoC: m.CriticalWithPoC,
	}

	if m.ImpactScore != nil {
		v := *m.ImpactScore
		rec.ImpactScore = &v
	}

	rec.PatchAvailable = domain.TriState(m.PatchAvailable)
	if rec.PatchAvailable == "" {
		rec.PatchAvailable = domain.TriUnknown
	}

	switch m.Exploited {
	case string(domain.TriTrue):
		v := true
		rec.Exploited = &v
	case string(domain.TriFalse):
		v := false
		rec.Exploited = &v
	}

	decodeJSON(m.AffectedProducts, &rec.AffectedProducts)
	decodeJSON(m.References, &rec.References)
	decodeJSON(m.Exploits, &rec.Exploits)
	decodeJSON(m.GitHubPoCs, &rec.PoCs)
	decodeJSON(m.Sources, &rec.Sources)
	decodeJSON(m.Provenance, &rec.Provenance)

	return rec
}

func encodeJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeJSON(s string, out any) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), out)
}
