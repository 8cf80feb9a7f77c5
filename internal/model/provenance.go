package model

import "github.com/rotisserie/eris"

// Provenance records where a field's current value came from.
type Provenance string

const (
	// ProvenanceAbsent marks a field with no value. It is distinct from every
	// real provenance so consumers can tell "not set" from "default".
	ProvenanceAbsent    Provenance = ""
	ProvenanceDefault   Provenance = "default"
	ProvenanceExtracted Provenance = "extracted"
	ProvenanceManual    Provenance = "manual"
)

// ParseProvenance converts a persisted string to a Provenance.
func ParseProvenance(s string) (Provenance, error) {
	switch p := Provenance(s); p {
	case ProvenanceAbsent, ProvenanceDefault, ProvenanceExtracted, ProvenanceManual:
		return p, nil
	default:
		return "", eris.Errorf("model: unknown provenance %q", s)
	}
}

// CanTransition reports whether a field may move from p to next without an
// explicit confirmation from the caller. Manual values are sticky: only a
// reset or a confirmed overwrite may replace them.
func (p Provenance) CanTransition(next Provenance) bool {
	if next == ProvenanceManual {
		return true
	}
	return p != ProvenanceManual
}

func (p Provenance) String() string {
	if p == ProvenanceAbsent {
		return "absent"
	}
	return string(p)
}
