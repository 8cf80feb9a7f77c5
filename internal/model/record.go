package model

import "time"

// PropertyRecord is the persisted aggregate of all fields for one listing.
// Metrics are a display cache only; they are always re-derivable from Fields.
type PropertyRecord struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	SourcePath     string                 `json:"source_path,omitempty"`
	RawTextPreview string                 `json:"raw_text_preview,omitempty"`
	Fields         map[FieldID]FieldState `json:"fields"`
	Extracted      map[FieldID]Value      `json:"extracted,omitempty"`
	Metrics        map[string]*float64    `json:"metrics,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Summary derives the list view of the record.
func (r *PropertyRecord) Summary() RecordSummary {
	s := RecordSummary{
		ID:         r.ID,
		Name:       r.Name,
		SourcePath: r.SourcePath,
		UpdatedAt:  r.UpdatedAt,
	}
	if st, ok := r.Fields["mls_number"]; ok {
		s.MLSNumber = st.Value.String()
	}
	for _, id := range []FieldID{"purchase_price", "list_price"} {
		if st, ok := r.Fields[id]; ok {
			if f, ok := st.Value.Float(); ok {
				s.Price = &f
				break
			}
		}
	}
	return s
}

// RecordSummary is the list view of a saved record.
type RecordSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path,omitempty"`
	MLSNumber  string    `json:"mls_number,omitempty"`
	Price      *float64  `json:"price,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
