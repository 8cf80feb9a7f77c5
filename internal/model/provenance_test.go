package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestProvenance_CanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Provenance
		want     bool
	}{
		{ProvenanceAbsent, ProvenanceDefault, true},
		{ProvenanceAbsent, ProvenanceExtracted, true},
		{ProvenanceDefault, ProvenanceExtracted, true},
		{ProvenanceExtracted, ProvenanceDefault, true},
		{ProvenanceDefault, ProvenanceManual, true},
		{ProvenanceExtracted, ProvenanceManual, true},
		{ProvenanceManual, ProvenanceManual, true},
		{ProvenanceManual, ProvenanceExtracted, false},
		{ProvenanceManual, ProvenanceDefault, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseProvenance(t *testing.T) {
	t.Parallel()

	p, err := ParseProvenance("manual")
	require.NoError(t, err)
	assert.Equal(t, ProvenanceManual, p)

	p, err = ParseProvenance("")
	require.NoError(t, err)
	assert.Equal(t, ProvenanceAbsent, p)
	assert.Equal(t, "absent", p.String())

	_, err = ParseProvenance("guessed")
	require.Error(t, err)
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]Value{
		"n": Number(1500.5),
		"t": Text("Duplex"),
		"z": {},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1500.5,"t":"Duplex","z":null}`, string(data))

	var back map[string]Value
	require.NoError(t, json.Unmarshal(data, &back))
	f, ok := back["n"].Float()
	require.True(t, ok)
	assert.InDelta(t, 1500.5, f, 0.0001)
	assert.Equal(t, "Duplex", back["t"].String())
	assert.False(t, back["z"].Valid())
}

func TestValue_YAML(t *testing.T) {
	t.Parallel()

	data, err := yaml.Marshal(map[string]Value{"rate": Number(0.065), "roof": Text("Composition")})
	require.NoError(t, err)

	var back map[string]Value
	require.NoError(t, yaml.Unmarshal(data, &back))
	f, ok := back["rate"].Float()
	require.True(t, ok)
	assert.InDelta(t, 0.065, f, 1e-9)
	assert.Equal(t, "Composition", back["roof"].String())
}

func TestValue_Invalid(t *testing.T) {
	t.Parallel()

	assert.False(t, Text("").Valid())
	assert.False(t, Value{}.Valid())
	assert.True(t, Number(0).Valid())
	assert.True(t, Number(1).Equal(Number(1.0005), 0.001))
	assert.False(t, Number(1).Equal(Text("1"), 0.001))
}

func TestPropertyRecord_Summary(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := &PropertyRecord{
		ID:   "rec-1",
		Name: "123 Main St",
		Fields: map[FieldID]FieldState{
			"mls_number": {Value: Text("2345678"), Provenance: ProvenanceExtracted},
			"list_price": {Value: Number(725000), Provenance: ProvenanceExtracted},
		},
		UpdatedAt: now,
	}

	s := rec.Summary()
	assert.Equal(t, "rec-1", s.ID)
	assert.Equal(t, "2345678", s.MLSNumber)
	require.NotNil(t, s.Price)
	assert.InDelta(t, 725000, *s.Price, 0.001)
	assert.Equal(t, now, s.UpdatedAt)
}
