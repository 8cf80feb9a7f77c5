package defaults

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealmachine/internal/model"
)

// fileFormat is the on-disk layout of a user defaults file. Values are in
// human units: percentages as 5 for 5%.
type fileFormat struct {
	Defaults map[model.FieldID]model.Value `yaml:"defaults"`
}

// LoadFile reads user overrides from path and layers them over the built-in
// table. A missing file yields the built-in table.
func LoadFile(path string, schema *model.Schema) (*Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Builtin(), nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "defaults: read file")
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "defaults: parse file")
	}

	t := Builtin()
	for id, v := range f.Defaults {
		parsed, err := Parse(schema, id, v.String())
		if err != nil {
			return nil, eris.Wrapf(err, "defaults: %s", path)
		}
		t = t.With(id, parsed)
	}

	zap.L().Debug("defaults: loaded overrides",
		zap.String("path", path),
		zap.Int("count", len(f.Defaults)),
	)
	return t, nil
}

// SaveFile writes the entries of t that differ from the built-in table to path.
func SaveFile(path string, schema *model.Schema, t *Table) error {
	f := fileFormat{Defaults: make(map[model.FieldID]model.Value)}
	for id, v := range t.Overrides() {
		f.Defaults[id] = toHuman(schema, id, v)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return eris.Wrap(err, "defaults: marshal")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "defaults: create dir")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "defaults: write file")
	}
	return nil
}

// ResetFile removes the user defaults file so the built-in table applies again.
func ResetFile(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrap(err, "defaults: remove file")
	}
	return nil
}

func toHuman(schema *model.Schema, id model.FieldID, v model.Value) model.Value {
	def, ok := schema.Def(id)
	if !ok || def.Type != model.TypePercentage {
		return v
	}
	f, ok := v.Float()
	if !ok {
		return v
	}
	return model.Number(math.Round(f*100*1e9) / 1e9)
}
