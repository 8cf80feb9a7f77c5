package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []RuleSpec `yaml:"rules" json:"rules"`
}

// LoadRulesFromFile reads extra rule specs from a YAML or JSON file of the form
// {rules: [{field, label, pattern, priority}]}. Patterns are not compiled here.
func LoadRulesFromFile(path string) ([]RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read rules file")
	}

	var f rulesFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	default:
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal rules file")
	}

	for i, r := range f.Rules {
		if r.Field == "" || r.Pattern == "" {
			return nil, eris.Errorf("registry: rule %d in %s needs field and pattern", i, path)
		}
		if r.Label == "" {
			f.Rules[i].Label = r.Pattern
		}
	}
	return f.Rules, nil
}
