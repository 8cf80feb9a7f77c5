package model

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type valueKind uint8

const (
	kindNone valueKind = iota
	kindNumber
	kindText
)

// Value is a typed field value: either a number or a text string.
// The zero Value is invalid and represents "no value".
type Value struct {
	kind valueKind
	num  float64
	text string
}

// Number creates a numeric Value. NaN and infinities produce an invalid Value.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: kindNumber, num: f}
}

// Text creates a text Value. The empty string produces an invalid Value.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: kindText, text: s}
}

// Valid reports whether v carries a value.
func (v Value) Valid() bool {
	return v.kind != kindNone
}

// IsNumber reports whether v is numeric.
func (v Value) IsNumber() bool {
	return v.kind == kindNumber
}

// Float returns the numeric value.
func (v Value) Float() (float64, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the value without formatting. Invalid values render as "".
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	default:
		return ""
	}
}

// Equal compares two values. Numbers compare within tol.
func (v Value) Equal(o Value, tol float64) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == kindNumber {
		return math.Abs(v.num-o.num) <= tol
	}
	return v.text == o.text
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Value{}
	case float64:
		*v = Number(x)
	case string:
		*v = Text(x)
	default:
		return eris.Errorf("model: unsupported JSON type %T for value", raw)
	}
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case kindNumber:
		return v.num, nil
	case kindText:
		return v.text, nil
	default:
		return nil, nil
	}
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return eris.Errorf("model: value must be a scalar, got node kind %d", node.Kind)
	}
	switch node.Tag {
	case "!!null":
		*v = Value{}
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return eris.Wrap(err, "model: parse value")
		}
		*v = Number(f)
	default:
		*v = Text(node.Value)
	}
	return nil
}
