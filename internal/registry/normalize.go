package registry

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine/internal/model"
)

// Normalizer converts captured text into a typed field value. A non-nil error
// means the captured text is not acceptable for the field.
type Normalizer func(raw string) (model.Value, error)

var (
	currencyStripper = strings.NewReplacer("$", "", "£", "", "€", "", ",", "", " ", "")
	numberStripper   = strings.NewReplacer(",", "", " ", "")
	spaceRun         = regexp.MustCompile(`\s+`)
)

// NormalizerFor returns the stock normalizer for a field type.
func NormalizerFor(t model.FieldType) Normalizer {
	switch t {
	case model.TypeCurrency:
		return Currency
	case model.TypePercentage:
		return Percentage
	case model.TypeCount:
		return Count
	case model.TypeInteger:
		return Integer
	case model.TypeDecimal:
		return Decimal
	default:
		return Text
	}
}

// Currency parses amounts such as "$1,250,000.00". Negative amounts are rejected.
func Currency(raw string) (model.Value, error) {
	if strings.Contains(raw, "%") {
		return model.Value{}, eris.Errorf("currency %q is a percentage", raw)
	}
	s := currencyStripper.Replace(strings.TrimSpace(raw))
	f, err := parseFloat(s)
	if err != nil {
		return model.Value{}, eris.Wrapf(err, "currency %q", raw)
	}
	if f < 0 {
		return model.Value{}, eris.Errorf("currency %q is negative", raw)
	}
	return model.Number(f), nil
}

// Percentage parses "6.5%" or "6.5" into the fraction 0.065. Values outside
// 0–100 are rejected.
func Percentage(raw string) (model.Value, error) {
	s := strings.TrimSuffix(numberStripper.Replace(strings.TrimSpace(raw)), "%")
	f, err := parseFloat(s)
	if err != nil {
		return model.Value{}, eris.Wrapf(err, "percentage %q", raw)
	}
	if f < 0 || f > 100 {
		return model.Value{}, eris.Errorf("percentage %q must be between 0 and 100", raw)
	}
	return model.Number(f / 100), nil
}

// Count parses a non-negative whole number. "4.0" is accepted, "4.5" is not.
func Count(raw string) (model.Value, error) {
	v, err := Integer(raw)
	if err != nil {
		return model.Value{}, err
	}
	if f, _ := v.Float(); f < 0 {
		return model.Value{}, eris.Errorf("count %q is negative", raw)
	}
	return v, nil
}

// Integer parses a whole number, allowing thousands separators.
func Integer(raw string) (model.Value, error) {
	s := numberStripper.Replace(strings.TrimSpace(raw))
	f, err := parseFloat(s)
	if err != nil {
		return model.Value{}, eris.Wrapf(err, "integer %q", raw)
	}
	if f != math.Trunc(f) {
		return model.Value{}, eris.Errorf("%q must be a whole number", raw)
	}
	return model.Number(f), nil
}

// Decimal parses a non-negative number such as "2.5".
func Decimal(raw string) (model.Value, error) {
	s := numberStripper.Replace(strings.TrimSpace(raw))
	f, err := parseFloat(s)
	if err != nil {
		return model.Value{}, eris.Wrapf(err, "decimal %q", raw)
	}
	if f < 0 {
		return model.Value{}, eris.Errorf("decimal %q is negative", raw)
	}
	return model.Number(f), nil
}

// Text collapses whitespace and strips quotes. Empty results are rejected.
func Text(raw string) (model.Value, error) {
	s := spaceRun.ReplaceAllString(raw, " ")
	s = strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
	s = strings.Trim(s, " ,;")
	if s == "" {
		return model.Value{}, eris.New("empty text")
	}
	return model.Text(s), nil
}

var plexWords = map[string]float64{
	"duplex":    2,
	"triplex":   3,
	"fourplex":  4,
	"quadplex":  4,
	"fiveplex":  5,
	"sixplex":   6,
	"eightplex": 8,
}

// PlexCount maps listing words such as "Triplex" to a unit count.
func PlexCount(raw string) (model.Value, error) {
	n, ok := plexWords[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return model.Value{}, eris.Errorf("unknown plex word %q", raw)
	}
	return model.Number(n), nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, eris.New("empty number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Errorf("%q is not a finite number", s)
	}
	return f, nil
}
