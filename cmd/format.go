package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/dealmachine/internal/fieldstore"
	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/projection"
	"github.com/sells-group/dealmachine/internal/session"
)

var printer = message.NewPrinter(language.English)

// formatValue renders v in the unit of its field type.
func formatValue(t model.FieldType, v model.Value) string {
	if !v.Valid() {
		return "-"
	}
	f, ok := v.Float()
	if !ok {
		return v.String()
	}
	switch t {
	case model.TypeCurrency:
		return printer.Sprintf("$%.2f", f)
	case model.TypePercentage:
		return printer.Sprintf("%.2f%%", f*100)
	case model.TypeCount:
		return printer.Sprintf("%d", int64(f))
	case model.TypeInteger:
		// Years read better without separators.
		return fmt.Sprintf("%d", int64(f))
	default:
		return printer.Sprintf("%.2f", f)
	}
}

// formatMetric renders a metric value; nil is N/A.
func formatMetric(u projection.Unit, v *float64) string {
	if v == nil {
		return "N/A"
	}
	switch u {
	case projection.UnitCurrency:
		return printer.Sprintf("$%.2f", *v)
	case projection.UnitPercent:
		return printer.Sprintf("%.2f%%", *v*100)
	default:
		return printer.Sprintf("%.2f", *v)
	}
}

func provenanceLabel(p model.Provenance) string {
	if p == model.ProvenanceAbsent {
		return "-"
	}
	return string(p)
}

func writeFields(out io.Writer, fields []session.FieldView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tVALUE\tSOURCE\tRULE")
	_, _ = fmt.Fprintln(w, "-----\t-----\t------\t----")
	for _, f := range fields {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.Label,
			formatValue(f.Type, f.Value),
			provenanceLabel(f.Provenance),
			f.Rule,
		)
	}
	_ = w.Flush()
}

func writeMetrics(out io.Writer, metrics []session.MetricView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tVALUE\tSCORE")
	_, _ = fmt.Fprintln(w, "------\t-----\t-----")
	for _, m := range metrics {
		score := ""
		if m.Score != nil {
			score = fmt.Sprintf("%s (%+d)", m.Score.Label, m.Score.Stop)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, formatMetric(m.Unit, m.Value), score)
	}
	_ = w.Flush()
}

func writeRecords(out io.Writer, recs []model.RecordSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tMLS\tPRICE\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t---\t-----\t-------")
	for _, r := range recs {
		name := r.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			name,
			r.MLSNumber,
			formatMetric(projection.UnitCurrency, r.Price),
			r.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func writeDiff(out io.Writer, diffs []fieldstore.Difference, schema *model.Schema) {
	if len(diffs) == 0 {
		_, _ = fmt.Fprintln(out, "All values match the extraction.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tCURRENT\tEXTRACTED\tKIND")
	for _, d := range diffs {
		def, _ := schema.Def(d.Field)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			def.Label,
			formatValue(def.Type, d.Current),
			formatValue(def.Type, d.Extracted),
			d.Kind,
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
