package export

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/projection"
	"github.com/sells-group/dealmachine/internal/registry"
	"github.com/sells-group/dealmachine/internal/scorer"
)

const (
	sheetRecord  = "Record"
	sheetFields  = "Fields"
	sheetMetrics = "Metrics"
)

// WriteXLSX writes doc as a workbook with Record, Fields and Metrics sheets.
// Fields are listed in schema order.
func WriteXLSX(path string, doc *Document) error {
	f := xlsx.NewFile()

	rec, err := f.AddSheet(sheetRecord)
	if err != nil {
		return eris.Wrap(err, "xlsx: add record sheet")
	}
	addRow(rec, "record_id", doc.RecordID)
	addRow(rec, "name", doc.Name)
	addRow(rec, "exported_at", doc.ExportedAt.UTC().Format(time.RFC3339))

	fields, err := f.AddSheet(sheetFields)
	if err != nil {
		return eris.Wrap(err, "xlsx: add fields sheet")
	}
	addRow(fields, "field", "label", "value", "provenance")
	for _, def := range registry.DefaultSchema().Defs() {
		e, ok := doc.Fields[def.ID]
		if !ok {
			continue
		}
		row := fields.AddRow()
		row.AddCell().SetString(string(def.ID))
		row.AddCell().SetString(def.Label)
		setValue(row.AddCell(), e.Value)
		row.AddCell().SetString(string(e.Provenance))
	}

	metrics, err := f.AddSheet(sheetMetrics)
	if err != nil {
		return eris.Wrap(err, "xlsx: add metrics sheet")
	}
	addRow(metrics, "metric", "value", "position", "stop", "label", "color")
	for _, mid := range projection.Default().Order() {
		m, ok := doc.Metrics[string(mid)]
		if !ok {
			continue
		}
		row := metrics.AddRow()
		row.AddCell().SetString(string(mid))
		if m.Value != nil {
			row.AddCell().SetFloat(*m.Value)
		} else {
			row.AddCell().SetString("N/A")
		}
		if sc := m.Score; sc != nil {
			row.AddCell().SetFloat(sc.Position)
			row.AddCell().SetInt(sc.Stop)
			row.AddCell().SetString(sc.Label)
			row.AddCell().SetString(sc.Color)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// ReadXLSX reads a workbook written by WriteXLSX.
func ReadXLSX(path string) (*Document, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	doc := &Document{
		Fields:  make(map[model.FieldID]Entry),
		Metrics: make(map[string]MetricEntry),
	}

	rec, err := sheet(f, sheetRecord)
	if err != nil {
		return nil, err
	}
	for _, row := range rec.Rows {
		cells := rowToStrings(row)
		if len(cells) < 2 {
			continue
		}
		switch cells[0] {
		case "record_id":
			doc.RecordID = cells[1]
		case "name":
			doc.Name = cells[1]
		case "exported_at":
			if t, err := time.Parse(time.RFC3339, cells[1]); err == nil {
				doc.ExportedAt = t
			}
		}
	}

	fields, err := sheet(f, sheetFields)
	if err != nil {
		return nil, err
	}
	schema := registry.DefaultSchema()
	for i, row := range fields.Rows {
		if i == 0 || len(row.Cells) < 3 {
			continue
		}
		id := model.FieldID(row.Cells[0].String())
		def, ok := schema.Def(id)
		if !ok {
			return nil, eris.Errorf("xlsx: row %d: unknown field %q", i+1, id)
		}
		v, err := cellValue(row.Cells[2], def.Type)
		if err != nil {
			return nil, eris.Wrapf(err, "xlsx: row %d: %s", i+1, id)
		}
		e := Entry{Value: v}
		if len(row.Cells) > 3 {
			e.Provenance = model.Provenance(row.Cells[3].String())
		}
		doc.Fields[id] = e
	}

	if metrics, err := sheet(f, sheetMetrics); err == nil {
		for i, row := range metrics.Rows {
			if i == 0 || len(row.Cells) < 2 {
				continue
			}
			var m MetricEntry
			if n, err := row.Cells[1].Float(); err == nil {
				m.Value = &n
			}
			m.Score = scoreCells(row.Cells[2:])
			doc.Metrics[row.Cells[0].String()] = m
		}
	}
	return doc, nil
}

// scoreCells reads position, stop, label and color; nil when the row has
// no score.
func scoreCells(cells []*xlsx.Cell) *scorer.Score {
	if len(cells) < 4 {
		return nil
	}
	pos, err := cells[0].Float()
	if err != nil {
		return nil
	}
	stop, err := cells[1].Int()
	if err != nil {
		return nil
	}
	return &scorer.Score{Position: pos, Stop: stop, Label: cells[2].String(), Color: cells[3].String()}
}

func sheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	s, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", name)
	}
	return s, nil
}

func addRow(s *xlsx.Sheet, cells ...string) {
	row := s.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func setValue(c *xlsx.Cell, v model.Value) {
	if f, ok := v.Float(); ok {
		c.SetFloat(f)
		return
	}
	c.SetString(v.String())
}

func cellValue(c *xlsx.Cell, t model.FieldType) (model.Value, error) {
	if !t.Numeric() {
		return model.Text(c.String()), nil
	}
	f, err := c.Float()
	if err != nil {
		f, err = strconv.ParseFloat(c.String(), 64)
		if err != nil {
			return model.Value{}, eris.Errorf("expected a number, got %q", c.String())
		}
	}
	return model.Number(f), nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
