package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// CSV writes a section,key,value summary followed by one block per section.
func CSV(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"section", "key", "value"},
		{"summary", "period_from", doc.Period.From},
		{"summary", "period_to", doc.Period.To},
	}
	if doc.Source != "" {
		records = append(records, []string{"summary", "source", string(doc.Source)})
	}
	for _, field := range doc.Summary {
		records = append(records, []string{"summary", field.Label, text(field.Value)})
	}
	for _, section := range doc.Sections {
		records = append(records, append([]string{section.Title}, section.Columns...))
		for _, row := range section.Rows {
			record := []string{section.Title}
			for _, cell := range row {
				record = append(record, text(cell))
			}
			records = append(records, record)
		}
	}
	for _, note := range doc.Notes {
		records = append(records, []string{"note", note})
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX renders a Summary sheet and one sheet per section.
func XLSX(doc Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	rows := [][]any{
		{doc.Title},
		{"From", doc.Period.From},
		{"To", doc.Period.To},
	}
	if doc.Source != "" {
		rows = append(rows, []any{"Source", string(doc.Source)})
	}
	rows = append(rows, []any{})
	for _, field := range doc.Summary {
		rows = append(rows, []any{field.Label, cellValue(field.Value)})
	}
	for _, note := range doc.Notes {
		rows = append(rows, []any{"Note", note})
	}
	if err := writeRows(f, summary, rows); err != nil {
		return nil, err
	}

	for i, section := range doc.Sections {
		name := sheetName(section.Title, i)
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		sheetRows := make([][]any, 0, len(section.Rows)+1)
		header := make([]any, 0, len(section.Columns))
		for _, col := range section.Columns {
			header = append(header, col)
		}
		sheetRows = append(sheetRows, header)
		for _, row := range section.Rows {
			values := make([]any, 0, len(row))
			for _, cell := range row {
				values = append(values, cellValue(cell))
			}
			sheetRows = append(sheetRows, values)
		}
		if err := writeRows(f, name, sheetRows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// sheetName keeps within Excel's 31 character limit and avoids duplicates.
func sheetName(title string, index int) string {
	name := title
	if len(name) > 28 {
		name = name[:28]
	}
	if name == "" || name == "Summary" {
		name = fmt.Sprintf("Sheet %d", index+2)
	}
	return name
}

func cellValue(value any) any {
	if d, ok := value.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return value
}

var reportHTMLTmpl = template.Must(template.New("report").Funcs(template.FuncMap{"text": text}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>{{.Title}} {{.Period.From}} - {{.Period.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
    .note { color: #a15c00; font-size: 12px; }
    @media print { .no-print { display: none; } }
  </style>
</head>
<body>
  <h2>{{.Title}}</h2>
  <p>Period: {{.Period.From}} to {{.Period.To}}{{if .Source}} | Source: {{.Source}}{{end}}</p>
  <table>
    <tbody>{{range .Summary}}<tr><th style="text-align:left;">{{.Label}}</th><td class="num">{{text .Value}}</td></tr>{{end}}</tbody>
  </table>
  {{range .Notes}}<p class="note">{{.}}</p>{{end}}
  {{range .Sections}}
  <h3>{{.Title}}</h3>
  <table>
    <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>{{range .Rows}}<tr>{{range .}}<td>{{text .}}</td>{{end}}</tr>{{end}}</tbody>
  </table>
  {{end}}
  <button class="no-print" onclick="window.print()">Print</button>
</body>
</html>
`))

func HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportHTMLTmpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}
	return buf.Bytes(), nil
}
