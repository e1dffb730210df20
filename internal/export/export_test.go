package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"kasirinaja/backoffice/internal/domain"
)

func sampleCashflow() domain.CashflowReport {
	return domain.CashflowReport{
		Period: domain.Period{From: "2024-01-01", To: "2024-01-31"},
		Summary: domain.CashflowSummary{
			CashIn:  decimal.NewFromInt(80000),
			CashOut: decimal.NewFromInt(20000),
			Net:     decimal.NewFromInt(60000),
		},
		Daily: []domain.CashflowDay{{
			Date:    "2024-01-01",
			CashIn:  decimal.NewFromInt(80000),
			CashOut: decimal.NewFromInt(20000),
			Net:     decimal.NewFromInt(60000),
		}},
	}
}

func TestCSVContainsSummaryAndDaily(t *testing.T) {
	doc := FromCashflow(sampleCashflow())
	doc.Source = domain.SourceLocal
	out, err := CSV(doc)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}

	reader := csv.NewReader(bytes.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	found := map[string]bool{}
	for _, rec := range records {
		found[strings.Join(rec, ",")] = true
	}
	for _, want := range []string{
		"summary,Net,60000.00",
		"summary,source,local",
		"Daily,2024-01-01,80000.00,20000.00,60000.00",
	} {
		if !found[want] {
			t.Fatalf("expected record %q in %v", want, records)
		}
	}
}

func TestXLSXHasSummaryAndSectionSheets(t *testing.T) {
	out, err := XLSX(FromCashflow(sampleCashflow()))
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Summary" || sheets[1] != "Daily" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	value, err := f.GetCellValue("Daily", "A2")
	if err != nil || value != "2024-01-01" {
		t.Fatalf("unexpected daily cell %q err=%v", value, err)
	}
}

func TestHTMLEscapesUserContent(t *testing.T) {
	doc := FromProfitLoss(domain.ProfitLossReport{
		Period:    domain.Period{From: "2024-01-01", To: "2024-01-31"},
		Expenses:  []domain.Breakdown{{Key: "<script>alert(1)</script>", Count: 1, Total: decimal.NewFromInt(5)}},
		Estimated: []string{"cogs"},
	})
	out, err := HTML(doc)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	body := string(out)
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("expected category to be escaped")
	}
	if !strings.Contains(body, "cogs is estimated") || !strings.Contains(body, "window.print()") {
		t.Fatalf("expected estimate note and print button in output")
	}
}

func TestFilename(t *testing.T) {
	doc := FromTax(domain.TaxReport{Period: domain.Period{From: "2024-01-01", To: "2024-01-31"}})
	if got := doc.Filename("csv"); got != "tax-2024-01-01-2024-01-31.csv" {
		t.Fatalf("unexpected filename %q", got)
	}
}
