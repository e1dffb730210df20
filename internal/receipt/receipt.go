package receipt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/rounding"
)

const defaultWidth = 32

type Line struct {
	Name     string          `json:"name"`
	Qty      int             `json:"qty"`
	Price    decimal.Decimal `json:"price"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Receipt struct {
	BusinessName string           `json:"business_name"`
	Address      string           `json:"address,omitempty"`
	Phone        string           `json:"phone,omitempty"`
	Number       string           `json:"number"`
	Date         string           `json:"date"`
	Cashier      string           `json:"cashier,omitempty"`
	Lines        []Line           `json:"lines"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	Discount     decimal.Decimal  `json:"discount"`
	Tax          decimal.Decimal  `json:"tax"`
	Rounding     decimal.Decimal  `json:"rounding"`
	Total        decimal.Decimal  `json:"total"`
	Paid         decimal.Decimal  `json:"paid"`
	Change       decimal.Decimal  `json:"change"`
	Payments     []domain.Payment `json:"payments,omitempty"`
	Footer       string           `json:"footer,omitempty"`
	Width        int              `json:"width"`
}

// Build lays out a sale for printing. When the sale carries no rounding
// adjustment the settings' rounding policy is applied to its total.
func Build(sale domain.Sale, settings domain.Settings) (Receipt, error) {
	r := Receipt{
		BusinessName: defaultString(settings.BusinessName, "KasirinAja"),
		Address:      settings.Address,
		Phone:        settings.Phone,
		Number:       defaultString(sale.Number, sale.ID.String()),
		Cashier:      sale.Cashier,
		Discount:     sale.Discount,
		Tax:          sale.Tax,
		Payments:     sale.Payments,
		Footer:       defaultString(settings.ReceiptFooter, "Terima kasih"),
		Width:        paperColumns(settings.PaperWidth),
	}
	if at := sale.OccurredAt(); !at.IsZero() {
		r.Date = at.In(domain.Location).Format("2006-01-02 15:04")
	}

	subtotal := decimal.Zero
	for _, item := range sale.Items {
		line := Line{Name: item.Name, Qty: item.Qty.Int(), Price: item.UnitPrice, Subtotal: item.LineTotal()}
		subtotal = subtotal.Add(line.Subtotal)
		r.Lines = append(r.Lines, line)
	}
	r.Subtotal = sale.Subtotal
	if r.Subtotal.IsZero() {
		r.Subtotal = subtotal
	}

	total := sale.Total()
	if !sale.RoundingAdjustment.IsZero() {
		// A recorded grand_total already includes the adjustment.
		r.Rounding = sale.RoundingAdjustment
		r.Total = total
		if sale.GrandTotal.IsZero() {
			r.Total = total.Add(sale.RoundingAdjustment)
		}
	} else {
		rounded, adjustment, err := rounding.Apply(total, settings.Rounding)
		if err != nil {
			return Receipt{}, err
		}
		r.Total, r.Rounding = rounded, adjustment
	}

	r.Paid = sale.PaidAmount
	if r.Paid.IsZero() {
		for _, p := range sale.Payments {
			r.Paid = r.Paid.Add(p.Amount)
		}
	}
	r.Change = sale.ChangeAmount
	if r.Change.IsZero() && r.Paid.GreaterThan(r.Total) {
		r.Change = r.Paid.Sub(r.Total)
	}
	return r, nil
}

// Text renders the receipt as fixed-width lines for a thermal printer.
func (r Receipt) Text() []string {
	width := r.Width
	if width <= 0 {
		width = defaultWidth
	}
	rule := strings.Repeat("=", width)
	thin := strings.Repeat("-", width)

	lines := []string{center(r.BusinessName, width)}
	if r.Address != "" {
		lines = append(lines, center(r.Address, width))
	}
	if r.Phone != "" {
		lines = append(lines, center(r.Phone, width))
	}
	lines = append(lines, rule, "No: "+r.Number)
	if r.Date != "" {
		lines = append(lines, "Tgl: "+r.Date)
	}
	if r.Cashier != "" {
		lines = append(lines, "Kasir: "+r.Cashier)
	}
	lines = append(lines, thin)
	for _, line := range r.Lines {
		lines = append(lines, line.Name)
		lines = append(lines, pad(fmt.Sprintf("  %d x %s", line.Qty, money(line.Price)), money(line.Subtotal), width))
	}
	lines = append(lines, thin, pad("Subtotal", money(r.Subtotal), width))
	if !r.Discount.IsZero() {
		lines = append(lines, pad("Diskon", money(r.Discount), width))
	}
	if !r.Tax.IsZero() {
		lines = append(lines, pad("Pajak", money(r.Tax), width))
	}
	if !r.Rounding.IsZero() {
		lines = append(lines, pad("Pembulatan", money(r.Rounding), width))
	}
	lines = append(lines, pad("Total", money(r.Total), width))
	for _, p := range r.Payments {
		lines = append(lines, pad(strings.ToUpper(p.Method), money(p.Amount), width))
	}
	lines = append(lines,
		pad("Bayar", money(r.Paid), width),
		pad("Kembali", money(r.Change), width),
		rule,
		center(r.Footer, width),
		"",
	)
	return lines
}

// ESCPOS wraps Text in printer init and a partial cut.
func (r Receipt) ESCPOS() []byte {
	escpos := []byte{0x1b, 0x40}
	for _, line := range r.Text() {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	return append(escpos, 0x1d, 0x56, 0x41, 0x10)
}

func (r Receipt) ESCPOSBase64() string {
	return base64.StdEncoding.EncodeToString(r.ESCPOS())
}

// DrawerKick is the ESC/POS pulse on pin 2 that opens a cash drawer.
func DrawerKick() []byte {
	return []byte{0x1b, 0x70, 0x00, 0x19, 0xfa}
}

var receiptHTMLTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{"money": money}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Struk {{.Number}}</title>
  <style>
    body { font-family: monospace; width: {{.Width}}ch; margin: 0 auto; font-size: 12px; }
    .center { text-align: center; }
    table { width: 100%; border-collapse: collapse; }
    td.num { text-align: right; }
    hr { border: 0; border-top: 1px dashed #000; }
  </style>
</head>
<body onload="window.print()">
  <div class="center"><strong>{{.BusinessName}}</strong>{{if .Address}}<br />{{.Address}}{{end}}{{if .Phone}}<br />{{.Phone}}{{end}}</div>
  <hr />
  <div>No: {{.Number}}{{if .Date}}<br />Tgl: {{.Date}}{{end}}{{if .Cashier}}<br />Kasir: {{.Cashier}}{{end}}</div>
  <hr />
  <table>
    {{range .Lines}}<tr><td colspan="2">{{.Name}}</td></tr><tr><td>{{.Qty}} x {{money .Price}}</td><td class="num">{{money .Subtotal}}</td></tr>{{end}}
  </table>
  <hr />
  <table>
    <tr><td>Subtotal</td><td class="num">{{money .Subtotal}}</td></tr>
    {{if not .Discount.IsZero}}<tr><td>Diskon</td><td class="num">{{money .Discount}}</td></tr>{{end}}
    {{if not .Tax.IsZero}}<tr><td>Pajak</td><td class="num">{{money .Tax}}</td></tr>{{end}}
    {{if not .Rounding.IsZero}}<tr><td>Pembulatan</td><td class="num">{{money .Rounding}}</td></tr>{{end}}
    <tr><td><strong>Total</strong></td><td class="num"><strong>{{money .Total}}</strong></td></tr>
    <tr><td>Bayar</td><td class="num">{{money .Paid}}</td></tr>
    <tr><td>Kembali</td><td class="num">{{money .Change}}</td></tr>
  </table>
  <hr />
  <div class="center">{{.Footer}}</div>
</body>
</html>
`))

// HTML is a standalone print document that opens the print dialog on load.
func (r Receipt) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := receiptHTMLTmpl.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("render receipt html: %w", err)
	}
	return buf.Bytes(), nil
}

// TestPage is a short sample receipt used to check printer alignment.
func TestPage(settings domain.Settings) (domain.PrinterTest, error) {
	sample := domain.Sale{
		Number:  "TEST-PRINT",
		Cashier: "printer test",
		Items: []domain.SaleItem{
			{Name: "Contoh item", Qty: 1, UnitPrice: decimal.NewFromInt(10000)},
		},
		PaidAmount: decimal.NewFromInt(10000),
	}
	r, err := Build(sample, settings)
	if err != nil {
		return domain.PrinterTest{}, err
	}
	html, err := r.HTML()
	if err != nil {
		return domain.PrinterTest{}, err
	}
	return domain.PrinterTest{
		HTML:         string(html),
		EscposBase64: r.ESCPOSBase64(),
		PreviewText:  strings.Join(r.Text(), "\n"),
	}, nil
}

// paperColumns maps paper width in millimetres to printable characters.
func paperColumns(mm int) int {
	if mm >= 80 {
		return 48
	}
	return defaultWidth
}

// money formats an amount as whole rupiah with dot thousand separators.
func money(d decimal.Decimal) string {
	negative := d.IsNegative()
	digits := d.Abs().Round(0).String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

func pad(left string, right string, width int) string {
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(text string, width int) string {
	n := utf8.RuneCountInString(text)
	if n >= width {
		return text
	}
	return strings.Repeat(" ", (width-n)/2) + text
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
