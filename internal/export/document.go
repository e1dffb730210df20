package export

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/domain"
)

// Document is the format-neutral shape every report is rendered from.
type Document struct {
	Name     string
	Title    string
	Period   domain.Period
	Source   domain.Source
	Summary  []Field
	Sections []Section
	Notes    []string
}

type Field struct {
	Label string
	Value any
}

type Section struct {
	Title   string
	Columns []string
	Rows    [][]any
}

func (d Document) Filename(ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s", d.Name, d.Period.From, d.Period.To, ext)
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case decimal.Decimal:
		return v.StringFixed(2)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func breakdownSection(title string, keyLabel string, rows []domain.Breakdown) Section {
	section := Section{Title: title, Columns: []string{keyLabel, "Count", "Total"}}
	for _, b := range rows {
		section.Rows = append(section.Rows, []any{b.Key, b.Count, b.Total})
	}
	return section
}

func FromCashflow(r domain.CashflowReport) Document {
	daily := Section{Title: "Daily", Columns: []string{"Date", "Cash in", "Cash out", "Net"}}
	for _, d := range r.Daily {
		daily.Rows = append(daily.Rows, []any{d.Date, d.CashIn, d.CashOut, d.Net})
	}
	return Document{
		Name:   "cashflow",
		Title:  "Cashflow",
		Period: r.Period,
		Summary: []Field{
			{"Cash in", r.Summary.CashIn},
			{"Cash out", r.Summary.CashOut},
			{"Net", r.Summary.Net},
		},
		Sections: []Section{daily},
	}
}

func FromProfitLoss(r domain.ProfitLossReport) Document {
	doc := Document{
		Name:   "profit-loss",
		Title:  "Profit & Loss",
		Period: r.Period,
		Summary: []Field{
			{"Revenue (gross)", r.Summary.RevenueGross},
			{"Output tax", r.Summary.TaxOutput},
			{"Revenue (net)", r.Summary.RevenueNet},
			{"COGS", r.Summary.COGS},
			{"Gross profit", r.Summary.GrossProfit},
			{"Operating expenses", r.Summary.OperatingExpenses},
			{"Net profit", r.Summary.NetProfit},
		},
		Sections: []Section{breakdownSection("Expenses", "Category", r.Expenses)},
	}
	for _, field := range r.Estimated {
		doc.Notes = append(doc.Notes, fmt.Sprintf("%s is estimated from a configured ratio", field))
	}
	return doc
}

func FromSales(r domain.SalesReport) Document {
	return Document{
		Name:   "sales",
		Title:  "Sales",
		Period: r.Period,
		Summary: []Field{
			{"Transactions", r.Summary.Transactions},
			{"Gross", r.Summary.Gross},
			{"Discount", r.Summary.Discount},
			{"Tax", r.Summary.Tax},
			{"Grand total", r.Summary.GrandTotal},
			{"Average ticket", r.Summary.AverageTicket},
		},
		Sections: []Section{
			breakdownSection("Daily", "Date", r.Daily),
			breakdownSection("Payment methods", "Method", r.Payments),
			breakdownSection("Cashiers", "Cashier", r.Cashiers),
			breakdownSection("Top items", "Item", r.TopItems),
		},
	}
}

func FromInventory(r domain.InventoryReport) Document {
	return Document{
		Name:   "inventory",
		Title:  "Inventory",
		Period: r.Period,
		Summary: []Field{
			{"Products", r.Summary.Products},
			{"Active products", r.Summary.ActiveProducts},
			{"Units on hand", r.Summary.UnitsOnHand},
			{"Stock value (price)", r.Summary.StockValuePrice},
			{"Stock value (cost)", r.Summary.StockValueCost},
			{"Low stock", r.Summary.LowStockProducts},
			{"Out of stock", r.Summary.OutOfStockProducts},
		},
		Sections: []Section{
			breakdownSection("Categories", "Category", r.Categories),
			breakdownSection("Units sold", "Product", r.UnitsSold),
		},
	}
}

func FromTax(r domain.TaxReport) Document {
	daily := Section{Title: "Daily", Columns: []string{"Date", "Base", "Output tax", "Input tax"}}
	for _, d := range r.Daily {
		daily.Rows = append(daily.Rows, []any{d.Date, d.Base, d.OutputTax, d.InputTax})
	}
	return Document{
		Name:   "tax",
		Title:  "PPN",
		Period: r.Period,
		Summary: []Field{
			{"Rate", r.Rate},
			{"Taxable base", r.Summary.TaxableBase},
			{"Output tax", r.Summary.OutputTax},
			{"Input tax", r.Summary.InputTax},
			{"Net payable", r.Summary.NetPayable},
		},
		Sections: []Section{daily},
	}
}

func FromBarbershop(r domain.BarbershopReport) Document {
	return Document{
		Name:   "barbershop-sales",
		Title:  "Barbershop Sales",
		Period: r.Period,
		Summary: []Field{
			{"Revenue", r.Summary.Revenue},
			{"Services", r.Summary.Services},
			{"Barbers", r.Summary.Barbers},
		},
		Sections: []Section{breakdownSection("Barbers", "Barber", r.Barbers)},
	}
}
