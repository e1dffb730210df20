package domain

import (
	"github.com/shopspring/decimal"
)

type Source string

const (
	SourceAPI   Source = "api"
	SourceLocal Source = "local"
)

// Sourced tags a payload with where it came from so callers can tell live
// data from the local cache.
type Sourced[T any] struct {
	Data           T      `json:"data"`
	Source         Source `json:"source"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Breakdown struct {
	Key   string          `json:"key"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type CashflowSummary struct {
	CashIn  decimal.Decimal `json:"cash_in"`
	CashOut decimal.Decimal `json:"cash_out"`
	Net     decimal.Decimal `json:"net"`
}

type CashflowDay struct {
	Date    string          `json:"date"`
	CashIn  decimal.Decimal `json:"cash_in"`
	CashOut decimal.Decimal `json:"cash_out"`
	Net     decimal.Decimal `json:"net"`
}

type CashflowReport struct {
	Period  Period          `json:"period"`
	Summary CashflowSummary `json:"summary"`
	Daily   []CashflowDay   `json:"daily"`
}

type ProfitLossSummary struct {
	RevenueGross      decimal.Decimal `json:"revenue_gross"`
	TaxOutput         decimal.Decimal `json:"tax_output"`
	RevenueNet        decimal.Decimal `json:"revenue_net"`
	COGS              decimal.Decimal `json:"cogs"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	NetProfit         decimal.Decimal `json:"net_profit"`
}

type ProfitLossReport struct {
	Period    Period            `json:"period"`
	Summary   ProfitLossSummary `json:"summary"`
	Expenses  []Breakdown       `json:"expenses"`
	Estimated []string          `json:"estimated"`
}

type SalesSummary struct {
	Transactions  int             `json:"transactions"`
	Gross         decimal.Decimal `json:"gross"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	AverageTicket decimal.Decimal `json:"average_ticket"`
}

type SalesReport struct {
	Period   Period       `json:"period"`
	Summary  SalesSummary `json:"summary"`
	Daily    []Breakdown  `json:"daily"`
	Payments []Breakdown  `json:"payments"`
	Cashiers []Breakdown  `json:"cashiers"`
	TopItems []Breakdown  `json:"top_items"`
}

type InventorySummary struct {
	Products           int             `json:"products"`
	ActiveProducts     int             `json:"active_products"`
	UnitsOnHand        int             `json:"units_on_hand"`
	StockValuePrice    decimal.Decimal `json:"stock_value_price"`
	StockValueCost     decimal.Decimal `json:"stock_value_cost"`
	LowStockProducts   int             `json:"low_stock_products"`
	OutOfStockProducts int             `json:"out_of_stock_products"`
}

type InventoryReport struct {
	Period     Period           `json:"period"`
	Summary    InventorySummary `json:"summary"`
	Categories []Breakdown      `json:"categories"`
	UnitsSold  []Breakdown      `json:"units_sold"`
}

type TaxSummary struct {
	TaxableBase decimal.Decimal `json:"taxable_base"`
	OutputTax   decimal.Decimal `json:"output_tax"`
	InputTax    decimal.Decimal `json:"input_tax"`
	NetPayable  decimal.Decimal `json:"net_payable"`
}

type TaxDay struct {
	Date      string          `json:"date"`
	Base      decimal.Decimal `json:"base"`
	OutputTax decimal.Decimal `json:"output_tax"`
	InputTax  decimal.Decimal `json:"input_tax"`
}

type TaxReport struct {
	Period  Period          `json:"period"`
	Rate    decimal.Decimal `json:"rate"`
	Summary TaxSummary      `json:"summary"`
	Daily   []TaxDay        `json:"daily"`
}

type BarberSummary struct {
	Revenue  decimal.Decimal `json:"revenue"`
	Services int             `json:"services"`
	Barbers  int             `json:"barbers"`
}

type BarbershopReport struct {
	Period  Period        `json:"period"`
	Summary BarberSummary `json:"summary"`
	Barbers []Breakdown   `json:"barbers"`
}
