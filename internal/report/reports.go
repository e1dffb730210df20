package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/domain"
)

// Config carries the business ratios the reports fall back on when the
// records do not hold real figures.
type Config struct {
	TaxRatio           decimal.Decimal
	COGSRatio          decimal.Decimal
	PPNRate            decimal.Decimal
	InputTaxCategories []string
	LowStockThreshold  int
	TopItems           int
}

func DefaultConfig() Config {
	return Config{
		TaxRatio:          decimal.RequireFromString("0.11"),
		COGSRatio:         decimal.RequireFromString("0.15"),
		PPNRate:           decimal.RequireFromString("0.11"),
		LowStockThreshold: 5,
		TopItems:          10,
	}
}

func saleTime(s domain.Sale) time.Time {
	return s.OccurredAt()
}

func saleTotal(s domain.Sale) decimal.Decimal {
	return s.Total()
}

func expenseTime(e domain.Expense) time.Time {
	return e.OccurredAt()
}

func expenseAmount(e domain.Expense) decimal.Decimal {
	return e.Amount
}

func counted(sales []domain.Sale) []domain.Sale {
	out := make([]domain.Sale, 0, len(sales))
	for _, s := range sales {
		if s.Counted() {
			out = append(out, s)
		}
	}
	return out
}

// saleLine is one sold item with its parent sale, for item-level breakdowns.
type saleLine struct {
	sale domain.Sale
	item domain.SaleItem
}

func lines(sales []domain.Sale, rng DateRange) []saleLine {
	out := make([]saleLine, 0, len(sales)*2)
	for _, s := range sales {
		if !rng.Contains(s.OccurredAt()) {
			continue
		}
		for _, item := range s.Items {
			out = append(out, saleLine{sale: s, item: item})
		}
	}
	return out
}

func Cashflow(sales []domain.Sale, expenses []domain.Expense, rng DateRange) domain.CashflowReport {
	sales = counted(sales)
	in := Aggregate(sales, rng, saleTime, func(s domain.Sale) string { return rng.DayKey(s.OccurredAt()) }, saleTotal)
	out := Aggregate(expenses, rng, expenseTime, func(e domain.Expense) string { return rng.DayKey(e.OccurredAt()) }, expenseAmount)

	days := map[string]*domain.CashflowDay{}
	day := func(key string) *domain.CashflowDay {
		d, ok := days[key]
		if !ok {
			d = &domain.CashflowDay{Date: key, CashIn: decimal.Zero, CashOut: decimal.Zero, Net: decimal.Zero}
			days[key] = d
		}
		return d
	}
	for _, b := range in.Buckets {
		day(b.Key).CashIn = b.Total
	}
	for _, b := range out.Buckets {
		day(b.Key).CashOut = b.Total
	}

	daily := make([]domain.CashflowDay, 0, len(days))
	for _, d := range days {
		d.Net = d.CashIn.Sub(d.CashOut)
		daily = append(daily, *d)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return domain.CashflowReport{
		Period: rng.Period(),
		Summary: domain.CashflowSummary{
			CashIn:  in.Total,
			CashOut: out.Total,
			Net:     in.Total.Sub(out.Total),
		},
		Daily: daily,
	}
}

// ProfitLoss uses recorded sale tax and product cost prices when present and
// the configured ratios otherwise. A zero ratio disables its estimate. Fields
// computed even partly from a ratio are listed in Estimated.
func ProfitLoss(sales []domain.Sale, expenses []domain.Expense, products []domain.Product, rng DateRange, cfg Config) domain.ProfitLossReport {
	sales = counted(sales)
	revenue := Aggregate(sales, rng, saleTime, func(domain.Sale) string { return "" }, saleTotal)
	recordedTax := Aggregate(sales, rng, saleTime, func(domain.Sale) string { return "" }, func(s domain.Sale) decimal.Decimal { return s.Tax })
	opex := Aggregate(expenses, rng, expenseTime, func(e domain.Expense) string { return categoryKey(e.Category.String()) }, expenseAmount)

	costs := map[domain.ID]decimal.Decimal{}
	for _, p := range products {
		if p.CostPrice.IsPositive() {
			costs[p.ID] = p.CostPrice
		}
	}
	// Sales without items count as uncosted revenue at their total.
	recordedCOGS, costed, uncosted := decimal.Zero, decimal.Zero, decimal.Zero
	for _, s := range sales {
		if !rng.Contains(s.OccurredAt()) {
			continue
		}
		if len(s.Items) == 0 {
			uncosted = uncosted.Add(s.Total())
			continue
		}
		for _, item := range s.Items {
			cost, ok := costs[item.ProductID]
			if !ok {
				uncosted = uncosted.Add(item.LineTotal())
				continue
			}
			recordedCOGS = recordedCOGS.Add(cost.Mul(decimal.NewFromInt(int64(item.Qty))))
			costed = costed.Add(item.LineTotal())
		}
	}

	estimated := []string{}
	gross := revenue.Total
	tax := recordedTax.Total
	if tax.IsZero() && gross.IsPositive() && cfg.TaxRatio.IsPositive() {
		tax = gross.Mul(cfg.TaxRatio).Round(2)
		estimated = append(estimated, "tax_output")
	}
	net := gross.Sub(tax)
	cogs := recordedCOGS
	// The ratio covers only the share of net revenue whose products carry
	// no cost price.
	if net.IsPositive() && uncosted.IsPositive() && cfg.COGSRatio.IsPositive() {
		share := uncosted.Div(costed.Add(uncosted))
		cogs = cogs.Add(net.Mul(share).Mul(cfg.COGSRatio)).Round(2)
		estimated = append(estimated, "cogs")
	}
	grossProfit := net.Sub(cogs)

	return domain.ProfitLossReport{
		Period: rng.Period(),
		Summary: domain.ProfitLossSummary{
			RevenueGross:      gross,
			TaxOutput:         tax,
			RevenueNet:        net,
			COGS:              cogs,
			GrossProfit:       grossProfit,
			OperatingExpenses: opex.Total,
			NetProfit:         grossProfit.Sub(opex.Total),
		},
		Expenses:  opex.Buckets,
		Estimated: estimated,
	}
}

func Sales(sales []domain.Sale, rng DateRange, cfg Config) domain.SalesReport {
	sales = counted(sales)
	noKey := func(domain.Sale) string { return "" }
	total := Aggregate(sales, rng, saleTime, func(s domain.Sale) string { return rng.DayKey(s.OccurredAt()) }, saleTotal)
	gross := Aggregate(sales, rng, saleTime, noKey, func(s domain.Sale) decimal.Decimal {
		if !s.Subtotal.IsZero() {
			return s.Subtotal
		}
		return SumBy(s.Items, domain.SaleItem.LineTotal)
	})
	discount := Aggregate(sales, rng, saleTime, noKey, func(s domain.Sale) decimal.Decimal { return s.Discount })
	tax := Aggregate(sales, rng, saleTime, noKey, func(s domain.Sale) decimal.Decimal { return s.Tax })
	cashiers := Aggregate(sales, rng, saleTime, func(s domain.Sale) string { return labelOr(s.Cashier, "unknown") }, saleTotal)

	type paymentLine struct {
		at     time.Time
		method string
		amount decimal.Decimal
	}
	payments := make([]paymentLine, 0, len(sales))
	for _, s := range sales {
		if len(s.Payments) == 0 {
			payments = append(payments, paymentLine{at: s.OccurredAt(), method: "cash", amount: s.Total()})
			continue
		}
		for _, p := range s.Payments {
			payments = append(payments, paymentLine{at: s.OccurredAt(), method: labelOr(strings.ToLower(p.Method), "cash"), amount: p.Amount})
		}
	}
	byMethod := Aggregate(payments, rng,
		func(p paymentLine) time.Time { return p.at },
		func(p paymentLine) string { return p.method },
		func(p paymentLine) decimal.Decimal { return p.amount })

	items := Aggregate(lines(sales, rng), rng, nil,
		func(l saleLine) string { return labelOr(l.item.Name, "unnamed") },
		func(l saleLine) decimal.Decimal { return decimal.NewFromInt(int64(l.item.Qty)) })

	average := decimal.Zero
	if total.Count > 0 {
		average = total.Total.Div(decimal.NewFromInt(int64(total.Count))).Round(2)
	}

	return domain.SalesReport{
		Period: rng.Period(),
		Summary: domain.SalesSummary{
			Transactions:  total.Count,
			Gross:         gross.Total,
			Discount:      discount.Total,
			Tax:           tax.Total,
			GrandTotal:    total.Total,
			AverageTicket: average,
		},
		Daily:    total.Buckets,
		Payments: byMethod.Buckets,
		Cashiers: cashiers.Buckets,
		TopItems: TopByTotal(items.Buckets, cfg.TopItems),
	}
}

func Inventory(products []domain.Product, sales []domain.Sale, rng DateRange, cfg Config) domain.InventoryReport {
	summary := domain.InventorySummary{StockValuePrice: decimal.Zero, StockValueCost: decimal.Zero}
	for _, p := range products {
		summary.Products++
		if p.Active {
			summary.ActiveProducts++
		}
		summary.UnitsOnHand += p.Stock.Int()
		units := decimal.NewFromInt(int64(p.Stock))
		summary.StockValuePrice = summary.StockValuePrice.Add(p.Price.Mul(units))
		summary.StockValueCost = summary.StockValueCost.Add(p.CostPrice.Mul(units))
		switch {
		case p.Stock <= 0:
			summary.OutOfStockProducts++
		case p.Stock.Int() <= cfg.LowStockThreshold:
			summary.LowStockProducts++
		}
	}

	categories := Aggregate(products, rng, nil,
		func(p domain.Product) string { return categoryKey(p.Category.String()) },
		func(p domain.Product) decimal.Decimal { return p.Price.Mul(decimal.NewFromInt(int64(p.Stock))) })

	names := map[domain.ID]string{}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	sold := Aggregate(lines(counted(sales), rng), rng, nil,
		func(l saleLine) string {
			if name, ok := names[l.item.ProductID]; ok && name != "" {
				return name
			}
			return labelOr(l.item.Name, "unnamed")
		},
		func(l saleLine) decimal.Decimal { return decimal.NewFromInt(int64(l.item.Qty)) })

	return domain.InventoryReport{
		Period:     rng.Period(),
		Summary:    summary,
		Categories: categories.Buckets,
		UnitsSold:  sold.Buckets,
	}
}

// Tax treats recorded sale tax as output tax. Sales without recorded tax and
// input-tax expenses are taken to be PPN-inclusive and the tax is extracted
// at the configured rate.
func Tax(sales []domain.Sale, expenses []domain.Expense, rng DateRange, cfg Config) domain.TaxReport {
	days := map[string]*domain.TaxDay{}
	day := func(key string) *domain.TaxDay {
		d, ok := days[key]
		if !ok {
			d = &domain.TaxDay{Date: key, Base: decimal.Zero, OutputTax: decimal.Zero, InputTax: decimal.Zero}
			days[key] = d
		}
		return d
	}

	summary := domain.TaxSummary{TaxableBase: decimal.Zero, OutputTax: decimal.Zero, InputTax: decimal.Zero, NetPayable: decimal.Zero}
	for _, s := range counted(sales) {
		if !rng.Contains(s.OccurredAt()) {
			continue
		}
		total := s.Total()
		tax := s.Tax
		if tax.IsZero() {
			tax = inclusiveTax(total, cfg.PPNRate)
		}
		base := total.Sub(tax)
		d := day(rng.DayKey(s.OccurredAt()))
		d.Base = d.Base.Add(base)
		d.OutputTax = d.OutputTax.Add(tax)
		summary.TaxableBase = summary.TaxableBase.Add(base)
		summary.OutputTax = summary.OutputTax.Add(tax)
	}

	inputCategories := map[string]bool{}
	for _, c := range cfg.InputTaxCategories {
		inputCategories[categoryKey(c)] = true
	}
	for _, e := range expenses {
		if !rng.Contains(e.OccurredAt()) || !inputCategories[categoryKey(e.Category.String())] {
			continue
		}
		tax := inclusiveTax(e.Amount, cfg.PPNRate)
		d := day(rng.DayKey(e.OccurredAt()))
		d.InputTax = d.InputTax.Add(tax)
		summary.InputTax = summary.InputTax.Add(tax)
	}
	summary.NetPayable = summary.OutputTax.Sub(summary.InputTax)

	daily := make([]domain.TaxDay, 0, len(days))
	for _, d := range days {
		daily = append(daily, *d)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return domain.TaxReport{Period: rng.Period(), Rate: cfg.PPNRate, Summary: summary, Daily: daily}
}

// Barbershop credits each sold service to item.barber, or to the cashier
// when the line has no barber.
func Barbershop(sales []domain.Sale, rng DateRange) domain.BarbershopReport {
	byBarber := Aggregate(lines(counted(sales), rng), rng, nil,
		func(l saleLine) string {
			if strings.TrimSpace(l.item.Barber) != "" {
				return strings.TrimSpace(l.item.Barber)
			}
			return labelOr(l.sale.Cashier, "unassigned")
		},
		func(l saleLine) decimal.Decimal { return l.item.LineTotal() })

	return domain.BarbershopReport{
		Period: rng.Period(),
		Summary: domain.BarberSummary{
			Revenue:  byBarber.Total,
			Services: byBarber.Count,
			Barbers:  len(byBarber.Buckets),
		},
		Barbers: byBarber.Buckets,
	}
}

func inclusiveTax(total, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() || total.IsZero() {
		return decimal.Zero
	}
	base := total.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
	return total.Sub(base)
}

func categoryKey(raw string) string {
	return labelOr(strings.ToLower(raw), "uncategorized")
}

func labelOr(value string, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
