package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sort"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/report"
)

func rangeQuery(rng report.DateRange) url.Values {
	query := url.Values{}
	for key, value := range rng.Query() {
		query.Set(key, value)
	}
	return query
}

// fetchReport reads a server-computed report, serving repeated ranges from
// the report cache. Reports arrive either as {"summary": {...}, ...} or with
// the summary fields flattened into the top-level object; flat points at the
// summary to fill in the second case.
func fetchReport[R any](ctx context.Context, s *Service, path string, rng report.DateRange, flat func(*R) any) (R, error) {
	var out R
	query := rangeQuery(rng)
	cacheKey := path + "?" + query.Encode()

	raw, hit := s.cachedReport(ctx, cacheKey)
	if !hit {
		var payload json.RawMessage
		if err := s.api.GetWithSetupFallback(ctx, path, query, &payload); err != nil {
			return out, err
		}
		raw = payload
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &apiclient.DecodeError{Path: path, Err: err}
	}
	if flat != nil && !hasKey(raw, "summary") {
		if err := json.Unmarshal(raw, flat(&out)); err != nil {
			return out, &apiclient.DecodeError{Path: path, Err: err}
		}
	}

	if !hit {
		s.storeReport(ctx, cacheKey, raw)
	}
	return out, nil
}

func (s *Service) cachedReport(ctx context.Context, key string) ([]byte, bool) {
	if s.opts.ReportCacheTTL <= 0 {
		return nil, false
	}
	raw, ok, err := s.reports.Get(ctx, key)
	if err != nil {
		log.Printf("[service] WARN: report cache read %s: %v", key, err)
		return nil, false
	}
	return raw, ok
}

func (s *Service) storeReport(ctx context.Context, key string, raw []byte) {
	if s.opts.ReportCacheTTL <= 0 {
		return
	}
	if err := s.reports.Set(ctx, key, raw, s.opts.ReportCacheTTL); err != nil {
		log.Printf("[service] WARN: report cache write %s: %v", key, err)
	}
}

func hasKey(raw []byte, key string) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, ok := obj[key]
	return ok
}

// localDataset is what the local reports are computed from.
type localDataset struct {
	sales    []domain.Sale
	expenses []domain.Expense
	products []domain.Product
}

func (s *Service) loadLocal(ctx context.Context, withExpenses bool, withProducts bool) (localDataset, error) {
	var data localDataset
	var err error
	if data.sales, err = s.local.Sales.List(ctx, nil); err != nil {
		return data, err
	}
	if withExpenses {
		if data.expenses, err = s.local.Expenses.List(ctx, nil); err != nil {
			return data, err
		}
	}
	if withProducts {
		if data.products, err = s.local.ListProducts(ctx); err != nil {
			return data, err
		}
	}
	return data, nil
}

func withPeriod(period *domain.Period, rng report.DateRange) {
	if period.From == "" && period.To == "" {
		*period = rng.Period()
	}
}

func (s *Service) CashflowReport(ctx context.Context, rng report.DateRange) (domain.Sourced[domain.CashflowReport], error) {
	return withFallback(ctx, s, "cashflow",
		func(ctx context.Context) (domain.CashflowReport, error) {
			out, err := fetchReport(ctx, s, "/reports/cashflow", rng, func(r *domain.CashflowReport) any { return &r.Summary })
			withPeriod(&out.Period, rng)
			return out, err
		},
		func(ctx context.Context) (domain.CashflowReport, error) {
			data, err := s.loadLocal(ctx, true, false)
			if err != nil {
				return domain.CashflowReport{}, err
			}
			return report.Cashflow(data.sales, data.expenses, rng), nil
		},
	)
}

func (s *Service) ProfitLossReport(ctx context.Context, rng report.DateRange) (domain.Sourced[domain.ProfitLossReport], error) {
	return withFallback(ctx, s, "profit_loss",
		func(ctx context.Context) (domain.ProfitLossReport, error) {
			out, err := fetchReport(ctx, s, "/reports/profit-loss", rng, func(r *domain.ProfitLossReport) any { return &r.Summary })
			withPeriod(&out.Period, rng)
			return out, err
		},
		func(ctx context.Context) (domain.ProfitLossReport, error) {
			data, err := s.loadLocal(ctx, true, true)
			if err != nil {
				return domain.ProfitLossReport{}, err
			}
			return report.ProfitLoss(data.sales, data.expenses, data.products, rng, s.opts.Reports), nil
		},
	)
}

func (s *Service) InventoryReport(ctx context.Context, rng report.DateRange) (domain.Sourced[domain.InventoryReport], error) {
	return withFallback(ctx, s, "inventory",
		func(ctx context.Context) (domain.InventoryReport, error) {
			out, err := fetchReport(ctx, s, "/reports/inventory", rng, func(r *domain.InventoryReport) any { return &r.Summary })
			withPeriod(&out.Period, rng)
			return out, err
		},
		func(ctx context.Context) (domain.InventoryReport, error) {
			data, err := s.loadLocal(ctx, false, true)
			if err != nil {
				return domain.InventoryReport{}, err
			}
			return report.Inventory(data.products, data.sales, rng, s.opts.Reports), nil
		},
	)
}

func (s *Service) TaxReport(ctx context.Context, rng report.DateRange) (domain.Sourced[domain.TaxReport], error) {
	return withFallback(ctx, s, "tax",
		func(ctx context.Context) (domain.TaxReport, error) {
			out, err := fetchReport(ctx, s, "/reports/tax", rng, func(r *domain.TaxReport) any { return &r.Summary })
			withPeriod(&out.Period, rng)
			if out.Rate.IsZero() {
				out.Rate = s.opts.Reports.PPNRate
			}
			return out, err
		},
		func(ctx context.Context) (domain.TaxReport, error) {
			data, err := s.loadLocal(ctx, true, false)
			if err != nil {
				return domain.TaxReport{}, err
			}
			return report.Tax(data.sales, data.expenses, rng, s.opts.Reports), nil
		},
	)
}

func (s *Service) BarbershopSalesReport(ctx context.Context, rng report.DateRange) (domain.Sourced[domain.BarbershopReport], error) {
	return withFallback(ctx, s, "barbershop_sales",
		func(ctx context.Context) (domain.BarbershopReport, error) {
			out, err := fetchReport(ctx, s, "/setup/reports/barbershop-sales", rng, func(r *domain.BarbershopReport) any { return &r.Summary })
			withPeriod(&out.Period, rng)
			sort.Slice(out.Barbers, func(i, j int) bool { return out.Barbers[i].Key < out.Barbers[j].Key })
			return out, err
		},
		func(ctx context.Context) (domain.BarbershopReport, error) {
			data, err := s.loadLocal(ctx, false, false)
			if err != nil {
				return domain.BarbershopReport{}, err
			}
			return report.Barbershop(data.sales, rng), nil
		},
	)
}

// SalesReport is computed here from the sales list in both paths; the tenant
// API has no dedicated sales report.
func (s *Service) SalesReport(ctx context.Context, rng report.DateRange) (domain.Sourced[domain.SalesReport], error) {
	sales, err := s.ListSales(ctx, rng)
	if err != nil {
		return domain.Sourced[domain.SalesReport]{}, err
	}
	return domain.Sourced[domain.SalesReport]{
		Data:           report.Sales(sales.Data, rng, s.opts.Reports),
		Source:         sales.Source,
		FallbackReason: sales.FallbackReason,
	}, nil
}
