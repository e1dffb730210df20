package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"kasirinaja/backoffice/internal/apiclient"
	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/receipt"
	"kasirinaja/backoffice/internal/report"
)

const (
	listPageSize = 200
	maxListPages = 50
)

// listAll walks a paginated list endpoint until the last page. Endpoints
// that answer without pagination meta are read once.
func listAll[T any](ctx context.Context, api *apiclient.Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", strconv.Itoa(listPageSize))

	var all []T
	for page := 1; page <= maxListPages; page++ {
		query.Set("page", strconv.Itoa(page))
		var batch []T
		meta, err := api.GetPageWithSetupFallback(ctx, path, query, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if meta.LastPage <= page || len(batch) == 0 {
			break
		}
	}
	if all == nil {
		all = []T{}
	}
	return all, nil
}

// ListSales returns the sales inside rng.
func (s *Service) ListSales(ctx context.Context, rng report.DateRange) (domain.Sourced[[]domain.Sale], error) {
	return withFallback(ctx, s, "sales",
		func(ctx context.Context) ([]domain.Sale, error) {
			sales, err := listAll[domain.Sale](ctx, s.api, "/sales", rangeQuery(rng))
			if err != nil {
				return nil, err
			}
			writeThrough(ctx, s.local.Sales, sales)
			return sales, nil
		},
		func(ctx context.Context) ([]domain.Sale, error) {
			return s.local.Sales.List(ctx, func(sale domain.Sale) bool {
				return rng.Contains(sale.OccurredAt())
			})
		},
	)
}

func (s *Service) GetSale(ctx context.Context, id domain.ID) (domain.Sourced[domain.Sale], error) {
	return withFallback(ctx, s, "sales",
		func(ctx context.Context) (domain.Sale, error) {
			var sale domain.Sale
			if err := s.api.Get(ctx, "/sales/"+url.PathEscape(id.String()), nil, &sale); err != nil {
				return sale, err
			}
			return sale, nil
		},
		func(ctx context.Context) (domain.Sale, error) {
			return s.local.Sales.Get(ctx, id)
		},
	)
}

// GetInvoice reads /invoices/{id}. An invoice is a sale under another route,
// so a missing invoice falls through to the sale itself.
func (s *Service) GetInvoice(ctx context.Context, id domain.ID) (domain.Sourced[domain.Sale], error) {
	var invoice domain.Sale
	err := s.api.Get(apiContext(ctx), "/invoices/"+url.PathEscape(id.String()), nil, &invoice)
	if err == nil {
		return domain.Sourced[domain.Sale]{Data: invoice, Source: domain.SourceAPI}, nil
	}
	var statusErr *apiclient.StatusError
	if !apiclient.IsFallbackable(err) && !(errors.As(err, &statusErr) && statusErr.NotFound()) {
		return domain.Sourced[domain.Sale]{}, translate(err)
	}
	return s.GetSale(ctx, id)
}

type PrintedReceipt struct {
	Receipt receipt.Receipt
	HTML    []byte
	ESCPOS  []byte
	Source  domain.Source
}

// Receipt lays out a sale for printing with the current settings' rounding
// policy and paper width.
func (s *Service) Receipt(ctx context.Context, id domain.ID) (PrintedReceipt, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return PrintedReceipt{}, err
	}
	settings, err := s.GetSettings(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return PrintedReceipt{}, err
	}

	built, err := receipt.Build(sale.Data, settings.Data)
	if err != nil {
		return PrintedReceipt{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	html, err := built.HTML()
	if err != nil {
		return PrintedReceipt{}, fmt.Errorf("render receipt %s: %w", id, err)
	}
	return PrintedReceipt{Receipt: built, HTML: html, ESCPOS: built.ESCPOS(), Source: sale.Source}, nil
}
