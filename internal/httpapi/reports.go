package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/export"
	"kasirinaja/backoffice/internal/report"
	"kasirinaja/backoffice/internal/service"
)

type reportResult struct {
	payload any
	source  domain.Source
	reason  string
	doc     export.Document
}

type reportRunner func(ctx context.Context, svc *service.Service, rng report.DateRange) (reportResult, error)

func runReport[R any](fetch func(*service.Service, context.Context, report.DateRange) (domain.Sourced[R], error), build func(R) export.Document) reportRunner {
	return func(ctx context.Context, svc *service.Service, rng report.DateRange) (reportResult, error) {
		result, err := fetch(svc, ctx, rng)
		if err != nil {
			return reportResult{}, err
		}
		doc := build(result.Data)
		doc.Source = result.Source
		return reportResult{payload: result, source: result.Source, reason: result.FallbackReason, doc: doc}, nil
	}
}

var reportRunners = map[string]reportRunner{
	"cashflow":         runReport((*service.Service).CashflowReport, export.FromCashflow),
	"profit-loss":      runReport((*service.Service).ProfitLossReport, export.FromProfitLoss),
	"inventory":        runReport((*service.Service).InventoryReport, export.FromInventory),
	"tax":              runReport((*service.Service).TaxReport, export.FromTax),
	"barbershop-sales": runReport((*service.Service).BarbershopSalesReport, export.FromBarbershop),
	"sales":            runReport((*service.Service).SalesReport, export.FromSales),
}

// handleReport serves every report as JSON or as a csv, xlsx or html export.
func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	run, ok := reportRunners[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown report %q", name))
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	switch format {
	case "json", "csv", "xlsx", "html":
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
		return
	}

	rng, err := a.service.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := run(r.Context(), a.service, rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	setSourceHeaders(w, result.source, result.reason)

	var (
		body        []byte
		contentType string
		attachment  bool
	)
	switch format {
	case "json":
		writeJSON(w, http.StatusOK, result.payload)
		return
	case "csv":
		body, err = export.CSV(result.doc)
		contentType = "text/csv; charset=utf-8"
		attachment = true
	case "xlsx":
		body, err = export.XLSX(result.doc)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		attachment = true
	case "html":
		body, err = export.HTML(result.doc)
		contentType = "text/html; charset=utf-8"
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("render %s report as %s: %w", name, format, err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.doc.Filename(format)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
