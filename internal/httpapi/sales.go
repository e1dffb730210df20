package httpapi

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/receipt"
)

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	rng, err := a.service.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sales, err := a.service.ListSales(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, sales)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, sale)
}

func (a *API) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := a.service.GetInvoice(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, invoice)
}

// handleReceipt renders a sale as printable html, raw ESC/POS bytes or the
// json layout with the ESC/POS stream base64-encoded.
func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "html" && format != "escpos" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
		return
	}

	printed, err := a.service.Receipt(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	setSourceHeaders(w, printed.Source, "")

	switch format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(printed.HTML)
	case "escpos":
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "receipt-"+printed.Receipt.Number+".bin"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(printed.ESCPOS)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"receipt":       printed.Receipt,
			"preview_text":  strings.Join(printed.Receipt.Text(), "\n"),
			"escpos_base64": base64.StdEncoding.EncodeToString(printed.ESCPOS),
			"source":        printed.Source,
		})
	}
}

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	rng, err := a.service.ParseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	expenses, err := a.service.ListExpenses(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, expenses)
}

func (a *API) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := a.service.CreateExpense(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusCreated, expense)
}

func (a *API) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := a.service.UpdateExpense(r.Context(), pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, expense)
}

func (a *API) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	source, err := a.service.DeleteExpense(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeDeleted(w, source)
}

func writeDeleted(w http.ResponseWriter, source domain.Source) {
	setSourceHeaders(w, source, "")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "source": source})
}

func (a *API) handlePrinterTest(w http.ResponseWriter, r *http.Request) {
	page, err := a.service.PrinterTest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) handleCashDrawer(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"escpos_base64": base64.StdEncoding.EncodeToString(receipt.DrawerKick()),
	})
}
