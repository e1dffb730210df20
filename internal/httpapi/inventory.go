package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kasirinaja/backoffice/internal/domain"
)

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ProductFilter{
		Search:   strings.TrimSpace(query.Get("search")),
		Category: strings.TrimSpace(query.Get("category")),
		Page:     parsePositiveLimit(query.Get("page"), 1, 0),
		PerPage:  parsePositiveLimit(query.Get("per_page"), 20, 100),
	}
	products, err := a.service.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, products)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, product)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	source, err := a.service.DeleteProduct(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeDeleted(w, source)
}

func (a *API) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.AdjustStock(r.Context(), pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, product)
}

func (a *API) handleBarcode(w http.ResponseWriter, r *http.Request) {
	barcode, err := a.service.ProductBarcode(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, barcode)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.service.LowStockAlerts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, alerts)
}

func (a *API) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	productID := domain.ID(strings.TrimSpace(r.URL.Query().Get("product_id")))
	history, err := a.service.StockHistory(r.Context(), productID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, history)
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, categories)
}

func (a *API) handleClearInventory(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ClearInventory(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true, "source": domain.SourceLocal})
}

func (a *API) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := a.service.ListTransfers(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, transfers)
}

func (a *API) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	detail, err := a.service.GetTransfer(r.Context(), pathID(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, detail)
}

func (a *API) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	detail, err := a.service.CreateTransfer(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusCreated, detail)
}

func (a *API) handleAddTransferItem(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	detail, err := a.service.AddTransferItem(r.Context(), pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, detail)
}

func (a *API) handleUpdateTransferItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	detail, err := a.service.UpdateTransferItem(r.Context(), pathID(r, "id"), pathID(r, "itemID"), req.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, detail)
}

func (a *API) handleRemoveTransferItem(w http.ResponseWriter, r *http.Request) {
	detail, err := a.service.RemoveTransferItem(r.Context(), pathID(r, "id"), pathID(r, "itemID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, detail)
}

func (a *API) handleTransferStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(string(req.Status)) == "" {
		writeError(w, http.StatusBadRequest, errors.New("status is required"))
		return
	}
	detail, err := a.service.TransitionTransfer(r.Context(), pathID(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSourced(w, http.StatusOK, detail)
}
