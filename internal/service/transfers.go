package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/transfer"
)

// Transfers are owned by the backend: every operation here is API-only and
// state rules are checked before anything is sent.

type TransferDetail struct {
	domain.StockTransfer
	NextActions []domain.TransferStatus `json:"next_actions"`
}

func detail(t domain.StockTransfer) TransferDetail {
	t.Status = domain.TransferStatus(strings.ToLower(strings.TrimSpace(string(t.Status))))
	if t.Items == nil {
		t.Items = []domain.TransferItem{}
	}
	return TransferDetail{StockTransfer: t, NextActions: transfer.NextActions(t.Status)}
}

func transferPath(id domain.ID, suffix string) string {
	return "/stock-transfers/" + url.PathEscape(id.String()) + suffix
}

func (s *Service) ListTransfers(ctx context.Context, status string) (domain.Sourced[[]TransferDetail], error) {
	return apiOnly(ctx, func(ctx context.Context) ([]TransferDetail, error) {
		query := url.Values{}
		if status = strings.TrimSpace(status); status != "" {
			query.Set("status", strings.ToLower(status))
		}
		transfers, err := listAll[domain.StockTransfer](ctx, s.api, "/stock-transfers", query)
		if err != nil {
			return nil, err
		}
		out := make([]TransferDetail, 0, len(transfers))
		for _, t := range transfers {
			out = append(out, detail(t))
		}
		return out, nil
	})
}

func (s *Service) GetTransfer(ctx context.Context, id domain.ID) (domain.Sourced[TransferDetail], error) {
	return apiOnly(ctx, func(ctx context.Context) (TransferDetail, error) {
		return s.fetchTransfer(ctx, id)
	})
}

func (s *Service) fetchTransfer(ctx context.Context, id domain.ID) (TransferDetail, error) {
	var t domain.StockTransfer
	if err := s.api.Get(ctx, transferPath(id, ""), nil, &t); err != nil {
		return TransferDetail{}, err
	}
	return detail(t), nil
}

func validateTransferItems(items []domain.TransferItemRequest) error {
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: item %d has no product_id", ErrInvalidInput, i+1)
		}
		if err := transfer.ValidateQuantity(item.Quantity); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidInput, i+1, err)
		}
	}
	return nil
}

// CreateTransfer opens a transfer in draft.
func (s *Service) CreateTransfer(ctx context.Context, req domain.TransferCreateRequest) (domain.Sourced[TransferDetail], error) {
	hasLocations := strings.TrimSpace(req.FromLocation) != "" && strings.TrimSpace(req.ToLocation) != ""
	hasBranches := strings.TrimSpace(req.FromBranchID) != "" && strings.TrimSpace(req.ToBranchID) != ""
	if !hasLocations && !hasBranches {
		return domain.Sourced[TransferDetail]{}, fmt.Errorf("%w: source and destination are required", ErrInvalidInput)
	}
	if (hasLocations && req.FromLocation == req.ToLocation) || (hasBranches && req.FromBranchID == req.ToBranchID) {
		return domain.Sourced[TransferDetail]{}, fmt.Errorf("%w: source and destination must differ", ErrInvalidInput)
	}
	if err := validateTransferItems(req.Items); err != nil {
		return domain.Sourced[TransferDetail]{}, err
	}

	return apiOnly(ctx, func(ctx context.Context) (TransferDetail, error) {
		var created domain.StockTransfer
		if err := s.api.Post(ctx, "/stock-transfers", req, &created); err != nil {
			return TransferDetail{}, err
		}
		if created.Status == "" {
			created.Status = domain.TransferDraft
		}
		return detail(created), nil
	})
}

// editableTransfer loads a transfer and fails with ErrTransferLocked unless
// it is still a draft.
func (s *Service) editableTransfer(ctx context.Context, id domain.ID) (TransferDetail, error) {
	current, err := s.fetchTransfer(apiContext(ctx), id)
	if err != nil {
		return TransferDetail{}, translate(err)
	}
	if err := transfer.ValidateItemEdit(current.Status); err != nil {
		return TransferDetail{}, err
	}
	return current, nil
}

func (s *Service) AddTransferItem(ctx context.Context, id domain.ID, req domain.TransferItemRequest) (domain.Sourced[TransferDetail], error) {
	if err := validateTransferItems([]domain.TransferItemRequest{req}); err != nil {
		return domain.Sourced[TransferDetail]{}, err
	}
	if _, err := s.editableTransfer(ctx, id); err != nil {
		return domain.Sourced[TransferDetail]{}, err
	}
	return apiOnly(ctx, func(ctx context.Context) (TransferDetail, error) {
		if err := s.api.Post(ctx, transferPath(id, "/items"), req, nil); err != nil {
			return TransferDetail{}, err
		}
		return s.fetchTransfer(ctx, id)
	})
}

func (s *Service) UpdateTransferItem(ctx context.Context, id domain.ID, itemID domain.ID, quantity int) (domain.Sourced[TransferDetail], error) {
	if err := transfer.ValidateQuantity(quantity); err != nil {
		return domain.Sourced[TransferDetail]{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	current, err := s.editableTransfer(ctx, id)
	if err != nil {
		return domain.Sourced[TransferDetail]{}, err
	}
	if !hasItem(current.Items, itemID) {
		return domain.Sourced[TransferDetail]{}, fmt.Errorf("%w: transfer %s has no item %s", ErrNotFound, id, itemID)
	}
	return apiOnly(ctx, func(ctx context.Context) (TransferDetail, error) {
		body := map[string]int{"quantity": quantity}
		if err := s.api.Put(ctx, transferPath(id, "/items/"+url.PathEscape(itemID.String())), body, nil); err != nil {
			return TransferDetail{}, err
		}
		return s.fetchTransfer(ctx, id)
	})
}

func (s *Service) RemoveTransferItem(ctx context.Context, id domain.ID, itemID domain.ID) (domain.Sourced[TransferDetail], error) {
	current, err := s.editableTransfer(ctx, id)
	if err != nil {
		return domain.Sourced[TransferDetail]{}, err
	}
	if !hasItem(current.Items, itemID) {
		return domain.Sourced[TransferDetail]{}, fmt.Errorf("%w: transfer %s has no item %s", ErrNotFound, id, itemID)
	}
	return apiOnly(ctx, func(ctx context.Context) (TransferDetail, error) {
		if err := s.api.Delete(ctx, transferPath(id, "/items/"+url.PathEscape(itemID.String()))); err != nil {
			return TransferDetail{}, err
		}
		return s.fetchTransfer(ctx, id)
	})
}

func hasItem(items []domain.TransferItem, itemID domain.ID) bool {
	for _, item := range items {
		if item.ID == itemID {
			return true
		}
	}
	return false
}

// TransitionTransfer moves a transfer to a new status. Illegal transitions
// fail with transfer.ErrIllegalTransition and are never sent.
func (s *Service) TransitionTransfer(ctx context.Context, id domain.ID, req domain.TransferStatusRequest) (domain.Sourced[TransferDetail], error) {
	next := domain.TransferStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !transfer.Known(next) {
		return domain.Sourced[TransferDetail]{}, fmt.Errorf("%w: %v", ErrInvalidInput, transfer.ErrUnknownStatus)
	}
	current, err := s.fetchTransfer(apiContext(ctx), id)
	if err != nil {
		return domain.Sourced[TransferDetail]{}, translate(err)
	}
	if err := transfer.ValidateTransition(current.Status, next); err != nil {
		return domain.Sourced[TransferDetail]{}, err
	}
	if next != domain.TransferCancelled && len(current.Items) == 0 {
		return domain.Sourced[TransferDetail]{}, fmt.Errorf("%w: transfer %s has no items", ErrInvalidInput, id)
	}

	return apiOnly(ctx, func(ctx context.Context) (TransferDetail, error) {
		if err := s.api.Post(ctx, transferPath(id, "/status"), domain.TransferStatusRequest{Status: next}, nil); err != nil {
			return TransferDetail{}, err
		}
		return s.fetchTransfer(ctx, id)
	})
}
