package transfer

import (
	"errors"
	"fmt"

	"kasirinaja/backoffice/internal/domain"
)

var (
	ErrIllegalTransition = errors.New("illegal transfer status transition")
	ErrTransferLocked    = errors.New("transfer items can only change while in draft")
	ErrUnknownStatus     = errors.New("unknown transfer status")
)

var transitions = map[domain.TransferStatus][]domain.TransferStatus{
	domain.TransferDraft:    {domain.TransferApproved, domain.TransferCancelled},
	domain.TransferApproved: {domain.TransferShipped},
	domain.TransferShipped:  {domain.TransferReceived},
}

func Known(status domain.TransferStatus) bool {
	switch status {
	case domain.TransferDraft, domain.TransferApproved, domain.TransferShipped, domain.TransferReceived, domain.TransferCancelled:
		return true
	}
	return false
}

// NextActions lists the statuses a transfer in status may move to. Received
// and cancelled transfers are terminal.
func NextActions(status domain.TransferStatus) []domain.TransferStatus {
	return append([]domain.TransferStatus(nil), transitions[status]...)
}

func CanTransition(from, to domain.TransferStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to domain.TransferStatus) error {
	if !Known(to) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// ValidateItemEdit rejects item add, update and remove outside draft.
func ValidateItemEdit(status domain.TransferStatus) error {
	if status != domain.TransferDraft {
		return fmt.Errorf("%w (status %s)", ErrTransferLocked, status)
	}
	return nil
}

func ValidateQuantity(qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", qty)
	}
	return nil
}
