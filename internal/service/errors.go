package service

import (
	"errors"
	"fmt"
)

var (
	ErrCatalogUnavailable = errors.New("catalog backing store is unavailable")
	ErrLockUnavailable    = errors.New("another checkout is in progress, try again shortly")
	ErrLockAcquireFailed  = errors.New("failed to acquire the checkout lock")
	ErrPurchaseRejected   = errors.New("purchase rejected")
	ErrPurchaseFailed     = errors.New("purchase failed")
	ErrPaymentFailed      = errors.New("payment failed before approval")
	ErrUploadFailed       = errors.New("image upload failed")
)

// PurchaseRejectedError reports a commit precondition failure that
// happened after payment approval. Money may already have moved, so it
// carries the external transaction id for manual reconciliation and is
// never silently dropped.
type PurchaseRejectedError struct {
	Reason        string
	TileID        int
	TransactionID string
}

func (e *PurchaseRejectedError) Error() string {
	return fmt.Sprintf("purchase of tile %d rejected: %s (payment transaction %s)",
		e.TileID, e.Reason, e.TransactionID)
}

func (e *PurchaseRejectedError) Is(target error) bool {
	return target == ErrPurchaseRejected
}
