// Package payment defines the external payment capability the
// purchase flow consumes. The provider protocol itself is out of
// scope; the coordinator only ever sees the approval result.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrProcessorUnavailable is returned before any approval, so it is
// always safe to retry: no money has moved and no state has mutated.
var ErrProcessorUnavailable = errors.New("payment processor unavailable")

// Approval is the capture result handed back by the processor.
type Approval struct {
	TransactionID string `json:"transaction_id"`
	PayerName     string `json:"payer_name"`
	PayerEmail    string `json:"payer_email"`
}

// Processor initiates and captures a charge.
type Processor interface {
	Initiate(ctx context.Context, amount int64, description string) (*Approval, error)
}

// SandboxProcessor approves every charge with a generated transaction
// id. Used in development and tests.
type SandboxProcessor struct {
	PayerName  string
	PayerEmail string
}

func (p *SandboxProcessor) Initiate(ctx context.Context, amount int64, description string) (*Approval, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrProcessorUnavailable)
	}
	return &Approval{
		TransactionID: "SANDBOX-" + uuid.NewString(),
		PayerName:     p.PayerName,
		PayerEmail:    p.PayerEmail,
	}, nil
}
