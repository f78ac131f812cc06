package port

import (
	"context"

	"github.com/rl1809/sales-ledger/internal/core/domain"
)

type IdempotencyRepository interface {
	// Claim reserves requestID for one commit attempt, returns false if it
	// was already claimed.
	Claim(ctx context.Context, requestID string) (bool, error)

	// Get returns the record for requestID, or nil if there is none.
	Get(ctx context.Context, requestID string) (*domain.CommitRecord, error)

	// Save stores the progress of a claimed attempt.
	Save(ctx context.Context, record domain.CommitRecord) error

	// Release forgets a claim whose attempt failed before writing anything.
	Release(ctx context.Context, requestID string) error
}
