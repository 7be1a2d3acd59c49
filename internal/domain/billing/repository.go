package billing

import (
	"context"

	"github.com/google/uuid"
)

// BillRepository is the write side of the bill store. Bills are immutable
// once created; the only mutation is the soft-delete flag.
type BillRepository interface {
	// Create persists a finalized bill with its line items and adjustments.
	Create(ctx context.Context, bill *Bill) error

	// FindByID loads a bill scoped to its owning retailer.
	FindByID(ctx context.Context, retailerID, id uuid.UUID) (*Bill, error)

	// SoftDelete marks a bill deleted so every aggregation skips it.
	SoftDelete(ctx context.Context, retailerID, id uuid.UUID) error
}
