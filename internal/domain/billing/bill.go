package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/shared"
)

// AdjustmentKind classifies what an adjustment entry means to the finance
// engine. It is decided once when a bill is ingested; aggregations match on
// the kind, never on the display name.
type AdjustmentKind string

const (
	// AdjustmentPayment records money the customer handed over with this bill.
	AdjustmentPayment AdjustmentKind = "payment"
	// AdjustmentCarryForward records debt declared as inherited from the
	// customer's previous bill.
	AdjustmentCarryForward AdjustmentKind = "carry_forward"
	// AdjustmentOther covers every adjustment without engine semantics.
	AdjustmentOther AdjustmentKind = "other"
)

// AdjustmentDirection is the arithmetic sign of an adjustment entry.
type AdjustmentDirection string

const (
	DirectionAdd      AdjustmentDirection = "add"
	DirectionSubtract AdjustmentDirection = "subtract"
)

// Legacy display names that carried the kind semantics in the upstream data.
// Kept only for classification at ingestion and for presentation.
const (
	PaymentTag      = "Gởi"
	CarryForwardTag = "Toa cũ"
)

// ClassifyAdjustment maps a legacy (name, direction) pair to its kind.
// A payment is a subtracting "Gởi" entry; carried-forward debt is an adding
// "Toa cũ" entry. Everything else has no engine semantics.
func ClassifyAdjustment(name string, direction AdjustmentDirection) AdjustmentKind {
	switch {
	case name == PaymentTag && direction == DirectionSubtract:
		return AdjustmentPayment
	case name == CarryForwardTag && direction == DirectionAdd:
		return AdjustmentCarryForward
	default:
		return AdjustmentOther
	}
}

// LineItem is one sold line on a bill. Total is expected to equal
// Quantity x Price but stored drift is tolerated; which of the two a report
// uses is fixed per operation.
type LineItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// Adjustment is a named, signed monetary entry on a bill.
type Adjustment struct {
	Name      string              `json:"name"`
	Direction AdjustmentDirection `json:"direction"`
	Amount    decimal.Decimal     `json:"amount"`
	Kind      AdjustmentKind      `json:"kind"`
}

// Bill is one customer transaction record. Bills are immutable once created
// and soft-deletable; soft-deleted bills are excluded from every aggregation.
type Bill struct {
	ID           uuid.UUID       `json:"id"`
	RetailerID   uuid.UUID       `json:"retailer_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	BillDate     time.Time       `json:"bill_date"`
	Items        []LineItem      `json:"items"`
	Adjustments  []Adjustment    `json:"adjustments"`
	FinalResult  decimal.Decimal `json:"final_result"`
	CreatedAt    time.Time       `json:"created_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
}

// NewBill builds a bill at the ingestion boundary. Adjustment kinds are
// classified here; missing line totals are backfilled from quantity x price.
func NewBill(retailerID, customerID uuid.UUID, customerName string, billDate time.Time, items []LineItem, adjustments []Adjustment, finalResult decimal.Decimal) (*Bill, error) {
	if retailerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "retailer id is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "customer id is required")
	}
	if billDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "bill date is required")
	}

	normalized := make([]Adjustment, len(adjustments))
	for i, adj := range adjustments {
		if adj.Direction != DirectionAdd && adj.Direction != DirectionSubtract {
			return nil, shared.NewDomainError("INVALID_INPUT", "adjustment direction must be add or subtract")
		}
		adj.Kind = ClassifyAdjustment(adj.Name, adj.Direction)
		normalized[i] = adj
	}

	normalizedItems := make([]LineItem, len(items))
	for i, item := range items {
		if item.Total.IsZero() {
			item.Total = item.Quantity.Mul(item.Price)
		}
		normalizedItems[i] = item
	}

	return &Bill{
		ID:           uuid.New(),
		RetailerID:   retailerID,
		CustomerID:   customerID,
		CustomerName: customerName,
		BillDate:     billDate,
		Items:        normalizedItems,
		Adjustments:  normalized,
		FinalResult:  finalResult,
		CreatedAt:    time.Now(),
	}, nil
}

// SpentTotal recomputes the bill's spend as the sum of quantity x price.
func (b *Bill) SpentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Quantity.Mul(item.Price))
	}
	return total
}

// LineTotal sums the stored line totals as written on the bill.
func (b *Bill) LineTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Total)
	}
	return total
}

// PaidTotal sums the bill's payment adjustments.
func (b *Bill) PaidTotal() decimal.Decimal {
	return b.adjustmentTotal(AdjustmentPayment)
}

// CarryForward returns the debt the bill declares as inherited from the
// previous bill, zero when no carry-forward entry exists.
func (b *Bill) CarryForward() decimal.Decimal {
	return b.adjustmentTotal(AdjustmentCarryForward)
}

func (b *Bill) adjustmentTotal(kind AdjustmentKind) decimal.Decimal {
	total := decimal.Zero
	for _, adj := range b.Adjustments {
		if adj.Kind == kind {
			total = total.Add(adj.Amount)
		}
	}
	return total
}

// IsDeleted reports whether the bill has been soft-deleted.
func (b *Bill) IsDeleted() bool {
	return b.DeletedAt != nil
}
