package insight

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillSummary is the per-bill read model every finance aggregation starts
// from: one row per non-deleted bill with its embedded arrays already
// collapsed into the sums the engine needs.
type BillSummary struct {
	BillID       uuid.UUID       `json:"bill_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	BillDate     time.Time       `json:"bill_date"`
	CreatedAt    time.Time       `json:"created_at"`
	FinalResult  decimal.Decimal `json:"final_result"`
	// SpentTotal is the recomputed spend, sum of quantity x price.
	SpentTotal decimal.Decimal `json:"spent_total"`
	// LineTotal is the sum of the stored per-line totals.
	LineTotal decimal.Decimal `json:"line_total"`
	// PaidTotal is the sum of the bill's payment adjustments.
	PaidTotal decimal.Decimal `json:"paid_total"`
	// CarryForward is the declared debt inherited from the previous bill.
	CarryForward decimal.Decimal `json:"carry_forward"`
}

// PaymentEntry is one recorded payment adjustment, kept at adjustment
// granularity for ranking output.
type PaymentEntry struct {
	BillID     uuid.UUID       `json:"bill_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	BillDate   time.Time       `json:"bill_date"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// ItemRanking is one row of the item ranking report.
type ItemRanking struct {
	Name          string          `json:"name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalBills    int64           `json:"total_bills"`
}

// ItemPeriodRow is one (item, period) aggregate before bucketing.
type ItemPeriodRow struct {
	Period        PeriodKey       `json:"period"`
	Name          string          `json:"name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// Filter scopes an aggregation pass. Nil From/To mean unbounded; CustomerID
// nil means all customers of the retailer.
type Filter struct {
	RetailerID uuid.UUID
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	// ExclusiveBounds makes both date bounds strict (> and < instead of
	// >= and <=). The plain item ranking report historically used strict
	// bounds and keeps them.
	ExclusiveBounds bool
}

// ItemSortField selects the item ranking order.
type ItemSortField string

const (
	SortByQuantity ItemSortField = "quantity"
	SortByRevenue  ItemSortField = "revenue"
)

// BillInsightRepository is the read side of the bill store consumed by the
// finance engine. Each method is a single pass over a filtered subset.
type BillInsightRepository interface {
	// BillSummaries returns one summary row per bill matching the filter.
	BillSummaries(ctx context.Context, filter Filter) ([]BillSummary, error)

	// CustomerHistories returns summary rows for the entire non-deleted
	// history of every customer that has at least one bill matching the
	// filter. Used where payments must be reconciled across a customer's
	// full history while spend stays range-scoped.
	CustomerHistories(ctx context.Context, filter Filter) ([]BillSummary, error)

	// PaymentEntries returns the individual payment adjustments of every
	// customer that has at least one bill matching the filter.
	PaymentEntries(ctx context.Context, filter Filter) ([]PaymentEntry, error)

	// TopItems groups line items by name over the filter range. Revenue is
	// recomputed as quantity x price. A non-positive limit returns the full
	// ranked set.
	TopItems(ctx context.Context, filter Filter, sortBy ItemSortField, limit int) ([]ItemRanking, error)

	// ItemsByPeriod groups line items by (name, period). Revenue here is the
	// sum of the stored line totals, deliberately unlike TopItems.
	ItemsByPeriod(ctx context.Context, filter Filter, granularity Granularity, sortBy ItemSortField) ([]ItemPeriodRow, error)
}
