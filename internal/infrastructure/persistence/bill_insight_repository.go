package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/insight"
)

// GormBillInsightRepository implements insight.BillInsightRepository using
// GORM. The embedded line-item and adjustment arrays are collapsed into
// per-bill sums inside SQL so every aggregation is a single pass over the
// filtered subset.
type GormBillInsightRepository struct {
	db *gorm.DB
}

// NewGormBillInsightRepository creates a new GormBillInsightRepository
func NewGormBillInsightRepository(db *gorm.DB) *GormBillInsightRepository {
	return &GormBillInsightRepository{db: db}
}

const billSummarySelect = `
	b.id as bill_id,
	b.customer_id,
	b.customer_name,
	b.bill_date,
	b.created_at,
	COALESCE(b.final_result, 0) as final_result,
	COALESCE(items.spent_total, 0) as spent_total,
	COALESCE(items.line_total, 0) as line_total,
	COALESCE(pay.paid_total, 0) as paid_total,
	COALESCE(carry.carry_total, 0) as carry_forward
`

type billSummaryResult struct {
	BillID       uuid.UUID
	CustomerID   uuid.UUID
	CustomerName string
	BillDate     time.Time
	CreatedAt    time.Time
	FinalResult  decimal.Decimal
	SpentTotal   decimal.Decimal
	LineTotal    decimal.Decimal
	PaidTotal    decimal.Decimal
	CarryForward decimal.Decimal
}

// BillSummaries returns one collapsed row per bill matching the filter,
// ordered ascending by bill date then creation time.
func (r *GormBillInsightRepository) BillSummaries(ctx context.Context, filter insight.Filter) ([]insight.BillSummary, error) {
	var results []billSummaryResult

	query := r.summaryQuery(ctx)
	query = applyBillFilter(query, filter)

	err := query.
		Order("b.bill_date ASC, b.created_at ASC").
		Scan(&results).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	return toSummaries(results), nil
}

// CustomerHistories returns collapsed rows for the full non-deleted history
// of every customer with at least one bill matching the filter.
func (r *GormBillInsightRepository) CustomerHistories(ctx context.Context, filter insight.Filter) ([]insight.BillSummary, error) {
	var results []billSummaryResult

	query := r.summaryQuery(ctx).
		Where("b.retailer_id = ?", filter.RetailerID).
		Where("b.deleted_at IS NULL").
		Where("b.customer_id IN (?)", r.matchingCustomers(ctx, filter))

	err := query.
		Order("b.bill_date ASC, b.created_at ASC").
		Scan(&results).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	return toSummaries(results), nil
}

// PaymentEntries returns the individual payment adjustments across the full
// history of every customer with at least one bill matching the filter.
func (r *GormBillInsightRepository) PaymentEntries(ctx context.Context, filter insight.Filter) ([]insight.PaymentEntry, error) {
	type entryResult struct {
		BillID     uuid.UUID
		CustomerID uuid.UUID
		BillDate   time.Time
		Name       string
		Amount     decimal.Decimal
	}

	var results []entryResult

	err := r.db.WithContext(ctx).
		Table("bill_adjustments adj").
		Select(`
			adj.bill_id,
			b.customer_id,
			b.bill_date,
			adj.name,
			adj.amount
		`).
		Joins("JOIN bills b ON b.id = adj.bill_id").
		Where("adj.kind = ?", "payment").
		Where("b.retailer_id = ?", filter.RetailerID).
		Where("b.deleted_at IS NULL").
		Where("b.customer_id IN (?)", r.matchingCustomers(ctx, filter)).
		Order("b.bill_date ASC, adj.position ASC").
		Scan(&results).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	entries := make([]insight.PaymentEntry, len(results))
	for i, row := range results {
		entries[i] = insight.PaymentEntry{
			BillID:     row.BillID,
			CustomerID: row.CustomerID,
			BillDate:   row.BillDate,
			Name:       row.Name,
			Amount:     row.Amount,
		}
	}
	return entries, nil
}

// TopItems groups line items by name over the filter range. Revenue is
// recomputed from quantity x price here; the stored line totals are not
// consulted.
func (r *GormBillInsightRepository) TopItems(ctx context.Context, filter insight.Filter, sortBy insight.ItemSortField, limit int) ([]insight.ItemRanking, error) {
	type rankingResult struct {
		Name          string
		TotalQuantity decimal.Decimal
		TotalRevenue  decimal.Decimal
		TotalBills    int64
	}

	var results []rankingResult

	query := r.db.WithContext(ctx).
		Table("bill_line_items li").
		Select(`
			li.name,
			COALESCE(SUM(li.quantity), 0) as total_quantity,
			COALESCE(SUM(li.quantity * li.price), 0) as total_revenue,
			COUNT(DISTINCT li.bill_id) as total_bills
		`).
		Joins("JOIN bills b ON b.id = li.bill_id")
	query = applyBillFilter(query, filter)
	query = query.
		Group("li.name").
		Order(itemSortColumn(sortBy) + " DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(&results).Error; err != nil {
		return nil, mapStoreError(err)
	}

	rankings := make([]insight.ItemRanking, len(results))
	for i, row := range results {
		rankings[i] = insight.ItemRanking{
			Name:          row.Name,
			TotalQuantity: row.TotalQuantity,
			TotalRevenue:  row.TotalRevenue,
			TotalBills:    row.TotalBills,
		}
	}
	return rankings, nil
}

// ItemsByPeriod groups line items by (name, period key). Revenue here is
// the sum of the stored line totals, deliberately unlike TopItems. Rows
// come back globally sorted by the ranking field so per-bucket top-N cuts
// stay prefix-only.
func (r *GormBillInsightRepository) ItemsByPeriod(ctx context.Context, filter insight.Filter, granularity insight.Granularity, sortBy insight.ItemSortField) ([]insight.ItemPeriodRow, error) {
	type periodResult struct {
		Year          int
		Quarter       int
		Month         int
		Week          int
		Day           int
		Name          string
		TotalQuantity decimal.Decimal
		TotalRevenue  decimal.Decimal
	}

	selectExprs, groupExprs := periodColumns(granularity)

	var results []periodResult

	query := r.db.WithContext(ctx).
		Table("bill_line_items li").
		Select(selectExprs + `,
			li.name,
			COALESCE(SUM(li.quantity), 0) as total_quantity,
			COALESCE(SUM(li.total), 0) as total_revenue
		`).
		Joins("JOIN bills b ON b.id = li.bill_id")
	query = applyBillFilter(query, filter)

	err := query.
		Group(groupExprs + ", li.name").
		Order(itemSortColumn(sortBy) + " DESC").
		Scan(&results).Error
	if err != nil {
		return nil, mapStoreError(err)
	}

	rows := make([]insight.ItemPeriodRow, len(results))
	for i, row := range results {
		rows[i] = insight.ItemPeriodRow{
			Period:        periodKeyFromParts(granularity, row.Year, row.Quarter, row.Month, row.Week, row.Day),
			Name:          row.Name,
			TotalQuantity: row.TotalQuantity,
			TotalRevenue:  row.TotalRevenue,
		}
	}
	return rows, nil
}

// summaryQuery builds the shared per-bill aggregation skeleton. Line items
// and payments collapse into per-bill sums; the carry forward takes the
// first carry adjustment by position, so a bill carrying duplicate entries
// reconciles against the leading one only.
func (r *GormBillInsightRepository) summaryQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("bills b").
		Select(billSummarySelect).
		Joins(`LEFT JOIN (
			SELECT bill_id, SUM(quantity * price) as spent_total, SUM(total) as line_total
			FROM bill_line_items GROUP BY bill_id
		) items ON items.bill_id = b.id`).
		Joins(`LEFT JOIN (
			SELECT bill_id, SUM(amount) as paid_total
			FROM bill_adjustments WHERE kind = 'payment' GROUP BY bill_id
		) pay ON pay.bill_id = b.id`).
		Joins(`LEFT JOIN (
			SELECT DISTINCT ON (bill_id) bill_id, amount as carry_total
			FROM bill_adjustments WHERE kind = 'carry_forward'
			ORDER BY bill_id, position
		) carry ON carry.bill_id = b.id`)
}

// matchingCustomers builds the subquery selecting the customers that have
// at least one bill inside the filter scope.
func (r *GormBillInsightRepository) matchingCustomers(ctx context.Context, filter insight.Filter) *gorm.DB {
	sub := r.db.WithContext(ctx).
		Table("bills").
		Select("DISTINCT customer_id").
		Where("retailer_id = ?", filter.RetailerID).
		Where("deleted_at IS NULL")
	if filter.CustomerID != nil {
		sub = sub.Where("customer_id = ?", *filter.CustomerID)
	}
	sub = applyDateBounds(sub, "bill_date", filter)
	return sub
}

// applyBillFilter scopes a query on the aliased bills table.
func applyBillFilter(query *gorm.DB, filter insight.Filter) *gorm.DB {
	query = query.
		Where("b.retailer_id = ?", filter.RetailerID).
		Where("b.deleted_at IS NULL")
	if filter.CustomerID != nil {
		query = query.Where("b.customer_id = ?", *filter.CustomerID)
	}
	return applyDateBounds(query, "b.bill_date", filter)
}

func applyDateBounds(query *gorm.DB, column string, filter insight.Filter) *gorm.DB {
	if filter.From != nil {
		if filter.ExclusiveBounds {
			query = query.Where(column+" > ?", *filter.From)
		} else {
			query = query.Where(column+" >= ?", *filter.From)
		}
	}
	if filter.To != nil {
		if filter.ExclusiveBounds {
			query = query.Where(column+" < ?", *filter.To)
		} else {
			query = query.Where(column+" <= ?", *filter.To)
		}
	}
	return query
}

func itemSortColumn(sortBy insight.ItemSortField) string {
	if sortBy == insight.SortByQuantity {
		return "total_quantity"
	}
	return "total_revenue"
}

// periodColumns returns the EXTRACT projections and grouping expressions
// for a granularity. Week buckets pair the ISO week with the ISO year.
func periodColumns(g insight.Granularity) (selectExprs, groupExprs string) {
	switch g {
	case insight.GranularityDay:
		return `EXTRACT(YEAR FROM b.bill_date)::int as year,
			EXTRACT(MONTH FROM b.bill_date)::int as month,
			EXTRACT(DAY FROM b.bill_date)::int as day`,
			"EXTRACT(YEAR FROM b.bill_date), EXTRACT(MONTH FROM b.bill_date), EXTRACT(DAY FROM b.bill_date)"
	case insight.GranularityWeek:
		return `EXTRACT(ISOYEAR FROM b.bill_date)::int as year,
			EXTRACT(WEEK FROM b.bill_date)::int as week`,
			"EXTRACT(ISOYEAR FROM b.bill_date), EXTRACT(WEEK FROM b.bill_date)"
	case insight.GranularityMonth:
		return `EXTRACT(YEAR FROM b.bill_date)::int as year,
			EXTRACT(MONTH FROM b.bill_date)::int as month`,
			"EXTRACT(YEAR FROM b.bill_date), EXTRACT(MONTH FROM b.bill_date)"
	case insight.GranularityQuarter:
		return `EXTRACT(YEAR FROM b.bill_date)::int as year,
			EXTRACT(QUARTER FROM b.bill_date)::int as quarter`,
			"EXTRACT(YEAR FROM b.bill_date), EXTRACT(QUARTER FROM b.bill_date)"
	default:
		return "EXTRACT(YEAR FROM b.bill_date)::int as year",
			"EXTRACT(YEAR FROM b.bill_date)"
	}
}

func periodKeyFromParts(g insight.Granularity, year, quarter, month, week, day int) insight.PeriodKey {
	key := insight.PeriodKey{Year: year}
	switch g {
	case insight.GranularityDay:
		key.Month = &month
		key.Day = &day
	case insight.GranularityWeek:
		key.Week = &week
	case insight.GranularityMonth:
		key.Month = &month
	case insight.GranularityQuarter:
		key.Quarter = &quarter
	}
	return key
}

func toSummaries(results []billSummaryResult) []insight.BillSummary {
	summaries := make([]insight.BillSummary, len(results))
	for i, row := range results {
		summaries[i] = insight.BillSummary{
			BillID:       row.BillID,
			CustomerID:   row.CustomerID,
			CustomerName: row.CustomerName,
			BillDate:     row.BillDate,
			CreatedAt:    row.CreatedAt,
			FinalResult:  row.FinalResult,
			SpentTotal:   row.SpentTotal,
			LineTotal:    row.LineTotal,
			PaidTotal:    row.PaidTotal,
			CarryForward: row.CarryForward,
		}
	}
	return summaries
}
