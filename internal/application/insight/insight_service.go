package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/retail/backend/internal/domain/insight"
	"github.com/retail/backend/internal/infrastructure/cache"
)

// InsightService provides application-level financial report operations.
// Heavy aggregation stays in SQL and the domain layer; this service wires
// the read passes together, runs independent passes concurrently and keeps
// a short-lived cache of composed reports.
type InsightService struct {
	repo     insight.BillInsightRepository
	cache    cache.ReportCache
	cacheTTL time.Duration
}

// Options tunes service behavior beyond its dependencies.
type Options struct {
	CacheTTL time.Duration
}

// NewInsightService creates a new InsightService. A nil reportCache disables
// caching.
func NewInsightService(repo insight.BillInsightRepository, reportCache cache.ReportCache, opts Options) *InsightService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &InsightService{
		repo:     repo,
		cache:    reportCache,
		cacheTTL: opts.CacheTTL,
	}
}

// ReportFilter is the caller-facing date scope of a report request.
type ReportFilter struct {
	From *time.Time
	To   *time.Time
}

// normalize applies the lenient range rule: an inverted range counts as no
// date filter at all rather than an error.
func (f ReportFilter) normalize() ReportFilter {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ReportFilter{}
	}
	return f
}

func (f ReportFilter) domainFilter(retailerID uuid.UUID, customerID *uuid.UUID) insight.Filter {
	n := f.normalize()
	return insight.Filter{
		RetailerID: retailerID,
		CustomerID: customerID,
		From:       n.From,
		To:         n.To,
	}
}

// cacheKey renders a deterministic key for one report invocation.
func (f ReportFilter) cacheKey() string {
	const layout = "20060102T150405"
	from, to := "-", "-"
	if n := f.normalize(); true {
		if n.From != nil {
			from = n.From.Format(layout)
		}
		if n.To != nil {
			to = n.To.Format(layout)
		}
	}
	return from + ":" + to
}

// ===================== Response DTOs =====================

// HiddenPaymentResponse is one reconciliation discrepancy in wire form.
type HiddenPaymentResponse struct {
	CurrentDate     time.Time `json:"currentDate"`
	CurrentToaCu    float64   `json:"currentToaCu"`
	LastDate        time.Time `json:"lastDate"`
	LastFinalResult float64   `json:"lastFinalResult"`
	Paid            float64   `json:"paid"`
}

// CustomerOverviewResponse is the single-customer debt rollup.
type CustomerOverviewResponse struct {
	CustomerID         string                  `json:"customerId"`
	CustomerName       string                  `json:"customerName"`
	BillCount          int64                   `json:"billCount"`
	TotalSpent         float64                 `json:"totalSpent"`
	TotalPaid          float64                 `json:"totalPaid"`
	TotalDebt          float64                 `json:"totalDebt"`
	TotalResult        float64                 `json:"totalResult"`
	HiddenPayments     []HiddenPaymentResponse `json:"hiddenPayments"`
	TotalHiddenPayment float64                 `json:"totalHiddenPayment"`
	ActualPaid         float64                 `json:"actualPaid"`
}

// PeriodResponse is one period key in wire form.
type PeriodResponse struct {
	Year    int  `json:"year"`
	Quarter *int `json:"quarter,omitempty"`
	Month   *int `json:"month,omitempty"`
	Week    *int `json:"week,omitempty"`
	Day     *int `json:"day,omitempty"`
}

// CustomerPeriodResponse is one bucket of a customer's trend overview.
type CustomerPeriodResponse struct {
	Period      PeriodResponse `json:"period"`
	BillCount   int64          `json:"billCount"`
	TotalSpent  float64        `json:"totalSpent"`
	TotalDebt   float64        `json:"totalDebt"`
	TotalPaid   float64        `json:"totalPaid"`
	TotalResult float64        `json:"totalResult"`
}

// HiddenPaidResponse is the hidden-payment detection report for one customer.
type HiddenPaidResponse struct {
	CustomerID   string                  `json:"customerId"`
	CustomerName string                  `json:"customerName"`
	Results      []HiddenPaymentResponse `json:"results"`
}

// ItemRankingResponse is one row of the item ranking report.
type ItemRankingResponse struct {
	Name          string  `json:"name"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalRevenue  float64 `json:"totalRevenue"`
	TotalBills    int64   `json:"totalBills,omitempty"`
}

// ItemPeriodBucketResponse is the top-N item ranking inside one period.
type ItemPeriodBucketResponse struct {
	Period PeriodResponse        `json:"period"`
	Items  []ItemRankingResponse `json:"items"`
}

// PaymentEntryResponse is one recorded payment in wire form.
type PaymentEntryResponse struct {
	BillID   string    `json:"billId"`
	BillDate time.Time `json:"billDate"`
	Name     string    `json:"name"`
	Amount   float64   `json:"amount"`
}

// CustomerRankingResponse is one customer's entry in the ranking report.
type CustomerRankingResponse struct {
	CustomerID           string                  `json:"customerId"`
	CustomerName         string                  `json:"customerName"`
	TotalSpent           float64                 `json:"totalSpent"`
	TotalPaid            float64                 `json:"totalPaid"`
	TotalDebt            float64                 `json:"totalDebt"`
	ActualLatestBillDebt float64                 `json:"actualLatestBillDebt"`
	BillCount            int64                   `json:"billCount"`
	PaidList             []PaymentEntryResponse  `json:"paidList"`
	HiddenPayments       []HiddenPaymentResponse `json:"hiddenPayments"`
	TotalHiddenPayment   float64                 `json:"totalHiddenPayment"`
	ActualPaid           float64                 `json:"actualPaid"`
}

// FinanceOverviewResponse is the storewide finance rollup.
type FinanceOverviewResponse struct {
	TotalSpent           float64                 `json:"totalSpent"`
	TotalPaid            float64                 `json:"totalPaid"`
	TotalDebt            float64                 `json:"totalDebt"`
	ActualLatestBillDebt float64                 `json:"actualLatestBillDebt"`
	BillCount            int64                   `json:"billCount"`
	HiddenPayments       []HiddenPaymentResponse `json:"hiddenPayments"`
	TotalHiddenPayment   float64                 `json:"totalHiddenPayment"`
	ActualPaid           float64                 `json:"actualPaid"`
}

// FinanceChartRowResponse is one bucket of the finance trend series.
type FinanceChartRowResponse struct {
	Period         PeriodResponse `json:"period"`
	TotalSpent     float64        `json:"totalSpent"`
	TotalPaid      float64        `json:"totalPaid"`
	ActualBillDebt float64        `json:"actualBillDebt"`
}

// ===================== Operations =====================

// GetCustomerOverview reconciles one customer's bills inside the range into
// a debt overview. Unknown customers yield a zero overview, not an error.
func (s *InsightService) GetCustomerOverview(ctx context.Context, retailerID, customerID uuid.UUID, filter ReportFilter) (*CustomerOverviewResponse, error) {
	bills, err := s.repo.BillSummaries(ctx, filter.domainFilter(retailerID, &customerID))
	if err != nil {
		return nil, err
	}

	ledger := insight.Reconcile(bills)
	resp := &CustomerOverviewResponse{
		CustomerID:         customerID.String(),
		CustomerName:       ledger.CustomerName,
		BillCount:          ledger.BillCount,
		TotalSpent:         toFloat64(ledger.TotalSpent),
		TotalPaid:          toFloat64(ledger.TotalPaid),
		TotalDebt:          toFloat64(ledger.TotalDebt),
		TotalResult:        toFloat64(ledger.TotalResult),
		HiddenPayments:     toHiddenResponses(ledger.HiddenPayments),
		TotalHiddenPayment: toFloat64(ledger.TotalHiddenPayment),
		ActualPaid:         toFloat64(ledger.ActualPaid),
	}
	return resp, nil
}

// GetCustomerOverviewByMonth buckets one customer's bills by day and walks
// them chronologically. The paid figure per bucket is cumulative over the
// customer's history up to the bucket's latest bill.
func (s *InsightService) GetCustomerOverviewByMonth(ctx context.Context, retailerID, customerID uuid.UUID, filter ReportFilter) ([]CustomerPeriodResponse, error) {
	domainFilter := filter.domainFilter(retailerID, &customerID)

	var inRange, history []insight.BillSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inRange, err = s.repo.BillSummaries(gctx, domainFilter)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.repo.CustomerHistories(gctx, domainFilter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := insight.ComposeCustomerTrend(inRange, history)
	responses := make([]CustomerPeriodResponse, len(rows))
	for i, row := range rows {
		responses[i] = CustomerPeriodResponse{
			Period:      toPeriodResponse(row.Period),
			BillCount:   row.BillCount,
			TotalSpent:  toFloat64(row.TotalSpent),
			TotalDebt:   toFloat64(row.TotalDebt),
			TotalPaid:   toFloat64(row.TotalPaid),
			TotalResult: toFloat64(row.TotalResult),
		}
	}
	return responses, nil
}

// GetCustomerHiddenPaid detects unrecorded payments between one customer's
// consecutive bills.
func (s *InsightService) GetCustomerHiddenPaid(ctx context.Context, retailerID, customerID uuid.UUID, filter ReportFilter) (*HiddenPaidResponse, error) {
	bills, err := s.repo.BillSummaries(ctx, filter.domainFilter(retailerID, &customerID))
	if err != nil {
		return nil, err
	}

	resp := &HiddenPaidResponse{
		CustomerID: customerID.String(),
		Results:    toHiddenResponses(insight.DetectHiddenPayments(bills)),
	}
	if len(bills) > 0 {
		resp.CustomerName = bills[0].CustomerName
	}
	return resp, nil
}

// GetTopItems ranks sold items over the range with revenue recomputed from
// quantity times price. Date bounds here are strict on both ends. A
// non-positive limit returns the full ranked set.
func (s *InsightService) GetTopItems(ctx context.Context, retailerID uuid.UUID, filter ReportFilter, sortBy insight.ItemSortField, limit int) ([]ItemRankingResponse, error) {
	domainFilter := filter.domainFilter(retailerID, nil)
	domainFilter.ExclusiveBounds = true

	key := fmt.Sprintf("top-items:%s:%s:%s:%d", retailerID, filter.cacheKey(), sortBy, limit)
	return fetchCached(ctx, s, key, func() ([]ItemRankingResponse, error) {
		rankings, err := s.repo.TopItems(ctx, domainFilter, sortBy, limit)
		if err != nil {
			return nil, err
		}

		responses := make([]ItemRankingResponse, len(rankings))
		for i, r := range rankings {
			responses[i] = ItemRankingResponse{
				Name:          r.Name,
				TotalQuantity: toFloat64(r.TotalQuantity),
				TotalRevenue:  toFloat64(r.TotalRevenue),
				TotalBills:    r.TotalBills,
			}
		}
		return responses, nil
	})
}

// GetTopItemsByPeriod ranks items inside each period bucket. Revenue is the
// sum of stored line totals, and the per-bucket cut keeps only the globally
// highest-ranked rows that fall into the bucket. A non-positive topN keeps
// every row per bucket.
func (s *InsightService) GetTopItemsByPeriod(ctx context.Context, retailerID uuid.UUID, filter ReportFilter, granularity insight.Granularity, sortBy insight.ItemSortField, topN int) ([]ItemPeriodBucketResponse, error) {
	key := fmt.Sprintf("top-items-period:%s:%s:%s:%s:%d", retailerID, filter.cacheKey(), granularity, sortBy, topN)
	return fetchCached(ctx, s, key, func() ([]ItemPeriodBucketResponse, error) {
		rows, err := s.repo.ItemsByPeriod(ctx, filter.domainFilter(retailerID, nil), granularity, sortBy)
		if err != nil {
			return nil, err
		}

		buckets := insight.RankItemsByPeriod(rows, topN)
		responses := make([]ItemPeriodBucketResponse, len(buckets))
		for i, bucket := range buckets {
			items := make([]ItemRankingResponse, len(bucket.Items))
			for j, item := range bucket.Items {
				items[j] = ItemRankingResponse{
					Name:          item.Name,
					TotalQuantity: toFloat64(item.TotalQuantity),
					TotalRevenue:  toFloat64(item.TotalRevenue),
				}
			}
			responses[i] = ItemPeriodBucketResponse{
				Period: toPeriodResponse(bucket.Key),
				Items:  items,
			}
		}
		return responses, nil
	})
}

// GetCustomerRanking ranks every customer with at least one bill in the
// range. Spend and bill counts stay range-scoped while payments and hidden
// reconciliation cover each customer's full history. A positive top keeps
// only the leading rows after sorting; anything else returns the full set.
func (s *InsightService) GetCustomerRanking(ctx context.Context, retailerID uuid.UUID, filter ReportFilter, sortBy string, top int) ([]CustomerRankingResponse, error) {
	domainFilter := filter.domainFilter(retailerID, nil)

	key := fmt.Sprintf("ranking:%s:%s:%s:%d", retailerID, filter.cacheKey(), sortBy, top)
	return fetchCached(ctx, s, key, func() ([]CustomerRankingResponse, error) {
		var (
			inRange  []insight.BillSummary
			history  []insight.BillSummary
			payments []insight.PaymentEntry
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			inRange, err = s.repo.BillSummaries(gctx, domainFilter)
			return err
		})
		g.Go(func() error {
			var err error
			history, err = s.repo.CustomerHistories(gctx, domainFilter)
			return err
		})
		g.Go(func() error {
			var err error
			payments, err = s.repo.PaymentEntries(gctx, domainFilter)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		rows := insight.RankCustomers(inRange, insight.GroupByCustomer(history), payments)
		field, ascending := insight.ParseSignedSort(sortBy, insight.RankingSortFields, insight.DefaultRankingSort)
		insight.SortCustomerRanking(rows, field, ascending)
		if top > 0 && top < len(rows) {
			rows = rows[:top]
		}

		responses := make([]CustomerRankingResponse, len(rows))
		for i, row := range rows {
			paidList := make([]PaymentEntryResponse, len(row.PaidList))
			for j, p := range row.PaidList {
				paidList[j] = PaymentEntryResponse{
					BillID:   p.BillID.String(),
					BillDate: p.BillDate,
					Name:     p.Name,
					Amount:   toFloat64(p.Amount),
				}
			}
			responses[i] = CustomerRankingResponse{
				CustomerID:           row.CustomerID.String(),
				CustomerName:         row.CustomerName,
				TotalSpent:           toFloat64(row.TotalSpent),
				TotalPaid:            toFloat64(row.TotalPaid),
				TotalDebt:            toFloat64(row.TotalDebt),
				ActualLatestBillDebt: toFloat64(row.ActualLatestBillDebt),
				BillCount:            row.BillCount,
				PaidList:             paidList,
				HiddenPayments:       toHiddenResponses(row.HiddenPayments),
				TotalHiddenPayment:   toFloat64(row.TotalHiddenPayment),
				ActualPaid:           toFloat64(row.ActualPaid),
			}
		}
		return responses, nil
	})
}

// GetOverviewFinance rolls the store up into one finance overview. A non-nil
// customerID narrows every pass to that customer.
func (s *InsightService) GetOverviewFinance(ctx context.Context, retailerID uuid.UUID, customerID *uuid.UUID, filter ReportFilter) (*FinanceOverviewResponse, error) {
	domainFilter := filter.domainFilter(retailerID, customerID)

	key := fmt.Sprintf("overview-finance:%s:%s:%s", retailerID, customerKey(customerID), filter.cacheKey())
	return fetchCached(ctx, s, key, func() (*FinanceOverviewResponse, error) {
		inRange, histories, err := s.loadRangeAndHistories(ctx, domainFilter)
		if err != nil {
			return nil, err
		}

		overview := insight.ComposeFinanceOverview(inRange, histories)
		return &FinanceOverviewResponse{
			TotalSpent:           toFloat64(overview.TotalSpent),
			TotalPaid:            toFloat64(overview.TotalPaid),
			TotalDebt:            toFloat64(overview.TotalDebt),
			ActualLatestBillDebt: toFloat64(overview.ActualLatestBillDebt),
			BillCount:            overview.BillCount,
			HiddenPayments:       toHiddenResponses(overview.HiddenPayments),
			TotalHiddenPayment:   toFloat64(overview.TotalHiddenPayment),
			ActualPaid:           toFloat64(overview.ActualPaid),
		}, nil
	})
}

// GetFinanceChartData builds the finance trend series, newest bucket first.
// A non-nil customerID narrows every pass to that customer.
func (s *InsightService) GetFinanceChartData(ctx context.Context, retailerID uuid.UUID, customerID *uuid.UUID, filter ReportFilter, granularity insight.Granularity) ([]FinanceChartRowResponse, error) {
	domainFilter := filter.domainFilter(retailerID, customerID)

	key := fmt.Sprintf("finance-chart:%s:%s:%s:%s", retailerID, customerKey(customerID), filter.cacheKey(), granularity)
	return fetchCached(ctx, s, key, func() ([]FinanceChartRowResponse, error) {
		inRange, histories, err := s.loadRangeAndHistories(ctx, domainFilter)
		if err != nil {
			return nil, err
		}

		rows := insight.ComposeFinanceChart(granularity, inRange, histories)
		responses := make([]FinanceChartRowResponse, len(rows))
		for i, row := range rows {
			responses[i] = FinanceChartRowResponse{
				Period:         toPeriodResponse(row.Period),
				TotalSpent:     toFloat64(row.TotalSpent),
				TotalPaid:      toFloat64(row.TotalPaid),
				ActualBillDebt: toFloat64(row.ActualBillDebt),
			}
		}
		return responses, nil
	})
}

// loadRangeAndHistories runs the two storewide read passes concurrently.
func (s *InsightService) loadRangeAndHistories(ctx context.Context, filter insight.Filter) ([]insight.BillSummary, map[uuid.UUID][]insight.BillSummary, error) {
	var inRange, history []insight.BillSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		inRange, err = s.repo.BillSummaries(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.repo.CustomerHistories(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return inRange, insight.GroupByCustomer(history), nil
}

// fetchCached wraps a report computation with the service's TTL cache.
// Cache errors are swallowed: a broken cache degrades to recomputation.
func fetchCached[T any](ctx context.Context, s *InsightService, key string, compute func() (T, error)) (T, error) {
	if s.cache == nil {
		return compute()
	}

	if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached T
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	}

	result, err := compute()
	if err != nil {
		return result, err
	}

	if payload, err := json.Marshal(result); err == nil {
		_ = s.cache.Set(ctx, key, payload, s.cacheTTL)
	}
	return result, nil
}

func customerKey(customerID *uuid.UUID) string {
	if customerID == nil {
		return "-"
	}
	return customerID.String()
}

func toHiddenResponses(hidden []insight.HiddenPayment) []HiddenPaymentResponse {
	responses := make([]HiddenPaymentResponse, len(hidden))
	for i, h := range hidden {
		responses[i] = HiddenPaymentResponse{
			CurrentDate:     h.CurrentDate,
			CurrentToaCu:    toFloat64(h.CurrentCarry),
			LastDate:        h.PreviousDate,
			LastFinalResult: toFloat64(h.PreviousFinalResult),
			Paid:            toFloat64(h.Paid),
		}
	}
	return responses
}

func toPeriodResponse(key insight.PeriodKey) PeriodResponse {
	return PeriodResponse{
		Year:    key.Year,
		Quarter: key.Quarter,
		Month:   key.Month,
		Week:    key.Week,
		Day:     key.Day,
	}
}

func toFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
