package insight

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinanceOverview is the point-in-time rollup across the filtered bill set.
type FinanceOverview struct {
	TotalSpent           decimal.Decimal `json:"total_spent"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	TotalDebt            decimal.Decimal `json:"total_debt"`
	ActualLatestBillDebt decimal.Decimal `json:"actual_latest_bill_debt"`
	BillCount            int64           `json:"bill_count"`
	HiddenPayments       []HiddenPayment `json:"hidden_payments"`
	TotalHiddenPayment   decimal.Decimal `json:"total_hidden_payment"`
	ActualPaid           decimal.Decimal `json:"actual_paid"`
}

// ChartRow is one period bucket of the finance trend series.
type ChartRow struct {
	Period         PeriodKey       `json:"period"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	ActualBillDebt decimal.Decimal `json:"actual_bill_debt"`
}

// CustomerPeriodRow is one bucket of a single customer's trend overview.
type CustomerPeriodRow struct {
	Period      PeriodKey       `json:"period"`
	BillCount   int64           `json:"bill_count"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	TotalDebt   decimal.Decimal `json:"total_debt"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	TotalResult decimal.Decimal `json:"total_result"`
}

// PeriodBucket groups the bills whose dates fall into one period key.
type PeriodBucket struct {
	Key   PeriodKey
	Bills []BillSummary
}

// BucketBills partitions bills by period key. Every bill lands in exactly
// one bucket; buckets come back in first-seen order and are sorted by the
// caller.
func BucketBills(g Granularity, bills []BillSummary) []PeriodBucket {
	var buckets []PeriodBucket
	index := make(map[periodIndex]int)
	for _, b := range bills {
		key := BucketOf(g, b.BillDate)
		i, ok := index[key.index()]
		if !ok {
			i = len(buckets)
			index[key.index()] = i
			buckets = append(buckets, PeriodBucket{Key: key})
		}
		buckets[i].Bills = append(buckets[i].Bills, b)
	}
	return buckets
}

// SortBucketsDescending applies the engine's default newest-first period
// order.
func SortBucketsDescending(buckets []PeriodBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Key.Compare(buckets[j].Key) > 0
	})
}

// SortBucketsAscending orders buckets chronologically, used by trend views
// that read forward in time.
func SortBucketsAscending(buckets []PeriodBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Key.Compare(buckets[j].Key) < 0
	})
}

// ComposeFinanceOverview rolls the per-customer reconciliation up across
// every customer in the filtered set. Spend, bill count and latest-bill
// debt are range-scoped; payments and hidden-payment detection run over
// each customer's full history.
func ComposeFinanceOverview(inRange []BillSummary, histories map[uuid.UUID][]BillSummary) FinanceOverview {
	overview := FinanceOverview{
		TotalSpent:           decimal.Zero,
		TotalPaid:            decimal.Zero,
		TotalDebt:            decimal.Zero,
		ActualLatestBillDebt: decimal.Zero,
		TotalHiddenPayment:   decimal.Zero,
		ActualPaid:           decimal.Zero,
		BillCount:            int64(len(inRange)),
	}

	for _, b := range inRange {
		overview.TotalSpent = overview.TotalSpent.Add(b.SpentTotal)
	}

	for customerID, bills := range GroupByCustomer(inRange) {
		if latest := LatestBill(bills); latest != nil {
			overview.ActualLatestBillDebt = overview.ActualLatestBillDebt.Add(latest.FinalResult)
		}

		history := histories[customerID]
		if len(history) == 0 {
			history = bills
		}
		ledger := Reconcile(history)
		overview.TotalPaid = overview.TotalPaid.Add(ledger.TotalPaid)
		overview.HiddenPayments = append(overview.HiddenPayments, ledger.HiddenPayments...)
		overview.TotalHiddenPayment = overview.TotalHiddenPayment.Add(ledger.TotalHiddenPayment)
	}

	overview.TotalDebt = overview.TotalSpent.Sub(overview.TotalPaid)
	overview.ActualPaid = overview.TotalPaid.Add(overview.TotalHiddenPayment)
	return overview
}

// ComposeFinanceChart builds the period trend series. Per bucket: spend is
// summed over the bucket's bills, the debt figure sums each customer's
// latest bill inside the bucket, and the paid figure sums each present
// customer's reported-plus-hidden payments over their full history.
// Buckets come back newest first.
func ComposeFinanceChart(g Granularity, inRange []BillSummary, histories map[uuid.UUID][]BillSummary) []ChartRow {
	actualPaidByCustomer := make(map[uuid.UUID]decimal.Decimal, len(histories))
	for customerID, history := range histories {
		actualPaidByCustomer[customerID] = Reconcile(history).ActualPaid
	}

	buckets := BucketBills(g, inRange)
	SortBucketsDescending(buckets)

	rows := make([]ChartRow, len(buckets))
	for i, bucket := range buckets {
		row := ChartRow{
			Period:         bucket.Key,
			TotalSpent:     decimal.Zero,
			TotalPaid:      decimal.Zero,
			ActualBillDebt: decimal.Zero,
		}
		for _, b := range bucket.Bills {
			row.TotalSpent = row.TotalSpent.Add(b.SpentTotal)
		}
		for customerID, bills := range GroupByCustomer(bucket.Bills) {
			if latest := LatestBill(bills); latest != nil {
				row.ActualBillDebt = row.ActualBillDebt.Add(latest.FinalResult)
			}
			if paid, ok := actualPaidByCustomer[customerID]; ok {
				row.TotalPaid = row.TotalPaid.Add(paid)
			}
		}
		rows[i] = row
	}
	return rows
}

// ComposeCustomerTrend builds one customer's day-bucketed trend, ordered
// chronologically. A bucket's paid figure is cumulative: every recorded
// payment on a bill dated at or before the bucket's latest bill counts,
// and the bucket's result subtracts that cumulative figure from the
// bucket's own spend.
func ComposeCustomerTrend(inRange, history []BillSummary) []CustomerPeriodRow {
	buckets := BucketBills(GranularityDay, inRange)
	SortBucketsAscending(buckets)

	rows := make([]CustomerPeriodRow, len(buckets))
	for i, bucket := range buckets {
		row := CustomerPeriodRow{
			Period:     bucket.Key,
			BillCount:  int64(len(bucket.Bills)),
			TotalSpent: decimal.Zero,
		}
		for _, b := range bucket.Bills {
			row.TotalSpent = row.TotalSpent.Add(b.SpentTotal)
		}

		latest := LatestBill(bucket.Bills)
		if latest != nil {
			row.TotalDebt = latest.FinalResult
		}

		row.TotalPaid = decimal.Zero
		if latest != nil {
			for _, b := range history {
				if !b.BillDate.After(latest.BillDate) {
					row.TotalPaid = row.TotalPaid.Add(b.PaidTotal)
				}
			}
		}

		row.TotalResult = row.TotalSpent.Sub(row.TotalPaid)
		rows[i] = row
	}
	return rows
}

// RankItemsByPeriod turns globally sorted (item, period) rows into period
// buckets with a prefix-only top-N cut per bucket. Rows must already be
// sorted by the requested ranking field; slicing never reorders them.
// Buckets come back newest first. A non-positive topN keeps every row.
func RankItemsByPeriod(rows []ItemPeriodRow, topN int) []ItemPeriodBucket {
	var buckets []ItemPeriodBucket
	index := make(map[periodIndex]int)
	for _, row := range rows {
		i, ok := index[row.Period.index()]
		if !ok {
			i = len(buckets)
			index[row.Period.index()] = i
			buckets = append(buckets, ItemPeriodBucket{Key: row.Period})
		}
		buckets[i].Items = append(buckets[i].Items, ItemRanking{
			Name:          row.Name,
			TotalQuantity: row.TotalQuantity,
			TotalRevenue:  row.TotalRevenue,
		})
	}

	if topN > 0 {
		for i := range buckets {
			if len(buckets[i].Items) > topN {
				buckets[i].Items = buckets[i].Items[:topN]
			}
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Key.Compare(buckets[j].Key) > 0
	})
	return buckets
}

// ItemPeriodBucket is the top-N item ranking inside one period.
type ItemPeriodBucket struct {
	Key   PeriodKey     `json:"period"`
	Items []ItemRanking `json:"items"`
}
