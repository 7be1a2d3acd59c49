package insight

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerRankingRow is one customer's entry in the ranking report.
// TotalDebt here is the engine's spent-minus-paid figure while
// ActualLatestBillDebt is the ground truth from the latest bill; rankings
// report both.
type CustomerRankingRow struct {
	CustomerID           uuid.UUID       `json:"customer_id"`
	CustomerName         string          `json:"customer_name"`
	TotalSpent           decimal.Decimal `json:"total_spent"`
	TotalPaid            decimal.Decimal `json:"total_paid"`
	TotalDebt            decimal.Decimal `json:"total_debt"`
	ActualLatestBillDebt decimal.Decimal `json:"actual_latest_bill_debt"`
	BillCount            int64           `json:"bill_count"`
	PaidList             []PaymentEntry  `json:"paid_list"`
	HiddenPayments       []HiddenPayment `json:"hidden_payments"`
	TotalHiddenPayment   decimal.Decimal `json:"total_hidden_payment"`
	ActualPaid           decimal.Decimal `json:"actual_paid"`
}

// RankingSortFields whitelists the fields a caller may rank customers by.
var RankingSortFields = map[string]bool{
	"totalSpent":           true,
	"totalPaid":            true,
	"totalDebt":            true,
	"actualLatestBillDebt": true,
	"billCount":            true,
	"totalHiddenPayment":   true,
	"actualPaid":           true,
}

// DefaultRankingSort is used when the caller's sort field is empty or not
// whitelisted.
const DefaultRankingSort = "totalSpent"

// ParseSignedSort splits a signed sort expression into field and direction.
// A "+" prefix or no prefix sorts ascending, "-" descending. Fields outside
// the whitelist fall back to the default, ascending.
func ParseSignedSort(sortBy string, allowed map[string]bool, defaultField string) (field string, ascending bool) {
	trimmed := strings.TrimSpace(sortBy)
	ascending = true

	switch {
	case strings.HasPrefix(trimmed, "-"):
		ascending = false
		trimmed = trimmed[1:]
	case strings.HasPrefix(trimmed, "+"):
		trimmed = trimmed[1:]
	}

	if trimmed == "" || !allowed[trimmed] {
		return defaultField, ascending
	}
	return trimmed, ascending
}

// SortCustomerRanking orders rows by the given whitelisted field. The sort
// is stable so equal values keep their grouping order.
func SortCustomerRanking(rows []CustomerRankingRow, field string, ascending bool) {
	key := rankingSortKey(field)
	sort.SliceStable(rows, func(i, j int) bool {
		cmp := key(rows[i]).Cmp(key(rows[j]))
		if ascending {
			return cmp < 0
		}
		return cmp > 0
	})
}

func rankingSortKey(field string) func(CustomerRankingRow) decimal.Decimal {
	switch field {
	case "totalPaid":
		return func(r CustomerRankingRow) decimal.Decimal { return r.TotalPaid }
	case "totalDebt":
		return func(r CustomerRankingRow) decimal.Decimal { return r.TotalDebt }
	case "actualLatestBillDebt":
		return func(r CustomerRankingRow) decimal.Decimal { return r.ActualLatestBillDebt }
	case "billCount":
		return func(r CustomerRankingRow) decimal.Decimal { return decimal.NewFromInt(r.BillCount) }
	case "totalHiddenPayment":
		return func(r CustomerRankingRow) decimal.Decimal { return r.TotalHiddenPayment }
	case "actualPaid":
		return func(r CustomerRankingRow) decimal.Decimal { return r.ActualPaid }
	default:
		return func(r CustomerRankingRow) decimal.Decimal { return r.TotalSpent }
	}
}

// RankCustomers builds ranking rows from range-scoped bills and full
// customer histories. Spend, bill count and the latest-bill debt come from
// the requested range; recorded payments, the paid list and hidden-payment
// reconciliation run over the customer's entire history.
func RankCustomers(inRange []BillSummary, histories map[uuid.UUID][]BillSummary, payments []PaymentEntry) []CustomerRankingRow {
	paymentsByCustomer := make(map[uuid.UUID][]PaymentEntry)
	for _, p := range payments {
		paymentsByCustomer[p.CustomerID] = append(paymentsByCustomer[p.CustomerID], p)
	}

	grouped := GroupByCustomer(inRange)
	rows := make([]CustomerRankingRow, 0, len(grouped))
	for customerID, bills := range grouped {
		history := histories[customerID]
		if len(history) == 0 {
			history = bills
		}
		full := Reconcile(history)

		row := CustomerRankingRow{
			CustomerID:         customerID,
			CustomerName:       bills[0].CustomerName,
			BillCount:          int64(len(bills)),
			TotalPaid:          full.TotalPaid,
			PaidList:           paymentsByCustomer[customerID],
			HiddenPayments:     full.HiddenPayments,
			TotalHiddenPayment: full.TotalHiddenPayment,
			ActualPaid:         full.ActualPaid,
			TotalSpent:         decimal.Zero,
		}
		for _, b := range bills {
			row.TotalSpent = row.TotalSpent.Add(b.SpentTotal)
		}
		row.TotalDebt = row.TotalSpent.Sub(row.TotalPaid)
		if latest := LatestBill(bills); latest != nil {
			row.ActualLatestBillDebt = latest.FinalResult
		} else {
			row.ActualLatestBillDebt = decimal.Zero
		}
		rows = append(rows, row)
	}

	// Deterministic base order before the caller-selected sort.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CustomerID.String() < rows[j].CustomerID.String()
	})
	return rows
}
