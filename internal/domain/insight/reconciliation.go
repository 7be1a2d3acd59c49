package insight

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HiddenPayment is a reconciliation discrepancy between two consecutive
// bills of one customer: the previous bill closed with a balance the next
// bill did not fully carry forward, implying an unrecorded payment.
type HiddenPayment struct {
	PreviousBillID      uuid.UUID       `json:"previous_bill_id"`
	CurrentBillID       uuid.UUID       `json:"current_bill_id"`
	PreviousDate        time.Time       `json:"previous_date"`
	CurrentDate         time.Time       `json:"current_date"`
	PreviousFinalResult decimal.Decimal `json:"previous_final_result"`
	CurrentCarry        decimal.Decimal `json:"current_carry"`
	Paid                decimal.Decimal `json:"paid"`
}

// CustomerLedger is the full reconciliation of one customer's bills.
type CustomerLedger struct {
	CustomerID         uuid.UUID       `json:"customer_id"`
	CustomerName       string          `json:"customer_name"`
	BillCount          int64           `json:"bill_count"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalDebt          decimal.Decimal `json:"total_debt"`
	TotalResult        decimal.Decimal `json:"total_result"`
	HiddenPayments     []HiddenPayment `json:"hidden_payments"`
	TotalHiddenPayment decimal.Decimal `json:"total_hidden_payment"`
	ActualPaid         decimal.Decimal `json:"actual_paid"`
}

// SortBillsAscending orders summaries by bill date, creation time breaking
// ties. The last element is the customer's latest bill under the engine-wide
// tie-break rule (latest bill date, then latest creation).
func SortBillsAscending(bills []BillSummary) {
	sort.SliceStable(bills, func(i, j int) bool {
		if !bills[i].BillDate.Equal(bills[j].BillDate) {
			return bills[i].BillDate.Before(bills[j].BillDate)
		}
		return bills[i].CreatedAt.Before(bills[j].CreatedAt)
	})
}

// LatestBill returns the most recent bill, nil for an empty slice.
func LatestBill(bills []BillSummary) *BillSummary {
	if len(bills) == 0 {
		return nil
	}
	latest := bills[0]
	for _, b := range bills[1:] {
		if b.BillDate.After(latest.BillDate) ||
			(b.BillDate.Equal(latest.BillDate) && b.CreatedAt.After(latest.CreatedAt)) {
			latest = b
		}
	}
	return &latest
}

// DetectHiddenPayments scans one customer's bills in ascending bill-date
// order. For every consecutive pair starting at the second bill, the amount
// paid between the two is the previous closing balance minus the current
// bill's declared carry-forward; a non-zero difference is a hidden payment.
// Fewer than two bills yield no entries.
func DetectHiddenPayments(bills []BillSummary) []HiddenPayment {
	if len(bills) < 2 {
		return nil
	}

	ordered := make([]BillSummary, len(bills))
	copy(ordered, bills)
	SortBillsAscending(ordered)

	var hidden []HiddenPayment
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		paid := prev.FinalResult.Sub(cur.CarryForward)
		if paid.IsZero() {
			continue
		}
		hidden = append(hidden, HiddenPayment{
			PreviousBillID:      prev.BillID,
			CurrentBillID:       cur.BillID,
			PreviousDate:        prev.BillDate,
			CurrentDate:         cur.BillDate,
			PreviousFinalResult: prev.FinalResult,
			CurrentCarry:        cur.CarryForward,
			Paid:                paid,
		})
	}
	return hidden
}

// Reconcile computes the full ledger for one customer's bills. An empty
// slice yields an all-zero ledger, never an error. TotalDebt is the ground
// truth declared by the latest bill; TotalResult is the engine's own
// spent-minus-paid figure. The two may diverge and are both reported.
func Reconcile(bills []BillSummary) CustomerLedger {
	ledger := CustomerLedger{
		TotalSpent:         decimal.Zero,
		TotalPaid:          decimal.Zero,
		TotalDebt:          decimal.Zero,
		TotalResult:        decimal.Zero,
		TotalHiddenPayment: decimal.Zero,
		ActualPaid:         decimal.Zero,
	}
	if len(bills) == 0 {
		return ledger
	}

	ledger.CustomerID = bills[0].CustomerID
	ledger.CustomerName = bills[0].CustomerName
	ledger.BillCount = int64(len(bills))

	for _, b := range bills {
		ledger.TotalSpent = ledger.TotalSpent.Add(b.SpentTotal)
		ledger.TotalPaid = ledger.TotalPaid.Add(b.PaidTotal)
	}

	if latest := LatestBill(bills); latest != nil {
		ledger.TotalDebt = latest.FinalResult
	}

	ledger.HiddenPayments = DetectHiddenPayments(bills)
	for _, h := range ledger.HiddenPayments {
		ledger.TotalHiddenPayment = ledger.TotalHiddenPayment.Add(h.Paid)
	}

	ledger.TotalResult = ledger.TotalSpent.Sub(ledger.TotalPaid)
	ledger.ActualPaid = ledger.TotalPaid.Add(ledger.TotalHiddenPayment)
	return ledger
}

// GroupByCustomer splits summary rows into per-customer slices.
func GroupByCustomer(bills []BillSummary) map[uuid.UUID][]BillSummary {
	grouped := make(map[uuid.UUID][]BillSummary)
	for _, b := range bills {
		grouped[b.CustomerID] = append(grouped[b.CustomerID], b)
	}
	return grouped
}
