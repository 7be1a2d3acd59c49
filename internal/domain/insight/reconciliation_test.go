package insight

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func summary(customerID uuid.UUID, billDate time.Time, finalResult, spent, paid, carry int64) BillSummary {
	return BillSummary{
		BillID:       uuid.New(),
		CustomerID:   customerID,
		CustomerName: "Test Customer",
		BillDate:     billDate,
		CreatedAt:    billDate,
		FinalResult:  dec(finalResult),
		SpentTotal:   dec(spent),
		LineTotal:    dec(spent),
		PaidTotal:    dec(paid),
		CarryForward: dec(carry),
	}
}

func TestDetectHiddenPayments(t *testing.T) {
	customerID := uuid.New()
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("matching carry-forward emits nothing", func(t *testing.T) {
		bills := []BillSummary{
			summary(customerID, jan, 100, 0, 0, 0),
			summary(customerID, feb, 70, 100, 30, 100),
		}
		assert.Empty(t, DetectHiddenPayments(bills))
	})

	t.Run("carry-forward shortfall is a hidden payment", func(t *testing.T) {
		bills := []BillSummary{
			summary(customerID, jan, 100, 0, 0, 0),
			summary(customerID, feb, 70, 100, 30, 80),
		}
		hidden := DetectHiddenPayments(bills)
		require.Len(t, hidden, 1)
		assert.True(t, hidden[0].Paid.Equal(dec(20)))
		assert.True(t, hidden[0].PreviousFinalResult.Equal(dec(100)))
		assert.True(t, hidden[0].CurrentCarry.Equal(dec(80)))
		assert.Equal(t, jan, hidden[0].PreviousDate)
		assert.Equal(t, feb, hidden[0].CurrentDate)
	})

	t.Run("missing carry-forward counts as zero", func(t *testing.T) {
		bills := []BillSummary{
			summary(customerID, jan, 50, 50, 0, 0),
			summary(customerID, feb, 80, 30, 0, 0),
		}
		hidden := DetectHiddenPayments(bills)
		require.Len(t, hidden, 1)
		assert.True(t, hidden[0].Paid.Equal(dec(50)))
	})

	t.Run("input order does not matter", func(t *testing.T) {
		bills := []BillSummary{
			summary(customerID, mar, 10, 10, 0, 0),
			summary(customerID, jan, 100, 0, 0, 0),
			summary(customerID, feb, 70, 100, 30, 80),
		}
		hidden := DetectHiddenPayments(bills)
		require.Len(t, hidden, 2)
		assert.Equal(t, jan, hidden[0].PreviousDate)
		assert.Equal(t, feb, hidden[1].PreviousDate)
	})

	t.Run("single bill yields no entries", func(t *testing.T) {
		bills := []BillSummary{summary(customerID, jan, 100, 100, 0, 0)}
		assert.Empty(t, DetectHiddenPayments(bills))
	})

	t.Run("empty input yields no entries", func(t *testing.T) {
		assert.Empty(t, DetectHiddenPayments(nil))
	})
}

func TestReconcile(t *testing.T) {
	customerID := uuid.New()
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("two bills with matching carry-forward", func(t *testing.T) {
		bills := []BillSummary{
			summary(customerID, jan, 100, 0, 0, 0),
			summary(customerID, feb, 70, 100, 30, 100),
		}
		ledger := Reconcile(bills)

		assert.Equal(t, int64(2), ledger.BillCount)
		assert.True(t, ledger.TotalSpent.Equal(dec(100)))
		assert.True(t, ledger.TotalPaid.Equal(dec(30)))
		assert.True(t, ledger.TotalDebt.Equal(dec(70)))
		assert.Empty(t, ledger.HiddenPayments)
		assert.True(t, ledger.TotalResult.Equal(dec(70)))
		assert.True(t, ledger.ActualPaid.Equal(dec(30)))
	})

	t.Run("carry-forward shortfall raises actual paid", func(t *testing.T) {
		bills := []BillSummary{
			summary(customerID, jan, 100, 0, 0, 0),
			summary(customerID, feb, 70, 100, 30, 80),
		}
		ledger := Reconcile(bills)

		require.Len(t, ledger.HiddenPayments, 1)
		assert.True(t, ledger.TotalHiddenPayment.Equal(dec(20)))
		assert.True(t, ledger.ActualPaid.Equal(dec(50)))
	})

	t.Run("total result identity holds", func(t *testing.T) {
		bills := []BillSummary{
			summary(customerID, jan, 40, 120, 25, 0),
			summary(customerID, feb, 90, 55, 10, 15),
		}
		ledger := Reconcile(bills)
		assert.True(t, ledger.TotalResult.Equal(ledger.TotalSpent.Sub(ledger.TotalPaid)))
		assert.True(t, ledger.ActualPaid.Equal(ledger.TotalPaid.Add(ledger.TotalHiddenPayment)))
	})

	t.Run("empty bill set yields zero ledger", func(t *testing.T) {
		ledger := Reconcile(nil)
		assert.Equal(t, int64(0), ledger.BillCount)
		assert.True(t, ledger.TotalSpent.IsZero())
		assert.True(t, ledger.TotalPaid.IsZero())
		assert.True(t, ledger.TotalDebt.IsZero())
		assert.Empty(t, ledger.HiddenPayments)
	})
}

func TestLatestBill(t *testing.T) {
	customerID := uuid.New()
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("latest by bill date", func(t *testing.T) {
		a := summary(customerID, jan, 10, 0, 0, 0)
		b := summary(customerID, feb, 20, 0, 0, 0)
		latest := LatestBill([]BillSummary{a, b})
		require.NotNil(t, latest)
		assert.Equal(t, b.BillID, latest.BillID)
	})

	t.Run("creation time breaks date ties", func(t *testing.T) {
		a := summary(customerID, jan, 10, 0, 0, 0)
		b := summary(customerID, jan, 20, 0, 0, 0)
		b.CreatedAt = a.CreatedAt.Add(time.Hour)
		latest := LatestBill([]BillSummary{b, a})
		require.NotNil(t, latest)
		assert.Equal(t, b.BillID, latest.BillID)
	})

	t.Run("nil for empty slice", func(t *testing.T) {
		assert.Nil(t, LatestBill(nil))
	})
}

func TestGroupByCustomer(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	grouped := GroupByCustomer([]BillSummary{
		summary(first, jan, 10, 0, 0, 0),
		summary(second, jan, 20, 0, 0, 0),
		summary(first, jan.AddDate(0, 1, 0), 30, 0, 0, 0),
	})

	require.Len(t, grouped, 2)
	assert.Len(t, grouped[first], 2)
	assert.Len(t, grouped[second], 1)
}
