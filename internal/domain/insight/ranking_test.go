package insight

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail/backend/internal/domain/billing"
)

func TestParseSignedSort(t *testing.T) {
	allowed := RankingSortFields

	t.Run("bare field sorts ascending", func(t *testing.T) {
		field, asc := ParseSignedSort("totalPaid", allowed, DefaultRankingSort)
		assert.Equal(t, "totalPaid", field)
		assert.True(t, asc)
	})

	t.Run("plus prefix sorts ascending", func(t *testing.T) {
		field, asc := ParseSignedSort("+totalDebt", allowed, DefaultRankingSort)
		assert.Equal(t, "totalDebt", field)
		assert.True(t, asc)
	})

	t.Run("minus prefix sorts descending", func(t *testing.T) {
		field, asc := ParseSignedSort("-actualPaid", allowed, DefaultRankingSort)
		assert.Equal(t, "actualPaid", field)
		assert.False(t, asc)
	})

	t.Run("unknown field falls back to default", func(t *testing.T) {
		field, asc := ParseSignedSort("-no_such_field", allowed, DefaultRankingSort)
		assert.Equal(t, DefaultRankingSort, field)
		assert.False(t, asc)
	})

	t.Run("empty input falls back to default ascending", func(t *testing.T) {
		field, asc := ParseSignedSort("", allowed, DefaultRankingSort)
		assert.Equal(t, DefaultRankingSort, field)
		assert.True(t, asc)
	})
}

func TestSortCustomerRanking(t *testing.T) {
	rows := []CustomerRankingRow{
		{CustomerName: "A", TotalSpent: dec(300), TotalDebt: dec(10)},
		{CustomerName: "B", TotalSpent: dec(100), TotalDebt: dec(30)},
		{CustomerName: "C", TotalSpent: dec(200), TotalDebt: dec(20)},
	}

	t.Run("ascending by spend", func(t *testing.T) {
		sorted := append([]CustomerRankingRow(nil), rows...)
		SortCustomerRanking(sorted, "totalSpent", true)
		assert.Equal(t, []string{"B", "C", "A"}, names(sorted))
	})

	t.Run("descending by debt", func(t *testing.T) {
		sorted := append([]CustomerRankingRow(nil), rows...)
		SortCustomerRanking(sorted, "totalDebt", false)
		assert.Equal(t, []string{"B", "C", "A"}, names(sorted))
	})
}

func names(rows []CustomerRankingRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.CustomerName
	}
	return out
}

func TestRankCustomers(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	customerID := uuid.New()

	t.Run("spend is range-scoped, payments cover full history", func(t *testing.T) {
		// Only the March bill is in range; the earlier history carries the
		// payments and a hidden-payment discrepancy.
		inRange := []BillSummary{summary(customerID, mar, 40, 60, 0, 0)}
		history := []BillSummary{
			summary(customerID, jan, 100, 0, 0, 0),
			summary(customerID, feb, 70, 100, 30, 80),
			inRange[0],
		}
		payments := []PaymentEntry{
			{BillID: history[1].BillID, CustomerID: customerID, BillDate: feb, Name: billing.PaymentTag, Amount: dec(30)},
		}

		rows := RankCustomers(inRange, map[uuid.UUID][]BillSummary{customerID: history}, payments)
		require.Len(t, rows, 1)
		row := rows[0]

		assert.Equal(t, int64(1), row.BillCount)
		assert.True(t, row.TotalSpent.Equal(dec(60)))
		assert.True(t, row.TotalPaid.Equal(dec(30)))
		assert.True(t, row.TotalDebt.Equal(dec(30)))
		assert.True(t, row.ActualLatestBillDebt.Equal(dec(40)))
		require.Len(t, row.PaidList, 1)
		require.Len(t, row.HiddenPayments, 2)
		assert.True(t, row.ActualPaid.Equal(row.TotalPaid.Add(row.TotalHiddenPayment)))
	})

	t.Run("missing history falls back to range bills", func(t *testing.T) {
		inRange := []BillSummary{summary(customerID, jan, 50, 50, 10, 0)}
		rows := RankCustomers(inRange, nil, nil)
		require.Len(t, rows, 1)
		assert.True(t, rows[0].TotalPaid.Equal(dec(10)))
		assert.Empty(t, rows[0].HiddenPayments)
	})

	t.Run("zero rows for empty input", func(t *testing.T) {
		assert.Empty(t, RankCustomers(nil, nil, nil))
	})
}

func TestRankingSortKeyCoversWhitelist(t *testing.T) {
	row := CustomerRankingRow{
		TotalSpent:           dec(1),
		TotalPaid:            dec(2),
		TotalDebt:            dec(3),
		ActualLatestBillDebt: dec(4),
		BillCount:            5,
		TotalHiddenPayment:   dec(6),
		ActualPaid:           dec(7),
	}
	want := map[string]decimal.Decimal{
		"totalSpent":           dec(1),
		"totalPaid":            dec(2),
		"totalDebt":            dec(3),
		"actualLatestBillDebt": dec(4),
		"billCount":            dec(5),
		"totalHiddenPayment":   dec(6),
		"actualPaid":           dec(7),
	}
	for field, expected := range want {
		require.True(t, RankingSortFields[field])
		assert.True(t, rankingSortKey(field)(row).Equal(expected), field)
	}
}
