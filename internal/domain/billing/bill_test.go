package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAdjustment(t *testing.T) {
	tests := []struct {
		name      string
		tag       string
		direction AdjustmentDirection
		want      AdjustmentKind
	}{
		{"subtracting payment tag", PaymentTag, DirectionSubtract, AdjustmentPayment},
		{"adding carry-forward tag", CarryForwardTag, DirectionAdd, AdjustmentCarryForward},
		{"payment tag with wrong direction", PaymentTag, DirectionAdd, AdjustmentOther},
		{"carry tag with wrong direction", CarryForwardTag, DirectionSubtract, AdjustmentOther},
		{"unknown name", "Chiết khấu", DirectionSubtract, AdjustmentOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAdjustment(tt.tag, tt.direction))
		})
	}
}

func TestNewBill(t *testing.T) {
	retailerID := uuid.New()
	customerID := uuid.New()
	billDate := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("classifies adjustments at ingestion", func(t *testing.T) {
		bill, err := NewBill(retailerID, customerID, "Nguyen", billDate,
			[]LineItem{{Name: "Paracetamol", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(50)}},
			[]Adjustment{
				{Name: PaymentTag, Direction: DirectionSubtract, Amount: decimal.NewFromInt(30)},
				{Name: CarryForwardTag, Direction: DirectionAdd, Amount: decimal.NewFromInt(100)},
			},
			decimal.NewFromInt(70),
		)
		require.NoError(t, err)
		assert.Equal(t, AdjustmentPayment, bill.Adjustments[0].Kind)
		assert.Equal(t, AdjustmentCarryForward, bill.Adjustments[1].Kind)
	})

	t.Run("backfills missing line totals", func(t *testing.T) {
		bill, err := NewBill(retailerID, customerID, "Nguyen", billDate,
			[]LineItem{{Name: "Paracetamol", Quantity: decimal.NewFromInt(3), Price: decimal.NewFromInt(10)}},
			nil, decimal.Zero,
		)
		require.NoError(t, err)
		assert.True(t, bill.Items[0].Total.Equal(decimal.NewFromInt(30)))
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		_, err := NewBill(uuid.Nil, customerID, "Nguyen", billDate, nil, nil, decimal.Zero)
		assert.Error(t, err)

		_, err = NewBill(retailerID, uuid.Nil, "Nguyen", billDate, nil, nil, decimal.Zero)
		assert.Error(t, err)

		_, err = NewBill(retailerID, customerID, "Nguyen", time.Time{}, nil, nil, decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects unknown adjustment direction", func(t *testing.T) {
		_, err := NewBill(retailerID, customerID, "Nguyen", billDate, nil,
			[]Adjustment{{Name: "x", Direction: "multiply", Amount: decimal.NewFromInt(1)}},
			decimal.Zero,
		)
		assert.Error(t, err)
	})
}

func TestBillTotals(t *testing.T) {
	retailerID := uuid.New()
	customerID := uuid.New()
	billDate := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	bill, err := NewBill(retailerID, customerID, "Nguyen", billDate,
		[]LineItem{
			{Name: "A", Quantity: decimal.NewFromInt(3), Price: decimal.NewFromInt(10), Total: decimal.NewFromInt(29)},
			{Name: "B", Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(4)},
		},
		[]Adjustment{
			{Name: PaymentTag, Direction: DirectionSubtract, Amount: decimal.NewFromInt(30)},
			{Name: PaymentTag, Direction: DirectionSubtract, Amount: decimal.NewFromInt(5)},
			{Name: CarryForwardTag, Direction: DirectionAdd, Amount: decimal.NewFromInt(80)},
			{Name: "Khuyến mãi", Direction: DirectionSubtract, Amount: decimal.NewFromInt(2)},
		},
		decimal.NewFromInt(70),
	)
	require.NoError(t, err)

	// Recomputed spend ignores stored total drift; line total keeps it.
	assert.True(t, bill.SpentTotal().Equal(decimal.NewFromInt(50)))
	assert.True(t, bill.LineTotal().Equal(decimal.NewFromInt(49)))
	assert.True(t, bill.PaidTotal().Equal(decimal.NewFromInt(35)))
	assert.True(t, bill.CarryForward().Equal(decimal.NewFromInt(80)))
	assert.False(t, bill.IsDeleted())
}
