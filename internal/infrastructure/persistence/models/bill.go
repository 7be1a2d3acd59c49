package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/billing"
)

// BillModel is the persistence model for the Bill aggregate. Bills are
// immutable once written; DeletedAt implements the soft-delete flag every
// aggregation filters on.
type BillModel struct {
	ID           uuid.UUID             `gorm:"type:uuid;primary_key"`
	RetailerID   uuid.UUID             `gorm:"type:uuid;not null;index:idx_bills_retailer_date,priority:1"`
	CustomerID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	CustomerName string                `gorm:"type:varchar(200);not null"`
	BillDate     time.Time             `gorm:"not null;index:idx_bills_retailer_date,priority:2"`
	FinalResult  decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Items        []BillLineItemModel   `gorm:"foreignKey:BillID;references:ID"`
	Adjustments  []BillAdjustmentModel `gorm:"foreignKey:BillID;references:ID"`
	CreatedAt    time.Time             `gorm:"not null"`
	DeletedAt    *time.Time            `gorm:"index"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// BillLineItemModel is one sold line of a bill. Position preserves the
// order the line was written in.
type BillLineItemModel struct {
	ID       uuid.UUID       `gorm:"type:uuid;primary_key"`
	BillID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position int             `gorm:"not null"`
	Name     string          `gorm:"type:varchar(200);not null"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Price    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (BillLineItemModel) TableName() string {
	return "bill_line_items"
}

// BillAdjustmentModel is one named monetary adjustment on a bill. Kind is
// classified once at ingestion; aggregations filter on it instead of the
// display name.
type BillAdjustmentModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	BillID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null"`
	Name      string          `gorm:"type:varchar(100);not null"`
	Direction string          `gorm:"type:varchar(10);not null"`
	Kind      string          `gorm:"type:varchar(20);not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (BillAdjustmentModel) TableName() string {
	return "bill_adjustments"
}

// ToDomain converts the persistence model to a domain Bill.
func (m *BillModel) ToDomain() *billing.Bill {
	bill := &billing.Bill{
		ID:           m.ID,
		RetailerID:   m.RetailerID,
		CustomerID:   m.CustomerID,
		CustomerName: m.CustomerName,
		BillDate:     m.BillDate,
		FinalResult:  m.FinalResult,
		CreatedAt:    m.CreatedAt,
		DeletedAt:    m.DeletedAt,
		Items:        make([]billing.LineItem, len(m.Items)),
		Adjustments:  make([]billing.Adjustment, len(m.Adjustments)),
	}
	for i, item := range m.Items {
		bill.Items[i] = billing.LineItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Total:    item.Total,
		}
	}
	for i, adj := range m.Adjustments {
		bill.Adjustments[i] = billing.Adjustment{
			Name:      adj.Name,
			Direction: billing.AdjustmentDirection(adj.Direction),
			Amount:    adj.Amount,
			Kind:      billing.AdjustmentKind(adj.Kind),
		}
	}
	return bill
}

// FromDomain populates the persistence model from a domain Bill.
func (m *BillModel) FromDomain(b *billing.Bill) {
	m.ID = b.ID
	m.RetailerID = b.RetailerID
	m.CustomerID = b.CustomerID
	m.CustomerName = b.CustomerName
	m.BillDate = b.BillDate
	m.FinalResult = b.FinalResult
	m.CreatedAt = b.CreatedAt
	m.DeletedAt = b.DeletedAt

	m.Items = make([]BillLineItemModel, len(b.Items))
	for i, item := range b.Items {
		m.Items[i] = BillLineItemModel{
			ID:       uuid.New(),
			BillID:   b.ID,
			Position: i,
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Total:    item.Total,
		}
	}

	m.Adjustments = make([]BillAdjustmentModel, len(b.Adjustments))
	for i, adj := range b.Adjustments {
		m.Adjustments[i] = BillAdjustmentModel{
			ID:        uuid.New(),
			BillID:    b.ID,
			Position:  i,
			Name:      adj.Name,
			Direction: string(adj.Direction),
			Kind:      string(adj.Kind),
			Amount:    adj.Amount,
		}
	}
}
