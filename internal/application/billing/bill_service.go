package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/billing"
)

// BillService handles the bill ingestion and lookup use cases.
type BillService struct {
	repo billing.BillRepository
}

// NewBillService creates a new BillService.
func NewBillService(repo billing.BillRepository) *BillService {
	return &BillService{repo: repo}
}

// LineItemInput is one sold line submitted with a new bill.
type LineItemInput struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

// AdjustmentInput is one signed monetary entry submitted with a new bill.
type AdjustmentInput struct {
	Name      string  `json:"name"`
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
}

// CreateBillInput carries everything needed to ingest one bill.
type CreateBillInput struct {
	CustomerID   uuid.UUID
	CustomerName string
	BillDate     time.Time
	Items        []LineItemInput
	Adjustments  []AdjustmentInput
	FinalResult  float64
}

// LineItemResponse is one bill line in wire form.
type LineItemResponse struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

// AdjustmentResponse is one adjustment entry in wire form.
type AdjustmentResponse struct {
	Name      string  `json:"name"`
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
	Kind      string  `json:"kind"`
}

// BillResponse is a persisted bill in wire form.
type BillResponse struct {
	ID           string               `json:"id"`
	CustomerID   string               `json:"customerId"`
	CustomerName string               `json:"customerName"`
	BillDate     time.Time            `json:"billDate"`
	Items        []LineItemResponse   `json:"items"`
	Adjustments  []AdjustmentResponse `json:"adjustments"`
	FinalResult  float64              `json:"finalResult"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// CreateBill validates and persists one bill. Adjustment kinds are decided
// here, at the ingestion boundary, and never re-derived afterwards.
func (s *BillService) CreateBill(ctx context.Context, retailerID uuid.UUID, input CreateBillInput) (*BillResponse, error) {
	items := make([]billing.LineItem, len(input.Items))
	for i, item := range input.Items {
		items[i] = billing.LineItem{
			Name:     item.Name,
			Quantity: decimal.NewFromFloat(item.Quantity),
			Price:    decimal.NewFromFloat(item.Price),
			Total:    decimal.NewFromFloat(item.Total),
		}
	}

	adjustments := make([]billing.Adjustment, len(input.Adjustments))
	for i, adj := range input.Adjustments {
		adjustments[i] = billing.Adjustment{
			Name:      adj.Name,
			Direction: billing.AdjustmentDirection(adj.Direction),
			Amount:    decimal.NewFromFloat(adj.Amount),
		}
	}

	bill, err := billing.NewBill(
		retailerID,
		input.CustomerID,
		input.CustomerName,
		input.BillDate,
		items,
		adjustments,
		decimal.NewFromFloat(input.FinalResult),
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, err
	}

	return toBillResponse(bill), nil
}

// GetBill loads one bill scoped to its retailer.
func (s *BillService) GetBill(ctx context.Context, retailerID, billID uuid.UUID) (*BillResponse, error) {
	bill, err := s.repo.FindByID(ctx, retailerID, billID)
	if err != nil {
		return nil, err
	}
	return toBillResponse(bill), nil
}

// DeleteBill soft-deletes one bill so every aggregation skips it.
func (s *BillService) DeleteBill(ctx context.Context, retailerID, billID uuid.UUID) error {
	return s.repo.SoftDelete(ctx, retailerID, billID)
}

func toBillResponse(bill *billing.Bill) *BillResponse {
	items := make([]LineItemResponse, len(bill.Items))
	for i, item := range bill.Items {
		items[i] = LineItemResponse{
			Name:     item.Name,
			Quantity: item.Quantity.InexactFloat64(),
			Price:    item.Price.InexactFloat64(),
			Total:    item.Total.InexactFloat64(),
		}
	}

	adjustments := make([]AdjustmentResponse, len(bill.Adjustments))
	for i, adj := range bill.Adjustments {
		adjustments[i] = AdjustmentResponse{
			Name:      adj.Name,
			Direction: string(adj.Direction),
			Amount:    adj.Amount.InexactFloat64(),
			Kind:      string(adj.Kind),
		}
	}

	return &BillResponse{
		ID:           bill.ID.String(),
		CustomerID:   bill.CustomerID.String(),
		CustomerName: bill.CustomerName,
		BillDate:     bill.BillDate,
		Items:        items,
		Adjustments:  adjustments,
		FinalResult:  bill.FinalResult.InexactFloat64(),
		CreatedAt:    bill.CreatedAt,
	}
}
