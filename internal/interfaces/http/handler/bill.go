package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/retail/backend/internal/application/billing"
	"github.com/retail/backend/internal/interfaces/http/dto"
)

// BillHandler handles bill ingestion API endpoints
type BillHandler struct {
	BaseHandler
	billService *billingapp.BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(billService *billingapp.BillService) *BillHandler {
	return &BillHandler{
		billService: billService,
	}
}

// ===================== Request DTOs =====================

// BillLineItemRequest is one sold line on an incoming bill
type BillLineItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

// BillAdjustmentRequest is one signed monetary entry on an incoming bill
type BillAdjustmentRequest struct {
	Name      string  `json:"name" binding:"required"`
	Direction string  `json:"direction" binding:"required,oneof=add subtract"`
	Amount    float64 `json:"amount"`
}

// CreateBillRequest defines the payload for ingesting a bill
type CreateBillRequest struct {
	CustomerID   string                  `json:"customerId" binding:"required,uuid"`
	CustomerName string                  `json:"customerName"`
	BillDate     string                  `json:"billDate" binding:"required,datetime=2006-01-02"`
	Items        []BillLineItemRequest   `json:"items"`
	Adjustments  []BillAdjustmentRequest `json:"adjustments"`
	FinalResult  float64                 `json:"finalResult"`
}

// ===================== Endpoints =====================

// CreateBill godoc
// @Summary      Ingest a bill
// @Description  Persists one immutable bill with its line items and adjustments
// @Tags         bills
// @Accept       json
// @Produce      json
// @Param        request body CreateBillRequest true "Bill payload"
// @Success      201 {object} dto.Response{data=billingapp.BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	billDate, err := time.Parse("2006-01-02", req.BillDate)
	if err != nil {
		h.BadRequest(c, "billDate: Invalid date format, expected YYYY-MM-DD")
		return
	}

	items := make([]billingapp.LineItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = billingapp.LineItemInput{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Total:    item.Total,
		}
	}

	adjustments := make([]billingapp.AdjustmentInput, len(req.Adjustments))
	for i, adj := range req.Adjustments {
		adjustments[i] = billingapp.AdjustmentInput{
			Name:      adj.Name,
			Direction: adj.Direction,
			Amount:    adj.Amount,
		}
	}

	bill, err := h.billService.CreateBill(c.Request.Context(), retailerID, billingapp.CreateBillInput{
		CustomerID:   uuid.MustParse(req.CustomerID),
		CustomerName: req.CustomerName,
		BillDate:     billDate,
		Items:        items,
		Adjustments:  adjustments,
		FinalResult:  req.FinalResult,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, bill)
}

// GetBill godoc
// @Summary      Get a bill
// @Description  Loads one bill with its line items and adjustments
// @Tags         bills
// @Produce      json
// @Param        id path string true "Bill ID"
// @Success      200 {object} dto.Response{data=billingapp.BillResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "id: Invalid UUID format")
		return
	}

	bill, err := h.billService.GetBill(c.Request.Context(), retailerID, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, bill)
}

// DeleteBill godoc
// @Summary      Delete a bill
// @Description  Soft-deletes one bill so every aggregation skips it
// @Tags         bills
// @Param        id path string true "Bill ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /bills/{id} [delete]
func (h *BillHandler) DeleteBill(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "id: Invalid UUID format")
		return
	}

	if err := h.billService.DeleteBill(c.Request.Context(), retailerID, uuid.MustParse(req.ID)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes implements the router.RouteRegistrar interface
func (h *BillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/bills")
	{
		bills.POST("", h.CreateBill)
		bills.GET(":id", h.GetBill)
		bills.DELETE(":id", h.DeleteBill)
	}
}
