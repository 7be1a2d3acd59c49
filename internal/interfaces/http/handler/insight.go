package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	insightapp "github.com/retail/backend/internal/application/insight"
	"github.com/retail/backend/internal/domain/insight"
	"github.com/retail/backend/internal/interfaces/http/dto"
)

// InsightHandler handles reporting and aggregation API endpoints
type InsightHandler struct {
	BaseHandler
	insightService *insightapp.InsightService
}

// NewInsightHandler creates a new InsightHandler
func NewInsightHandler(insightService *insightapp.InsightService) *InsightHandler {
	return &InsightHandler{
		insightService: insightService,
	}
}

// ===================== Request DTOs =====================

// TopItemsRequest defines the filter for item ranking queries
type TopItemsRequest struct {
	dto.DateRangeRequest
	SortBy string `form:"sortBy" binding:"omitempty,oneof=quantity revenue"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}

// TopItemsByPeriodRequest defines the filter for bucketed item rankings
type TopItemsByPeriodRequest struct {
	dto.DateRangeRequest
	Granularity string `form:"granularity"`
	SortBy      string `form:"sortBy" binding:"omitempty,oneof=quantity revenue"`
	TopN        int    `form:"topN" binding:"omitempty,min=1"`
}

// RankingRequest defines the filter for the customer ranking report
type RankingRequest struct {
	dto.DateRangeRequest
	SortBy string `form:"sortBy"`
	Top    int    `form:"top" binding:"omitempty,min=1"`
}

// FinanceOverviewRequest defines the filter for the finance rollup
type FinanceOverviewRequest struct {
	dto.DateRangeRequest
	CustomerID string `form:"customerId" binding:"omitempty,uuid"`
}

// ChartRequest defines the filter for trend chart queries
type ChartRequest struct {
	dto.DateRangeRequest
	Granularity string `form:"granularity"`
	CustomerID  string `form:"customerId" binding:"omitempty,uuid"`
}

// ===================== Customer Endpoints =====================

// GetCustomerOverview godoc
// @Summary      Get customer debt overview
// @Description  Aggregated spend, payments and reconciled debt for one customer
// @Tags         insight
// @Produce      json
// @Param        id path string true "Customer ID"
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=insightapp.CustomerOverviewResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/customers/{id}/overview [get]
func (h *InsightHandler) GetCustomerOverview(c *gin.Context) {
	retailerID, customerID, filter, ok := h.bindCustomerScope(c)
	if !ok {
		return
	}

	overview, err := h.insightService.GetCustomerOverview(c.Request.Context(), retailerID, customerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, overview)
}

// GetCustomerOverviewByMonth godoc
// @Summary      Get customer overview bucketed by day
// @Description  Daily spend and cumulative payments for one customer inside a month window
// @Tags         insight
// @Produce      json
// @Param        id path string true "Customer ID"
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]insightapp.CustomerPeriodResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/customers/{id}/overview-by-month [get]
func (h *InsightHandler) GetCustomerOverviewByMonth(c *gin.Context) {
	retailerID, customerID, filter, ok := h.bindCustomerScope(c)
	if !ok {
		return
	}

	buckets, err := h.insightService.GetCustomerOverviewByMonth(c.Request.Context(), retailerID, customerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, buckets)
}

// GetCustomerHiddenPaid godoc
// @Summary      Get hidden payments for a customer
// @Description  Reconciliation discrepancies between consecutive bill balances
// @Tags         insight
// @Produce      json
// @Param        id path string true "Customer ID"
// @Param        from query string true "Start date (YYYY-MM-DD)"
// @Param        to query string true "End date (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=insightapp.HiddenPaidResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/customers/{id}/hidden-payments [get]
func (h *InsightHandler) GetCustomerHiddenPaid(c *gin.Context) {
	retailerID, customerID, filter, ok := h.bindCustomerScope(c)
	if !ok {
		return
	}
	if filter.From == nil || filter.To == nil {
		h.BadRequest(c, "from and to are required")
		return
	}

	result, err := h.insightService.GetCustomerHiddenPaid(c.Request.Context(), retailerID, customerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetCustomerRanking godoc
// @Summary      Rank customers by aggregated finance fields
// @Description  Per-customer spend, payments and reconciled debt ordered by a signed sort key
// @Tags         insight
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Param        sortBy query string false "Signed sort key, e.g. -totalSpent"
// @Param        top query int false "Number of customers (full set when omitted)"
// @Success      200 {object} dto.Response{data=[]insightapp.CustomerRankingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/customers/ranking [get]
func (h *InsightHandler) GetCustomerRanking(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req RankingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := parseReportFilter(req.DateRangeRequest)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ranking, err := h.insightService.GetCustomerRanking(c.Request.Context(), retailerID, filter, req.SortBy, req.Top)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ranking)
}

// ===================== Item Endpoints =====================

// GetTopItems godoc
// @Summary      Get top selling items
// @Description  Item rankings by quantity or revenue over a strict date window
// @Tags         insight
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Param        sortBy query string false "Sort field: quantity or revenue"
// @Param        limit query int false "Number of items (full set when omitted)"
// @Success      200 {object} dto.Response{data=[]insightapp.ItemRankingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/items/top [get]
func (h *InsightHandler) GetTopItems(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req TopItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := parseReportFilter(req.DateRangeRequest)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, err := h.insightService.GetTopItems(c.Request.Context(), retailerID, filter, itemSortField(req.SortBy), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, items)
}

// GetTopItemsByPeriod godoc
// @Summary      Get top items per time bucket
// @Description  Item rankings bucketed by period, newest bucket first
// @Tags         insight
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Param        granularity query string false "Bucket size: day, week, month, quarter or year (default month)"
// @Param        sortBy query string false "Sort field: quantity or revenue"
// @Param        topN query int false "Items per bucket (full set when omitted)"
// @Success      200 {object} dto.Response{data=[]insightapp.ItemPeriodBucketResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/items/top-by-period [get]
func (h *InsightHandler) GetTopItemsByPeriod(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req TopItemsByPeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := parseReportFilter(req.DateRangeRequest)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	granularity, err := parseGranularityParam(req.Granularity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	buckets, err := h.insightService.GetTopItemsByPeriod(c.Request.Context(), retailerID, filter, granularity, itemSortField(req.SortBy), req.TopN)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, buckets)
}

// ===================== Finance Endpoints =====================

// GetOverviewFinance godoc
// @Summary      Get retailer-wide finance overview
// @Description  Total spend, payments, hidden payments and reconciled debt for the period
// @Tags         insight
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Param        customerId query string false "Scope the rollup to one customer"
// @Success      200 {object} dto.Response{data=insightapp.FinanceOverviewResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/finance/overview [get]
func (h *InsightHandler) GetOverviewFinance(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req FinanceOverviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := parseReportFilter(req.DateRangeRequest)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	overview, err := h.insightService.GetOverviewFinance(c.Request.Context(), retailerID, optionalCustomerID(req.CustomerID), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, overview)
}

// GetFinanceChartData godoc
// @Summary      Get finance trend chart data
// @Description  Spend, payments and debt bucketed by period, newest bucket first
// @Tags         insight
// @Produce      json
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Param        granularity query string false "Bucket size: day, week, month, quarter or year (default month)"
// @Param        customerId query string false "Scope the series to one customer"
// @Success      200 {object} dto.Response{data=[]insightapp.FinanceChartRowResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/finance/chart [get]
func (h *InsightHandler) GetFinanceChartData(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req ChartRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := parseReportFilter(req.DateRangeRequest)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	granularity, err := parseGranularityParam(req.Granularity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	rows, err := h.insightService.GetFinanceChartData(c.Request.Context(), retailerID, optionalCustomerID(req.CustomerID), filter, granularity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// ExportFinanceChart godoc
// @Summary      Export finance chart data as XLSX
// @Description  Streams the finance trend chart as a spreadsheet download
// @Tags         insight
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        from query string false "Start date (YYYY-MM-DD)"
// @Param        to query string false "End date (YYYY-MM-DD)"
// @Param        granularity query string false "Bucket size: day, week, month, quarter or year (default month)"
// @Param        customerId query string false "Scope the export to one customer"
// @Success      200 {file} binary
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /insights/finance/chart/export [get]
func (h *InsightHandler) ExportFinanceChart(c *gin.Context) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return
	}

	var req ChartRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := parseReportFilter(req.DateRangeRequest)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	granularity, err := parseGranularityParam(req.Granularity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payload, filename, err := h.insightService.ExportFinanceChart(c.Request.Context(), retailerID, optionalCustomerID(req.CustomerID), filter, granularity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

// ===================== Helpers =====================

// bindCustomerScope extracts the retailer header, the customer path ID and
// the optional date window shared by the per-customer endpoints.
func (h *InsightHandler) bindCustomerScope(c *gin.Context) (uuid.UUID, uuid.UUID, insightapp.ReportFilter, bool) {
	retailerID, err := getRetailerID(c)
	if err != nil {
		h.BadRequest(c, "Invalid retailer ID")
		return uuid.Nil, uuid.Nil, insightapp.ReportFilter{}, false
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "id: Invalid UUID format")
		return uuid.Nil, uuid.Nil, insightapp.ReportFilter{}, false
	}
	customerID := uuid.MustParse(idReq.ID)

	var rangeReq dto.DateRangeRequest
	if err := c.ShouldBindQuery(&rangeReq); err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, insightapp.ReportFilter{}, false
	}

	filter, err := parseReportFilter(rangeReq)
	if err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, uuid.Nil, insightapp.ReportFilter{}, false
	}

	return retailerID, customerID, filter, true
}

// optionalCustomerID parses an already-validated customerId query value; an
// empty value means no customer scope.
func optionalCustomerID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

// parseReportFilter turns the optional YYYY-MM-DD pair into a date window.
// The upper bound is extended to end of day so "to" is inclusive.
func parseReportFilter(req dto.DateRangeRequest) (insightapp.ReportFilter, error) {
	var filter insightapp.ReportFilter

	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return filter, errors.New("from: Invalid date format, expected YYYY-MM-DD")
		}
		filter.From = &from
	}

	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return filter, errors.New("to: Invalid date format, expected YYYY-MM-DD")
		}
		to = to.Add(24*time.Hour - time.Second)
		filter.To = &to
	}

	return filter, nil
}

// itemSortField maps the sortBy query value onto a ranking sort field,
// falling back to quantity.
func itemSortField(s string) insight.ItemSortField {
	if s == string(insight.SortByRevenue) {
		return insight.SortByRevenue
	}
	return insight.SortByQuantity
}

// parseGranularityParam defaults an absent granularity to month.
func parseGranularityParam(s string) (insight.Granularity, error) {
	if s == "" {
		return insight.GranularityMonth, nil
	}
	return insight.ParseGranularity(s)
}

// RegisterRoutes implements the router.RouteRegistrar interface
func (h *InsightHandler) RegisterRoutes(rg *gin.RouterGroup) {
	insights := rg.Group("/insights")

	customers := insights.Group("/customers")
	{
		customers.GET("/ranking", h.GetCustomerRanking)
		customers.GET("/:id/overview", h.GetCustomerOverview)
		customers.GET("/:id/overview-by-month", h.GetCustomerOverviewByMonth)
		customers.GET("/:id/hidden-payments", h.GetCustomerHiddenPaid)
	}

	items := insights.Group("/items")
	{
		items.GET("/top", h.GetTopItems)
		items.GET("/top-by-period", h.GetTopItemsByPeriod)
	}

	finance := insights.Group("/finance")
	{
		finance.GET("/overview", h.GetOverviewFinance)
		finance.GET("/chart", h.GetFinanceChartData)
		finance.GET("/chart/export", h.ExportFinanceChart)
	}
}
