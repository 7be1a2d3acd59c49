package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/retail/backend/internal/domain/insight"
)

// ExportFinanceChart renders the finance trend series as an XLSX workbook
// and returns its bytes together with a suggested filename. The customer
// scope is optional, like the chart it renders.
func (s *InsightService) ExportFinanceChart(ctx context.Context, retailerID uuid.UUID, customerID *uuid.UUID, filter ReportFilter, granularity insight.Granularity) ([]byte, string, error) {
	rows, err := s.GetFinanceChartData(ctx, retailerID, customerID, filter, granularity)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Finance Chart"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create header style: %w", err)
	}

	headers := []string{"Period", "Total Spent", "Total Paid", "Actual Bill Debt"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", headerStyle); err != nil {
		return nil, "", fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range rows {
		rowNum := i + 2
		values := []any{
			periodLabel(row.Period),
			row.TotalSpent,
			row.TotalPaid,
			row.ActualBillDebt,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", fmt.Errorf("failed to write row %d: %w", rowNum, err)
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 16); err != nil {
		return nil, "", fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "D", 18); err != nil {
		return nil, "", fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("finance-chart-%s-%s.xlsx", granularity, time.Now().Format("20060102"))
	return buf.Bytes(), filename, nil
}

// periodLabel renders a period key as a compact human-readable label.
func periodLabel(p PeriodResponse) string {
	switch {
	case p.Day != nil && p.Month != nil:
		return fmt.Sprintf("%04d-%02d-%02d", p.Year, *p.Month, *p.Day)
	case p.Week != nil:
		return fmt.Sprintf("%04d-W%02d", p.Year, *p.Week)
	case p.Month != nil:
		return fmt.Sprintf("%04d-%02d", p.Year, *p.Month)
	case p.Quarter != nil:
		return fmt.Sprintf("%04d-Q%d", p.Year, *p.Quarter)
	default:
		return fmt.Sprintf("%04d", p.Year)
	}
}
