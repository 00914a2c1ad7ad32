// Package report 提供健康报表的 Excel 导出
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"vital-guardian/internal/models"
	"vital-guardian/internal/repository"
)

// EventExportHeader 事件表表头
var EventExportHeader = []string{
	"Session ID",
	"Event Type",
	"Severity",
	"Confidence",
	"Symptoms",
	"State",
	"Resolution",
	"Opened At",
	"Closed At",
}

// AuditExportHeader 审计表表头
var AuditExportHeader = []string{
	"Timestamp",
	"Session ID",
	"From State",
	"To State",
	"Cause",
}

// GenerateHealthReport 生成健康报表 Excel 文件
// 包含三个工作表：健康洞察摘要、历史紧急事件、审计记录
func GenerateHealthReport(insight models.Insight, events []*repository.EmergencyEventRow, audit []models.AuditRecord) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	if err := writeInsightSheet(f, insight); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeEventsSheet(f, events); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeAuditSheet(f, audit); err != nil {
		f.Close()
		return nil, err
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}

	return buf.Bytes(), nil
}

// writeInsightSheet 写入健康洞察摘要（键值对布局）
func writeInsightSheet(f *excelize.File, insight models.Insight) error {
	sheetName := "Insight"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	rows := [][2]any{
		{"Generated At", insight.GeneratedAt.Format(time.RFC3339)},
		{"Overall Health", insight.OverallHealth},
		{"Risk Score", insight.RiskScore},
		{"Next Check-In", insight.NextCheckIn.String()},
	}
	for _, factor := range insight.RiskFactors {
		rows = append(rows, [2]any{"Risk Factor", factor})
	}
	for _, rec := range insight.Recommendations {
		rows = append(rows, [2]any{"Recommendation", rec})
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}

	for i, row := range rows {
		keyCell := fmt.Sprintf("A%d", i+1)
		valCell := fmt.Sprintf("B%d", i+1)
		if err := f.SetCellValue(sheetName, keyCell, row[0]); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", keyCell, err)
		}
		if err := f.SetCellValue(sheetName, valCell, row[1]); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", valCell, err)
		}
		if err := f.SetCellStyle(sheetName, keyCell, keyCell, style); err != nil {
			return fmt.Errorf("failed to set cell style: %w", err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 60); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	return nil
}

// writeEventsSheet 写入历史紧急事件
func writeEventsSheet(f *excelize.File, events []*repository.EmergencyEventRow) error {
	sheetName := "Events"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeHeaderRow(f, sheetName, EventExportHeader); err != nil {
		return err
	}

	for rowIdx, event := range events {
		row := rowIdx + 2
		closedAt := ""
		if event.ClosedAt != nil {
			closedAt = event.ClosedAt.Format(time.RFC3339)
		}
		values := []any{
			event.SessionID,
			event.EventType,
			event.Severity,
			event.Confidence,
			event.Symptoms,
			event.State,
			event.Resolution,
			event.OpenedAt.Format(time.RFC3339),
			closedAt,
		}
		if err := writeDataRow(f, sheetName, row, values); err != nil {
			return err
		}
	}

	return nil
}

// writeAuditSheet 写入审计记录
func writeAuditSheet(f *excelize.File, audit []models.AuditRecord) error {
	sheetName := "Audit Trail"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeHeaderRow(f, sheetName, AuditExportHeader); err != nil {
		return err
	}

	for rowIdx, record := range audit {
		row := rowIdx + 2
		values := []any{
			record.Timestamp.Format(time.RFC3339),
			record.SessionID,
			record.FromState,
			record.ToState,
			record.Cause,
		}
		if err := writeDataRow(f, sheetName, row, values); err != nil {
			return err
		}
	}

	return nil
}

// writeHeaderRow 写入表头（带样式和列宽）
func writeHeaderRow(f *excelize.File, sheetName string, headers []string) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, colName, colName, 22); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	return nil
}

// writeDataRow 写入一行数据
func writeDataRow(f *excelize.File, sheetName string, row int, values []any) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

// headerStyle 表头样式（加粗 + 浅蓝底 + 居中）
func headerStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}
