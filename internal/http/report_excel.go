package httpapi

import (
	"bytes"
	"fmt"

	"jobcenter/internal/service"

	"github.com/xuri/excelize/v2"
)

// MachineReportHeader 班次报表表头
var MachineReportHeader = []string{
	"Operation ID",
	"Item",
	"Lot",
	"Status",
	"Sequence",
	"Planned Qty",
	"Actual Qty",
	"Progress %",
	"Start Time",
	"End Time",
}

// GenerateMachineReport 生成机台班次报表 Excel 文件
func GenerateMachineReport(machineID string, items []service.MachineOperation) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Machine " + machineID
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range MachineReportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	const timeLayout = "2006-01-02 15:04"
	for rowIdx, item := range items {
		row := rowIdx + 2
		values := []any{
			item.OperationID,
			item.ItemID,
			item.LotID,
			item.StatusName,
			item.Sequence,
			item.PlannedQty,
			item.ActualQty,
			fmt.Sprintf("%.1f", item.ProgressPercent),
			"",
			"",
		}
		if item.StartTime != nil {
			values[8] = item.StartTime.Format(timeLayout)
		}
		if item.EndTime != nil {
			values[9] = item.EndTime.Format(timeLayout)
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}
