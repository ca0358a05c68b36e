package httpapi

import (
	"bytes"
	"testing"
	"time"

	"jobcenter/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateMachineReport(t *testing.T) {
	start := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	items := []service.MachineOperation{
		{
			OperationID:     2,
			ItemID:          "ITEM-2",
			LotID:           "LOT-2",
			StatusName:      "InProcess",
			Sequence:        1,
			PlannedQty:      100,
			ActualQty:       40,
			ProgressPercent: 40,
			StartTime:       &start,
		},
		{
			OperationID: 5,
			ItemID:      "ITEM-5",
			LotID:       "LOT-5",
			StatusName:  "New",
			PlannedQty:  50,
		},
	}

	data, err := GenerateMachineReport("CNC-07", items)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheet := "Machine CNC-07"
	assert.Contains(t, f.GetSheetList(), sheet)

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, MachineReportHeader, rows[0][:len(MachineReportHeader)])
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "InProcess", rows[1][3])
	assert.Equal(t, "40.0", rows[1][7])
	assert.Equal(t, "2025-03-14 08:00", rows[1][8])
	assert.Equal(t, "5", rows[2][0])
	assert.Equal(t, "New", rows[2][3])
}

func TestGenerateMachineReport_EmptyMachine(t *testing.T) {
	data, err := GenerateMachineReport("CNC-09", nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Machine CNC-09")
	require.NoError(t, err)
	require.Len(t, rows, 1) // 只有表头
}
