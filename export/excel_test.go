package export

import (
	"bytes"
	"fmt"
	"testing"

	"dlireport/aggregate"
	"dlireport/fieldvalue"
	"dlireport/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testDepts() []aggregate.DepartmentData {
	return []aggregate.DepartmentData{
		{
			Department: "Sales",
			Fields: []aggregate.FieldExport{
				{
					FieldName: "Adjusted Sales",
					FieldType: models.FieldTypeCurrency,
					// 仅第一天有数据，第二天应留空
					Values: map[string]fieldvalue.Decoded{
						"2024-03-10": {Raw: 1234.56, Pretty: "$1234.56"},
					},
				},
			},
		},
		{
			Department: "Customer Service",
			Fields: []aggregate.FieldExport{
				{
					FieldName: "CS Average Delay",
					FieldType: models.FieldTypeTime,
					Values: map[string]fieldvalue.Decoded{
						"2024-03-10": {Raw: int64(225), Pretty: "3:45"},
						"2024-03-11": {Raw: int64(300), Pretty: "5:00"},
					},
				},
			},
		},
	}
}

func TestWriteDocument(t *testing.T) {
	var buf bytes.Buffer
	dates := []string{"2024-03-10", "2024-03-11"}
	err := WriteDocument(&buf, "部门日报", "周报", "2024-03-10 ~ 2024-03-11", testDepts(), dates)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	raw := excelize.Options{RawCellValue: true}
	get := func(cell string) string {
		v, err := f.GetCellValue(sheetName, cell, raw)
		require.NoError(t, err)
		return v
	}

	// 标题区：文档标题、报表名、区间标签各占一行
	assert.Equal(t, "部门日报", get("A1"))
	assert.Equal(t, "周报", get("A2"))
	assert.Equal(t, "2024-03-10 ~ 2024-03-11", get("A3"))

	// 日期表头
	assert.Equal(t, "字段", get("A4"))
	assert.Equal(t, "2024-03-10", get("B4"))
	assert.Equal(t, "2024-03-11", get("C4"))

	// 第一个部门及其字段行
	assert.Equal(t, "Sales", get("A5"))
	assert.Equal(t, "Adjusted Sales", get("A6"))
	assert.Equal(t, "1234.56", get("B6"))
	// 第二天无数据：单元格留空
	assert.Equal(t, "", get("C6"))

	// 第二个部门紧随其后
	assert.Equal(t, "Customer Service", get("A7"))
	assert.Equal(t, "CS Average Delay", get("A8"))

	// 时长按 Excel 天分数写入
	secs, err := f.GetCellValue(sheetName, "B8", raw)
	require.NoError(t, err)
	assert.Contains(t, secs, "0.0026") // 225/86400

	// 前两列加宽
	width, err := f.GetColWidth(sheetName, "A")
	require.NoError(t, err)
	assert.Greater(t, width, 20.0)
}

func TestWriteDocument_ManyDates(t *testing.T) {
	// 日期轴超过 26 列时列名要正确进位（AA、AB……）
	var dates []string
	for d := 1; d <= 30; d++ {
		dates = append(dates, fmt.Sprintf("2024-03-%02d", d))
	}
	depts := []aggregate.DepartmentData{{
		Department: "Sales",
		Fields: []aggregate.FieldExport{{
			FieldName: "Count",
			FieldType: models.FieldTypeInteger,
			Values: map[string]fieldvalue.Decoded{
				"2024-03-30": {Raw: int64(7), Pretty: "7"},
			},
		}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, "部门日报", "月报", "2024-03", depts, dates))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	// 第 30 个日期在第 31 列 = AE
	v, err := f.GetCellValue(sheetName, "AE4")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-30", v)

	v, err = f.GetCellValue(sheetName, "AE6", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}

func TestSheetWriter_FinalizeIdempotent(t *testing.T) {
	var buf bytes.Buffer
	sw, err := NewSheetWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, sw.WriteTitle("部门日报", "r", "d"))

	require.NoError(t, sw.Finalize())
	written := buf.Len()
	assert.Greater(t, written, 0)

	// 第二次 Finalize 是空操作，不重复写
	require.NoError(t, sw.Finalize())
	assert.Equal(t, written, buf.Len())
}
