// Package export 把按部门分组的汇总数据渲染成 xlsx 表格，
// 并维护按 (报表, 日期区间) 键控的导出文件缓存。
package export

import (
	"fmt"
	"io"

	"dlireport/aggregate"
	"dlireport/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "报表数据"

// SheetWriter 只追加的表格写入器，内部维护当前行游标。
// 写入完成后必须调用一次 Finalize 刷新并关闭文档；
// 重复调用 Finalize 是空操作，调用方可以在清理路径里放心再调一次。
type SheetWriter struct {
	f         *excelize.File
	w         io.Writer
	row       int // 下一个可写行（1 起）
	finalized bool

	titleStyle    int
	headerStyle   int
	deptStyle     int
	currencyStyle int
	doubleStyle   int
	timeStyle     int
}

// NewSheetWriter 创建表格写入器，输出目标在构造时确定
func NewSheetWriter(w io.Writer) (*SheetWriter, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	sw := &SheetWriter{f: f, w: w, row: 1}

	var err error
	// 标题样式
	sw.titleStyle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, wrapIO("", err)
	}
	// 表头样式
	sw.headerStyle, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, wrapIO("", err)
	}
	// 部门标题样式
	sw.deptStyle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return nil, wrapIO("", err)
	}
	// 按字段类型的单元格数字格式
	sw.currencyStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("$#,##0.00")})
	if err != nil {
		return nil, wrapIO("", err)
	}
	sw.doubleStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("0.000")})
	if err != nil {
		return nil, wrapIO("", err)
	}
	sw.timeStyle, err = f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("h:mm")})
	if err != nil {
		return nil, wrapIO("", err)
	}

	// 加宽前两列便于阅读
	_ = f.SetColWidth(sheetName, "A", "A", 28)
	_ = f.SetColWidth(sheetName, "B", "B", 16)

	return sw, nil
}

func strPtr(s string) *string { return &s }

// setCell 写一个单元格，列号 1 起
func (sw *SheetWriter) setCell(col int, value interface{}, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, sw.row)
	if err != nil {
		return wrapIO("", err)
	}
	if err := sw.f.SetCellValue(sheetName, cell, value); err != nil {
		return wrapIO("", err)
	}
	if style != 0 {
		if err := sw.f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return wrapIO("", err)
		}
	}
	return nil
}

// WriteTitle 依次写文档标题、报表名、日期区间标签，各占一行
func (sw *SheetWriter) WriteTitle(docTitle, reportName, rangeLabel string) error {
	for _, line := range []string{docTitle, reportName, rangeLabel} {
		if err := sw.setCell(1, line, sw.titleStyle); err != nil {
			return err
		}
		sw.row++
	}
	return nil
}

// WriteDateHeader 写日期表头行：首列为字段名列，其后每列一个日期
func (sw *SheetWriter) WriteDateHeader(dates []string) error {
	if err := sw.setCell(1, "字段", sw.headerStyle); err != nil {
		return err
	}
	for i, ds := range dates {
		if err := sw.setCell(i+2, ds, sw.headerStyle); err != nil {
			return err
		}
	}
	sw.row++
	return nil
}

// WriteDepartment 写部门标题行
func (sw *SheetWriter) WriteDepartment(name string) error {
	if err := sw.setCell(1, name, sw.deptStyle); err != nil {
		return err
	}
	sw.row++
	return nil
}

// WriteFieldRow 写一个字段的数据行：首列字段名，其后按日期轴取值。
// 某日期无数据时该单元格留空，而不是写哨兵值。
func (sw *SheetWriter) WriteFieldRow(field aggregate.FieldExport, dates []string) error {
	if err := sw.setCell(1, field.FieldName, 0); err != nil {
		return err
	}
	for i, ds := range dates {
		dec, ok := field.Values[ds]
		if !ok {
			continue // 留空
		}
		col := i + 2
		switch field.FieldType {
		case models.FieldTypeCurrency:
			if err := sw.setCell(col, dec.Raw, sw.currencyStyle); err != nil {
				return err
			}
		case models.FieldTypeDouble:
			if err := sw.setCell(col, dec.Raw, sw.doubleStyle); err != nil {
				return err
			}
		case models.FieldTypeTime:
			// 秒数换算成 Excel 的天分数，配合 h:mm 格式显示
			secs, _ := dec.Raw.(int64)
			if err := sw.setCell(col, float64(secs)/86400, sw.timeStyle); err != nil {
				return err
			}
		default:
			// INTEGER / STRING 不需要数字格式
			if err := sw.setCell(col, dec.Raw, 0); err != nil {
				return err
			}
		}
	}
	sw.row++
	return nil
}

// Finalize 把文档刷新到输出并关闭。幂等：第二次调用是空操作。
func (sw *SheetWriter) Finalize() error {
	if sw.finalized {
		return nil
	}
	sw.finalized = true

	if err := sw.f.Write(sw.w); err != nil {
		_ = sw.f.Close()
		return wrapIO("", err)
	}
	if err := sw.f.Close(); err != nil {
		return wrapIO("", err)
	}
	return nil
}

// WriteDocument 按固定顺序写完整文档：
// 文档标题、报表名、日期区间标签、日期表头，然后逐部门写部门标题行
// 和该部门每个字段的数据行，最后 Finalize。
func WriteDocument(w io.Writer, docTitle, reportName, rangeLabel string, depts []aggregate.DepartmentData, dates []string) error {
	sw, err := NewSheetWriter(w)
	if err != nil {
		return err
	}
	// 出错路径上的兜底关闭
	defer func() { _ = sw.Finalize() }()

	if err := sw.WriteTitle(docTitle, reportName, rangeLabel); err != nil {
		return err
	}
	if err := sw.WriteDateHeader(dates); err != nil {
		return err
	}
	for _, dept := range depts {
		if err := sw.WriteDepartment(dept.Department); err != nil {
			return err
		}
		for _, field := range dept.Fields {
			if err := sw.WriteFieldRow(field, dates); err != nil {
				return err
			}
		}
	}
	return sw.Finalize()
}

func wrapIO(path string, err error) error {
	return &ExportIOError{Path: path, Err: err}
}

// ExportIOError 导出过程中的文件/文档库错误。
// 不自动重试；调用方不应把失败的导出标记为已缓存。
type ExportIOError struct {
	Path string
	Err  error
}

func (e *ExportIOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("导出失败 (%s): %v", e.Path, e.Err)
	}
	return fmt.Sprintf("导出失败: %v", e.Err)
}

func (e *ExportIOError) Unwrap() error {
	return e.Err
}
