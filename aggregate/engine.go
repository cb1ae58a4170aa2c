// Package aggregate 把字段的打点数据汇总成逐日时间序列（图表用）
// 和按部门分组的稀疏映射（导出用）。
//
// 无数据的日期用显式的哨兵点（Present=false）占位，从不省略，
// 图表渲染方必须能区分"当天没有提交"和"当天值为零"。
package aggregate

import (
	"time"

	"dlireport/datewindow"
	"dlireport/fieldvalue"
	"dlireport/models"
)

// RangeReader 字段数据的范围读取接口，store.FieldDataStore 是生产实现
type RangeReader interface {
	GetRange(fieldID uint, startDS, endDS string) ([]models.FieldData, error)
}

// Engine 汇总引擎。字段类型查找表在构造时注入，
// 不在包内缓存数据库内容。
type Engine struct {
	reader RangeReader
	types  map[uint]string // field_type_id -> 类型名
}

// NewEngine 创建汇总引擎
func NewEngine(reader RangeReader, fieldTypes map[uint]string) *Engine {
	return &Engine{reader: reader, types: fieldTypes}
}

// Point 序列中的一个点。Present 为 false 表示当天无数据（哨兵），
// 此时 Raw/Pretty 为零值，不参与统计。
type Point struct {
	DS      string      `json:"ds"`
	Present bool        `json:"present"`
	Raw     interface{} `json:"raw,omitempty"`
	Pretty  string      `json:"pretty,omitempty"`
}

// Series 一个字段的逐日序列
type Series struct {
	Key       string  `json:"key"`  // "<部门名>: <字段名>"
	FieldType string  `json:"field_type"`
	Points    []Point `json:"points"`
}

// Result 汇总结果。单个字段失败不阻塞其它字段：
// 失败的字段记入 Errors，成功的照常出现在 Series 里。
type Result struct {
	Series map[string]Series `json:"series"`
	Errors map[string]error  `json:"-"`
}

// Aggregate 对一组字段在闭区间 [start, end] 上做逐日汇总。
// 每个字段的序列长度恒等于区间天数，缺数据的日期是哨兵点。
// 字段须预加载 Department（SeriesKey 需要部门名消歧义）。
func (e *Engine) Aggregate(fields []models.Field, start, end time.Time) (*Result, error) {
	if _, _, err := datewindow.ResolveCustom(start, end); err != nil {
		return nil, err
	}

	axis := datewindow.Axis(start, end)
	startDS, endDS := datewindow.DS(start), datewindow.DS(end)

	result := &Result{
		Series: make(map[string]Series, len(fields)),
		Errors: make(map[string]error),
	}

	for i := range fields {
		field := &fields[i]
		key := field.SeriesKey()

		series, err := e.fieldSeries(field, axis, startDS, endDS)
		if err != nil {
			result.Errors[key] = err
			continue
		}
		result.Series[key] = Series{
			Key:       key,
			FieldType: e.types[field.FieldTypeID],
			Points:    series,
		}
	}
	return result, nil
}

// fieldSeries 取一个字段的区间数据并重索引到完整日期轴上
func (e *Engine) fieldSeries(field *models.Field, axis []string, startDS, endDS string) ([]Point, error) {
	ftype := e.types[field.FieldTypeID]
	if ftype == "" {
		return nil, &UnknownFieldTypeError{FieldName: field.Name, FieldTypeID: field.FieldTypeID}
	}

	rows, err := e.reader.GetRange(field.ID, startDS, endDS)
	if err != nil {
		return nil, err
	}

	byDS := make(map[string]*models.FieldData, len(rows))
	for i := range rows {
		byDS[rows[i].DS] = &rows[i]
	}

	points := make([]Point, 0, len(axis))
	for _, ds := range axis {
		row, ok := byDS[ds]
		if !ok {
			points = append(points, Point{DS: ds}) // 哨兵：当天无数据
			continue
		}
		dec, err := fieldvalue.DecodeData(row, ftype)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{
			DS:      ds,
			Present: true,
			Raw:     dec.Raw,
			Pretty:  dec.Pretty,
		})
	}
	return points, nil
}

// FieldExport 导出视图里一个字段的稀疏取值（只含有数据的日期）
type FieldExport struct {
	FieldName string
	FieldType string
	Values    map[string]fieldvalue.Decoded // ds -> 解码值
}

// DepartmentData 导出视图里一个部门的全部字段，部门按出现顺序排列
type DepartmentData struct {
	Department string
	Fields     []FieldExport
}

// AggregateForExport 按部门分组做稀疏汇总，供表格导出使用。
// 区间内没有任何数据的字段整个跳过（导出表里没有它的行）；
// 字段级错误同样按字段收集，不做整体失败。
func (e *Engine) AggregateForExport(fields []models.Field, start, end time.Time) ([]DepartmentData, map[string]error, error) {
	if _, _, err := datewindow.ResolveCustom(start, end); err != nil {
		return nil, nil, err
	}

	startDS, endDS := datewindow.DS(start), datewindow.DS(end)
	fieldErrs := make(map[string]error)

	var depts []DepartmentData
	deptIndex := make(map[string]int)

	for i := range fields {
		field := &fields[i]
		key := field.SeriesKey()

		ftype := e.types[field.FieldTypeID]
		if ftype == "" {
			fieldErrs[key] = &UnknownFieldTypeError{FieldName: field.Name, FieldTypeID: field.FieldTypeID}
			continue
		}

		rows, err := e.reader.GetRange(field.ID, startDS, endDS)
		if err != nil {
			fieldErrs[key] = err
			continue
		}
		if len(rows) == 0 {
			continue // 区间内无数据，导出时不出现
		}

		values := make(map[string]fieldvalue.Decoded, len(rows))
		for j := range rows {
			dec, err := fieldvalue.DecodeData(&rows[j], ftype)
			if err != nil {
				fieldErrs[key] = err
				values = nil
				break
			}
			values[rows[j].DS] = dec
		}
		if values == nil {
			continue
		}

		deptName := field.Department.Name
		idx, ok := deptIndex[deptName]
		if !ok {
			idx = len(depts)
			deptIndex[deptName] = idx
			depts = append(depts, DepartmentData{Department: deptName})
		}
		depts[idx].Fields = append(depts[idx].Fields, FieldExport{
			FieldName: field.Name,
			FieldType: ftype,
			Values:    values,
		})
	}
	return depts, fieldErrs, nil
}

// UnknownFieldTypeError 字段引用了查找表里不存在的类型
type UnknownFieldTypeError struct {
	FieldName   string
	FieldTypeID uint
}

func (e *UnknownFieldTypeError) Error() string {
	return "字段 " + e.FieldName + " 的类型无法解析"
}
