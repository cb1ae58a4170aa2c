package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChartService(t *testing.T) (*ChartService, sqlmock.Sqlmock, func()) {
	db, mock, cleanup := setupMockDB(t)
	return NewChartService(db, testLookup()), mock, cleanup
}

func chartColumns() []string {
	return []string{"id", "name", "user_id", "chart_type_id", "chart_date_type_id", "with_table", "created_at", "updated_at", "deleted_at"}
}

// expectGetChart 模拟 Get 的查询序列：
// 图表主查询 + 类型/日期窗口预加载 + 字段预加载
func expectGetChart(mock sqlmock.Sqlmock, chartID uint, ownerID uint, dateTypeName string, fieldRows []testField) {
	mock.ExpectQuery("SELECT .* FROM `charts`").
		WillReturnRows(sqlmock.NewRows(chartColumns()).
			AddRow(chartID, "营收走势", ownerID, 1, 2, false, time.Now(), time.Now(), nil))
	mock.ExpectQuery("SELECT .* FROM `chart_date_types`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "pretty_value"}).
			AddRow(2, dateTypeName, "Rolling Week"))
	mock.ExpectQuery("SELECT .* FROM `chart_types`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "line"))

	joinRows := sqlmock.NewRows([]string{"chart_id", "field_id"})
	fields := sqlmock.NewRows(fieldColumns())
	for _, r := range fieldRows {
		joinRows.AddRow(chartID, r.id)
		fields.AddRow(r.id, r.name, r.deptID, r.typeID, time.Now(), time.Now(), nil)
	}
	mock.ExpectQuery("SELECT .* FROM `chart_fields`").WillReturnRows(joinRows)
	if len(fieldRows) > 0 {
		mock.ExpectQuery("SELECT .* FROM `fields`").WillReturnRows(fields)
		mock.ExpectQuery("SELECT .* FROM `departments`").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at", "deleted_at"}).
				AddRow(3, "销售部", time.Now(), time.Now(), nil))
		types := sqlmock.NewRows([]string{"id", "name"})
		lookup := testLookup()
		seen := map[int64]bool{}
		for _, r := range fieldRows {
			if !seen[r.typeID] {
				seen[r.typeID] = true
				types.AddRow(r.typeID, lookup.FieldTypeByID[uint(r.typeID)])
			}
		}
		mock.ExpectQuery("SELECT .* FROM `field_types`").WillReturnRows(types)
	}
}

func TestChartService_Get_NotFound(t *testing.T) {
	svc, mock, cleanup := newTestChartService(t)
	defer cleanup()

	mock.ExpectQuery("SELECT .* FROM `charts`").
		WillReturnRows(sqlmock.NewRows(chartColumns()))

	_, err := svc.Get(99)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChartService_Create_ValidationError(t *testing.T) {
	svc, mock, cleanup := newTestChartService(t)
	defer cleanup()

	// 缺少图表类型，校验失败时不应有任何数据库操作
	_, err := svc.Create(CreateChartInput{UserID: 1, Name: "营收走势", ChartDateTypeID: 2})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChartService_Data_RollingWeek(t *testing.T) {
	svc, mock, cleanup := newTestChartService(t)
	defer cleanup()

	expectGetChart(mock, 1, 1, "rolling_week", []testField{
		{id: 7, name: "营收", deptID: 3, typeID: 1},
	})
	// 8 天窗口里只有两天有数据
	mock.ExpectQuery("SELECT .* FROM `field_data`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ds", "field_id", "ivalue", "dvalue", "svalue", "created_at"}).
			AddRow(1, "2024-03-10", 7, int64(10000), nil, nil, time.Now()).
			AddRow(2, "2024-03-12", 7, int64(20000), nil, nil, time.Now()))

	ref := time.Date(2024, 3, 15, 14, 30, 0, 0, time.Local)
	data, err := svc.Data(1, ref)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-08", data.StartDS)
	assert.Equal(t, "2024-03-15", data.EndDS)
	assert.Len(t, data.Axis, 8)
	assert.Empty(t, data.Errors)

	series, ok := data.Series["销售部: 营收"]
	require.True(t, ok)
	require.Len(t, series.Points, 8)
	// 2024-03-09 无数据，是哨兵点
	assert.False(t, series.Points[1].Present)
	assert.True(t, series.Points[2].Present)
	assert.Equal(t, "$100.00", series.Points[2].Pretty)

	sum, ok := data.Summaries["销售部: 营收"]
	require.True(t, ok)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 150.0, sum.Mean, 0.001)
	assert.InDelta(t, 100.0, sum.Min, 0.001)
	assert.InDelta(t, 200.0, sum.Max, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChartService_Data_StringSeriesNoSummary(t *testing.T) {
	svc, mock, cleanup := newTestChartService(t)
	defer cleanup()

	expectGetChart(mock, 1, 1, "today", []testField{
		{id: 9, name: "今日要闻", deptID: 3, typeID: 4},
	})
	note := "系统升级完成"
	mock.ExpectQuery("SELECT .* FROM `field_data`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ds", "field_id", "ivalue", "dvalue", "svalue", "created_at"}).
			AddRow(1, "2024-03-15", 9, nil, nil, note, time.Now()))

	ref := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)
	data, err := svc.Data(1, ref)
	require.NoError(t, err)

	require.Len(t, data.Axis, 1)
	series := data.Series["销售部: 今日要闻"]
	require.Len(t, series.Points, 1)
	assert.Equal(t, note, series.Points[0].Pretty)
	// 文本序列没有描述统计
	assert.Empty(t, data.Summaries)
	require.NoError(t, mock.ExpectationsWereMet())
}
