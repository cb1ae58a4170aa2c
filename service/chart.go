package service

import (
	"errors"
	"fmt"
	"time"

	"dlireport/aggregate"
	"dlireport/database"
	"dlireport/datewindow"
	"dlireport/models"
	"dlireport/store"

	"gorm.io/gorm"
)

// ChartService 图表服务
type ChartService struct {
	db     *gorm.DB
	engine *aggregate.Engine
}

// NewChartService 创建图表服务
func NewChartService(db *gorm.DB, lookup *database.LookupTables) *ChartService {
	return &ChartService{
		db:     db,
		engine: aggregate.NewEngine(store.NewFieldDataStore(db), lookup.FieldTypeByID),
	}
}

// CreateChartInput 创建图表请求
type CreateChartInput struct {
	UserID          uint   `validate:"required"`
	Name            string `validate:"required,max=64"`
	ChartTypeID     uint   `validate:"required"`
	ChartDateTypeID uint   `validate:"required"`
	WithTable       bool
	FieldIDs        []uint `validate:"dive,required"`
}

// Create 创建图表
func (s *ChartService) Create(input CreateChartInput) (*models.Chart, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}

	if err := s.checkLookups(input.ChartTypeID, input.ChartDateTypeID); err != nil {
		return nil, err
	}
	fields, err := s.loadFields(input.FieldIDs)
	if err != nil {
		return nil, err
	}

	chart := models.Chart{
		Name:            input.Name,
		UserID:          input.UserID,
		ChartTypeID:     input.ChartTypeID,
		ChartDateTypeID: input.ChartDateTypeID,
		WithTable:       input.WithTable,
		Fields:          fields,
	}
	if err := s.db.Create(&chart).Error; err != nil {
		return nil, fmt.Errorf("创建图表失败: %w", err)
	}
	return &chart, nil
}

// EditChartInput 编辑图表请求，字段集合整体替换
type EditChartInput struct {
	Name            string `validate:"required,max=64"`
	ChartTypeID     uint   `validate:"required"`
	ChartDateTypeID uint   `validate:"required"`
	WithTable       bool
	FieldIDs        []uint `validate:"dive,required"`
}

// Edit 编辑图表。只有所有者或管理员可以编辑。
func (s *ChartService) Edit(userID, chartID uint, input EditChartInput) (*models.Chart, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}

	chart, err := s.Get(chartID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(userID, chart.UserID); err != nil {
		return nil, err
	}

	if err := s.checkLookups(input.ChartTypeID, input.ChartDateTypeID); err != nil {
		return nil, err
	}
	fields, err := s.loadFields(input.FieldIDs)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":               input.Name,
		"chart_type_id":      input.ChartTypeID,
		"chart_date_type_id": input.ChartDateTypeID,
		"with_table":         input.WithTable,
	}
	if err := s.db.Model(chart).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("更新图表失败: %w", err)
	}
	if err := s.db.Model(chart).Association("Fields").Replace(fields); err != nil {
		return nil, fmt.Errorf("更新图表字段失败: %w", err)
	}
	return s.Get(chartID)
}

// Delete 删除图表。与报表的规则相同：
// 还有其他收藏者时转移所有权给第一个收藏者并返回新所有者。
func (s *ChartService) Delete(userID, chartID uint) (*models.User, error) {
	chart, err := s.Get(chartID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(userID, chart.UserID); err != nil {
		return nil, err
	}

	if err := s.db.Model(chart).Association("FavoriteUsers").Delete(&models.User{ID: userID}); err != nil {
		return nil, fmt.Errorf("更新收藏关系失败: %w", err)
	}

	var favs []models.User
	if err := s.db.Model(chart).Association("FavoriteUsers").Find(&favs); err != nil {
		return nil, fmt.Errorf("查询收藏用户失败: %w", err)
	}
	if len(favs) > 0 {
		newOwner := favs[0]
		if err := s.db.Model(chart).Update("user_id", newOwner.ID).Error; err != nil {
			return nil, fmt.Errorf("转移图表所有权失败: %w", err)
		}
		return &newOwner, nil
	}

	if err := s.db.Model(chart).Association("Fields").Clear(); err != nil {
		return nil, fmt.Errorf("清理图表字段关联失败: %w", err)
	}
	if err := s.db.Delete(chart).Error; err != nil {
		return nil, fmt.Errorf("删除图表失败: %w", err)
	}
	return nil, nil
}

// Favorite 收藏图表
func (s *ChartService) Favorite(userID, chartID uint) error {
	chart, err := s.Get(chartID)
	if err != nil {
		return err
	}
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("查询用户失败: %w", err)
	}
	if err := s.db.Model(chart).Association("FavoriteUsers").Append(&user); err != nil {
		return fmt.Errorf("收藏图表失败: %w", err)
	}
	return nil
}

// Unfavorite 取消收藏图表（未收藏时为空操作）
func (s *ChartService) Unfavorite(userID, chartID uint) error {
	chart, err := s.Get(chartID)
	if err != nil {
		return err
	}
	if err := s.db.Model(chart).Association("FavoriteUsers").Delete(&models.User{ID: userID}); err != nil {
		return fmt.Errorf("取消收藏失败: %w", err)
	}
	return nil
}

// Get 按 id 取图表，预加载类型、日期窗口和字段
func (s *ChartService) Get(chartID uint) (*models.Chart, error) {
	var chart models.Chart
	err := s.db.
		Preload("ChartType").
		Preload("ChartDateType").
		Preload("Fields.Department").
		Preload("Fields.FieldType").
		First(&chart, chartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询图表失败: %w", err)
	}
	return &chart, nil
}

// ListMine 分页列出用户自己的图表
func (s *ChartService) ListMine(userID uint, page, pageSize int) ([]models.Chart, int64, error) {
	return s.list(s.db.Where("user_id = ?", userID), page, pageSize)
}

// ListAll 分页列出全部图表
func (s *ChartService) ListAll(page, pageSize int) ([]models.Chart, int64, error) {
	return s.list(s.db, page, pageSize)
}

func (s *ChartService) list(q *gorm.DB, page, pageSize int) ([]models.Chart, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	if err := q.Model(&models.Chart{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计图表数量失败: %w", err)
	}
	var charts []models.Chart
	err := q.Model(&models.Chart{}).
		Preload("ChartType").
		Preload("ChartDateType").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&charts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询图表列表失败: %w", err)
	}
	return charts, total, nil
}

// ChartData 图表取数结果，交给渲染方绘制
type ChartData struct {
	Chart     *models.Chart                 `json:"chart"`
	StartDS   string                        `json:"start_ds"`
	EndDS     string                        `json:"end_ds"`
	Axis      []string                      `json:"axis"` // 抽样后的横轴日期
	Series    map[string]aggregate.Series   `json:"series"`
	Summaries map[string]*aggregate.Summary `json:"summaries"` // 数值序列的描述统计
	Errors    map[string]string             `json:"errors,omitempty"`
}

// Data 按图表的日期窗口策略取数。
// 序列是逐日稠密的（缺数据用哨兵点），横轴按跨度抽样；
// 单个字段失败只记入 Errors，不影响其它字段。
func (s *ChartService) Data(chartID uint, ref time.Time) (*ChartData, error) {
	chart, err := s.Get(chartID)
	if err != nil {
		return nil, err
	}

	policy := datewindow.Policy(chart.ChartDateType.Name)
	start, end, err := datewindow.Resolve(policy, ref)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Aggregate(chart.Fields, start, end)
	if err != nil {
		return nil, err
	}

	data := &ChartData{
		Chart:     chart,
		StartDS:   datewindow.DS(start),
		EndDS:     datewindow.DS(end),
		Series:    result.Series,
		Summaries: make(map[string]*aggregate.Summary),
		Errors:    make(map[string]string),
	}
	for _, d := range datewindow.Sample(start, end) {
		data.Axis = append(data.Axis, datewindow.DS(d))
	}
	for key, series := range result.Series {
		sum, err := aggregate.Summarize(series)
		if err != nil {
			data.Errors[key] = err.Error()
			continue
		}
		if sum != nil {
			data.Summaries[key] = sum
		}
	}
	for key, err := range result.Errors {
		data.Errors[key] = err.Error()
	}
	return data, nil
}

// checkLookups 校验图表类型和日期窗口类型存在
func (s *ChartService) checkLookups(chartTypeID, chartDateTypeID uint) error {
	var ct models.ChartType
	if err := s.db.First(&ct, chartTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("图表类型不存在: %w", ErrNotFound)
		}
		return fmt.Errorf("查询图表类型失败: %w", err)
	}
	var cdt models.ChartDateType
	if err := s.db.First(&cdt, chartDateTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("日期窗口类型不存在: %w", ErrNotFound)
		}
		return fmt.Errorf("查询日期窗口类型失败: %w", err)
	}
	return nil
}

// loadFields 按 id 加载字段，任一 id 不存在返回 ErrNotFound
func (s *ChartService) loadFields(fieldIDs []uint) ([]models.Field, error) {
	if len(fieldIDs) == 0 {
		return nil, nil
	}
	var fields []models.Field
	if err := s.db.Find(&fields, fieldIDs).Error; err != nil {
		return nil, fmt.Errorf("查询字段失败: %w", err)
	}
	if len(fields) != len(uniqueIDs(fieldIDs)) {
		return nil, fmt.Errorf("部分字段不存在: %w", ErrNotFound)
	}
	return fields, nil
}

// checkOwnership 所有者或管理员放行
func (s *ChartService) checkOwnership(userID, ownerID uint) error {
	if userID == ownerID {
		return nil
	}
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("查询用户失败: %w", err)
	}
	if !user.IsAdmin {
		return ErrPermissionDenied
	}
	return nil
}
