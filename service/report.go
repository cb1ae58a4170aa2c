package service

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dlireport/aggregate"
	"dlireport/database"
	"dlireport/datewindow"
	"dlireport/export"
	"dlireport/fieldvalue"
	"dlireport/models"
	"dlireport/store"

	"gorm.io/gorm"
)

// ReportService 报表服务
type ReportService struct {
	db       *gorm.DB
	store    *store.FieldDataStore
	engine   *aggregate.Engine
	cache    *export.Cache
	docTitle string
}

// NewReportService 创建报表服务。
// 字段类型查找表显式注入汇总引擎，不依赖全局缓存。
func NewReportService(db *gorm.DB, lookup *database.LookupTables, cache *export.Cache, docTitle string) *ReportService {
	fds := store.NewFieldDataStore(db)
	return &ReportService{
		db:       db,
		store:    fds,
		engine:   aggregate.NewEngine(fds, lookup.FieldTypeByID),
		cache:    cache,
		docTitle: docTitle,
	}
}

// CreateReportInput 创建报表请求
type CreateReportInput struct {
	UserID   uint     `validate:"required"`
	Name     string   `validate:"required,max=64"`
	FieldIDs []uint   `validate:"dive,required"`
	Tags     []string `validate:"dive,max=64"`
}

// Create 创建报表，标签不存在时顺带创建
func (s *ReportService) Create(input CreateReportInput) (*models.Report, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}

	fields, err := s.loadFields(input.FieldIDs)
	if err != nil {
		return nil, err
	}
	tags, err := s.findOrCreateTags(input.Tags)
	if err != nil {
		return nil, err
	}

	report := models.Report{
		Name:   input.Name,
		UserID: input.UserID,
		Fields: fields,
		Tags:   tags,
	}
	if err := s.db.Create(&report).Error; err != nil {
		return nil, fmt.Errorf("创建报表失败: %w", err)
	}
	return &report, nil
}

// EditReportInput 编辑报表请求，字段/标签集合整体替换
type EditReportInput struct {
	Name     string   `validate:"required,max=64"`
	FieldIDs []uint   `validate:"dive,required"`
	Tags     []string `validate:"dive,max=64"`
}

// Edit 编辑报表。只有所有者或管理员可以编辑。
func (s *ReportService) Edit(userID, reportID uint, input EditReportInput) (*models.Report, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}

	report, err := s.Get(reportID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(userID, report.UserID); err != nil {
		return nil, err
	}

	fields, err := s.loadFields(input.FieldIDs)
	if err != nil {
		return nil, err
	}
	tags, err := s.findOrCreateTags(input.Tags)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(report).Update("name", input.Name).Error; err != nil {
		return nil, fmt.Errorf("更新报表失败: %w", err)
	}
	// 关联集合整体替换，不做增量合并
	if err := s.db.Model(report).Association("Fields").Replace(fields); err != nil {
		return nil, fmt.Errorf("更新报表字段失败: %w", err)
	}
	if err := s.db.Model(report).Association("Tags").Replace(tags); err != nil {
		return nil, fmt.Errorf("更新报表标签失败: %w", err)
	}
	return s.Get(reportID)
}

// Delete 删除报表。
// 如果还有其他用户收藏该报表，不删除而是把所有权转给第一个收藏者，
// 返回新所有者；真正删除时返回 nil。
func (s *ReportService) Delete(userID, reportID uint) (*models.User, error) {
	report, err := s.Get(reportID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(userID, report.UserID); err != nil {
		return nil, err
	}

	// 先把删除者自己从收藏列表里去掉
	if err := s.db.Model(report).Association("FavoriteUsers").Delete(&models.User{ID: userID}); err != nil {
		return nil, fmt.Errorf("更新收藏关系失败: %w", err)
	}

	var favs []models.User
	if err := s.db.Model(report).Association("FavoriteUsers").Find(&favs); err != nil {
		return nil, fmt.Errorf("查询收藏用户失败: %w", err)
	}
	if len(favs) > 0 {
		newOwner := favs[0]
		if err := s.db.Model(report).Update("user_id", newOwner.ID).Error; err != nil {
			return nil, fmt.Errorf("转移报表所有权失败: %w", err)
		}
		return &newOwner, nil
	}

	// 清掉关联行后删除报表本身
	if err := s.db.Model(report).Association("Fields").Clear(); err != nil {
		return nil, fmt.Errorf("清理报表字段关联失败: %w", err)
	}
	if err := s.db.Model(report).Association("Tags").Clear(); err != nil {
		return nil, fmt.Errorf("清理报表标签关联失败: %w", err)
	}
	if err := s.db.Delete(report).Error; err != nil {
		return nil, fmt.Errorf("删除报表失败: %w", err)
	}
	return nil, nil
}

// Favorite 收藏报表
func (s *ReportService) Favorite(userID, reportID uint) error {
	report, err := s.Get(reportID)
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
	if err := s.db.Model(report).Association("FavoriteUsers").Append(&user); err != nil {
		return fmt.Errorf("收藏报表失败: %w", err)
	}
	return nil
}

// Unfavorite 取消收藏报表（未收藏时为空操作）
func (s *ReportService) Unfavorite(userID, reportID uint) error {
	report, err := s.Get(reportID)
	if err != nil {
		return err
	}
	if err := s.db.Model(report).Association("FavoriteUsers").Delete(&models.User{ID: userID}); err != nil {
		return fmt.Errorf("取消收藏失败: %w", err)
	}
	return nil
}

// Get 按 id 取报表，预加载字段（含部门、类型）和标签
func (s *ReportService) Get(reportID uint) (*models.Report, error) {
	var report models.Report
	err := s.db.
		Preload("Fields.Department").
		Preload("Fields.FieldType").
		Preload("Tags").
		First(&report, reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询报表失败: %w", err)
	}
	return &report, nil
}

// ListMine 分页列出用户自己的报表
func (s *ReportService) ListMine(userID uint, page, pageSize int) ([]models.Report, int64, error) {
	return s.list(s.db.Where("user_id = ?", userID), page, pageSize)
}

// ListAll 分页列出全部报表
func (s *ReportService) ListAll(page, pageSize int) ([]models.Report, int64, error) {
	return s.list(s.db, page, pageSize)
}

func (s *ReportService) list(q *gorm.DB, page, pageSize int) ([]models.Report, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	if err := q.Model(&models.Report{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计报表数量失败: %w", err)
	}
	var reports []models.Report
	err := q.Model(&models.Report{}).
		Preload("Tags").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&reports).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询报表列表失败: %w", err)
	}
	return reports, total, nil
}

// Search 按关键字搜索报表：匹配报表名、标签名、字段名或部门名
func (s *ReportService) Search(keyword string) ([]models.Report, error) {
	kw := "%" + strings.TrimSpace(keyword) + "%"

	byTag := s.db.Table("report_tags").
		Select("report_tags.report_id").
		Joins("JOIN tags ON tags.id = report_tags.tag_id").
		Where("tags.name LIKE ?", kw)
	byField := s.db.Table("report_fields").
		Select("report_fields.report_id").
		Joins("JOIN fields ON fields.id = report_fields.field_id").
		Joins("JOIN departments ON departments.id = fields.department_id").
		Where("fields.name LIKE ? OR departments.name LIKE ?", kw, kw)

	var reports []models.Report
	err := s.db.
		Where("name LIKE ? OR id IN (?) OR id IN (?)", kw, byTag, byField).
		Preload("Tags").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("搜索报表失败: %w", err)
	}
	return reports, nil
}

// SubmitResult 数据提交结果
type SubmitResult struct {
	Saved       int               // 写入的数据行数
	Deleted     int               // 因空输入被删除的数据行数
	FieldErrors map[string]string // 字段名 -> 校验错误，单个字段出错不影响其它字段
}

// SubmitData 提交报表数据：对报表里属于指定部门的字段逐个写入。
// values 的键是字段 id，值是用户原始输入；输入为空表示清除当天数据。
// 有数据变更的字段会触发相关报表导出缓存的失效。
func (s *ReportService) SubmitData(reportID, deptID uint, ds string, values map[uint]string) (*SubmitResult, error) {
	day, err := datewindow.ParseDS(ds)
	if err != nil {
		return nil, err
	}
	if day.After(time.Now()) {
		return nil, fmt.Errorf("日期不能晚于今天: %s", ds)
	}

	report, err := s.Get(reportID)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{FieldErrors: make(map[string]string)}
	var changedFieldIDs []uint

	for i := range report.Fields {
		field := &report.Fields[i]
		if field.DepartmentID != deptID {
			continue
		}
		raw, ok := values[field.ID]
		if !ok {
			continue
		}

		created, stale, err := s.store.UpsertValue(field.ID, field.FieldType.Name, ds, raw)
		if err != nil {
			var verr *fieldvalue.ValidationError
			if errors.As(err, &verr) {
				// 字段级校验错误就地收集，不中断整体提交
				result.FieldErrors[field.Name] = verr.Message
				continue
			}
			return nil, err
		}
		if created != nil {
			result.Saved++
		}
		if created == nil && stale != nil {
			result.Deleted++
		}
		if created != nil || stale != nil {
			changedFieldIDs = append(changedFieldIDs, field.ID)
		}
	}

	// 数据变了，按旧数据生成的导出文件必须失效
	if err := s.invalidateExports(changedFieldIDs, ds); err != nil {
		return nil, err
	}
	return result, nil
}

// invalidateExports 失效所有引用了这些字段、且缓存区间覆盖 ds 的报表导出文件
func (s *ReportService) invalidateExports(fieldIDs []uint, ds string) error {
	if len(fieldIDs) == 0 {
		return nil
	}

	var names []string
	err := s.db.Model(&models.Report{}).
		Distinct("reports.name").
		Joins("JOIN report_fields ON report_fields.report_id = reports.id").
		Where("report_fields.field_id IN ?", fieldIDs).
		Pluck("reports.name", &names).Error
	if err != nil {
		return fmt.Errorf("查询受影响报表失败: %w", err)
	}

	for _, name := range names {
		if err := s.cache.InvalidateCovering(name, ds); err != nil {
			return err
		}
	}
	return nil
}

// Download 导出报表为 xlsx，返回文件路径。
// 同一 (报表, 区间) 已有缓存时直接复用。
// 字段级错误不阻塞导出，随路径一并返回。
func (s *ReportService) Download(reportID uint, start, end time.Time) (string, map[string]error, error) {
	start, end, err := datewindow.ResolveCustom(start, end)
	if err != nil {
		return "", nil, err
	}

	report, err := s.Get(reportID)
	if err != nil {
		return "", nil, err
	}

	depts, fieldErrs, err := s.engine.AggregateForExport(report.Fields, start, end)
	if err != nil {
		return "", nil, err
	}

	startDS, endDS := datewindow.DS(start), datewindow.DS(end)
	var dates []string
	for _, d := range datewindow.Sample(start, end) {
		dates = append(dates, datewindow.DS(d))
	}
	label := startDS + " ~ " + endDS

	path, err := s.cache.Export(report.Name, startDS, endDS, func(w io.Writer) error {
		return export.WriteDocument(w, s.docTitle, report.Name, label, depts, dates)
	})
	if err != nil {
		return "", fieldErrs, err
	}
	return path, fieldErrs, nil
}

// ExportExists 指定区间的导出缓存是否存在
func (s *ReportService) ExportExists(reportID uint, start, end time.Time) (bool, error) {
	report, err := s.Get(reportID)
	if err != nil {
		return false, err
	}
	return s.cache.Exists(report.Name, datewindow.DS(start), datewindow.DS(end)), nil
}

// ExportInvalidate 删除指定区间的导出缓存（幂等）
func (s *ReportService) ExportInvalidate(reportID uint, start, end time.Time) error {
	report, err := s.Get(reportID)
	if err != nil {
		return err
	}
	return s.cache.Invalidate(report.Name, datewindow.DS(start), datewindow.DS(end))
}

// loadFields 按 id 加载字段，任一 id 不存在返回 ErrNotFound
func (s *ReportService) loadFields(fieldIDs []uint) ([]models.Field, error) {
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

// findOrCreateTags 按名称取标签，不存在则创建；空白名称忽略
func (s *ReportService) findOrCreateTags(names []string) ([]models.Tag, error) {
	var tags []models.Tag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tag models.Tag
		if err := s.db.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return nil, fmt.Errorf("创建标签失败: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// checkOwnership 所有者或管理员放行
func (s *ReportService) checkOwnership(userID, ownerID uint) error {
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

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	var out []uint
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
