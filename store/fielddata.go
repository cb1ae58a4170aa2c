// Package store 负责字段数据行的读写。
// 每个 (field_id, ds) 至多一条记录；更新采用"替换而非修改"：
// 旧行整行删除、新行整行插入，调用方拿到旧行句柄后可以据此
// 失效按旧值生成的派生产物（如已缓存的导出文件）。
package store

import (
	"errors"
	"fmt"

	"dlireport/fieldvalue"
	"dlireport/models"

	"gorm.io/gorm"
)

// FieldDataStore 字段数据存取，依赖注入的 *gorm.DB
type FieldDataStore struct {
	db *gorm.DB
}

// NewFieldDataStore 创建字段数据存取器
func NewFieldDataStore(db *gorm.DB) *FieldDataStore {
	return &FieldDataStore{db: db}
}

// UpsertValue 按字段类型编码 raw 并写入 (fieldID, ds)。
// 已有记录时旧行删除、新行插入，两步在同一事务内完成；
// 返回新行和被替换的旧行（无旧行时为 nil）。
// raw 为空（编码结果为 Absent）时只删除旧行，不插入新行。
func (s *FieldDataStore) UpsertValue(fieldID uint, ftype, ds, raw string) (*models.FieldData, *models.FieldData, error) {
	enc, err := fieldvalue.Encode(raw, ftype)
	if err != nil {
		return nil, nil, err
	}

	stale, err := s.GetValue(fieldID, ds)
	if err != nil {
		return nil, nil, err
	}

	var created *models.FieldData
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if stale != nil {
			if err := tx.Delete(&models.FieldData{}, stale.ID).Error; err != nil {
				return fmt.Errorf("删除旧数据行失败: %w", err)
			}
		}
		if enc.Absent {
			return nil
		}
		row := &models.FieldData{
			DS:      ds,
			FieldID: fieldID,
			IValue:  enc.IValue,
			DValue:  enc.DValue,
			SValue:  enc.SValue,
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("写入数据行失败: %w", err)
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, stale, nil
}

// GetValue 点查 (fieldID, ds)，无记录返回 nil
func (s *FieldDataStore) GetValue(fieldID uint, ds string) (*models.FieldData, error) {
	var row models.FieldData
	err := s.db.Where("field_id = ? AND ds = ?", fieldID, ds).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询数据行失败: %w", err)
	}
	return &row, nil
}

// GetRange 闭区间范围查询，按日期升序。
// ds 是 2006-01-02 格式的字符串，字典序即日期序。
func (s *FieldDataStore) GetRange(fieldID uint, startDS, endDS string) ([]models.FieldData, error) {
	var rows []models.FieldData
	err := s.db.
		Where("field_id = ? AND ds >= ? AND ds <= ?", fieldID, startDS, endDS).
		Order("ds ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("范围查询数据行失败: %w", err)
	}
	return rows, nil
}

// DeleteValue 删除 (fieldID, ds) 的数据行，无记录时为空操作，返回被删除的行
func (s *FieldDataStore) DeleteValue(fieldID uint, ds string) (*models.FieldData, error) {
	row, err := s.GetValue(fieldID, ds)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	if err := s.db.Delete(&models.FieldData{}, row.ID).Error; err != nil {
		return nil, fmt.Errorf("删除数据行失败: %w", err)
	}
	return row, nil
}
