package models

import (
	"time"

	"gorm.io/gorm"
)

// Field 字段模型：某部门的一个有类型的指标
type Field struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"size:64;not null;uniqueIndex:uk_dept_field"`
	DepartmentID uint           `json:"department_id" gorm:"not null;uniqueIndex:uk_dept_field"`
	FieldTypeID  uint           `json:"field_type_id" gorm:"not null;index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Department Department `json:"-" gorm:"foreignKey:DepartmentID"`
	FieldType  FieldType  `json:"field_type" gorm:"foreignKey:FieldTypeID"`
}

// TableName 设置表名
func (Field) TableName() string {
	return "fields"
}

// SeriesKey 字段在汇总结果里的标识。
// 不同部门可能有同名字段，因此加上部门名前缀消除歧义。
func (f *Field) SeriesKey() string {
	return f.Department.Name + ": " + f.Name
}

// FieldData 字段数据模型：某字段在某一天的一次观测值。
// 每个 (field_id, ds) 至多一条记录；按字段类型只填充一个值槽：
//   CURRENCY/TIME/INTEGER -> IValue（分 / 秒 / 原值）
//   DOUBLE  -> DValue
//   STRING  -> SValue
type FieldData struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	DS        string    `json:"ds" gorm:"size:10;not null;uniqueIndex:uk_field_ds,priority:2"` // 日期键，格式 2006-01-02，无时分秒
	FieldID   uint      `json:"field_id" gorm:"not null;uniqueIndex:uk_field_ds,priority:1"`
	IValue    *int64    `json:"ivalue,omitempty" gorm:"column:ivalue"`
	DValue    *float64  `json:"dvalue,omitempty" gorm:"column:dvalue"`
	SValue    *string   `json:"svalue,omitempty" gorm:"column:svalue;size:255"`
	CreatedAt time.Time `json:"created_at"`

	Field Field `json:"-" gorm:"foreignKey:FieldID"`
}

// TableName 设置表名
func (FieldData) TableName() string {
	return "field_data"
}
