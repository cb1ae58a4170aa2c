package models

import (
	"time"

	"gorm.io/gorm"
)

// Department 部门模型，字段（指标）的归属单位
type Department struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:64;not null;uniqueIndex"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Fields []Field `json:"fields,omitempty" gorm:"foreignKey:DepartmentID"`
}

// TableName 设置表名
func (Department) TableName() string {
	return "departments"
}
