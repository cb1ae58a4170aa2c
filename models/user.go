package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 本核心不做登录认证，只保留归属关系需要的最小信息：
// 报表/图表的所有权、收藏关系、默认数据提交部门。
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"size:50;not null"`
	Email        string         `json:"email" gorm:"size:100;uniqueIndex"`
	DepartmentID uint           `json:"department_id" gorm:"index;not null"` // 默认提交数据的部门
	IsAdmin      bool           `json:"is_admin" gorm:"default:false;index"` // 管理员可编辑/删除任意报表
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	Department Department `json:"-" gorm:"foreignKey:DepartmentID"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}
