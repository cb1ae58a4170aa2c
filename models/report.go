package models

import (
	"time"

	"gorm.io/gorm"
)

// Report 报表模型：一组字段的命名集合，按日期区间查看和导出
type Report struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:64;not null;index"`
	UserID    uint           `json:"user_id" gorm:"not null;index"` // 所有者
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID"`
	// 关联关系通过显式连接表存取，报表不拥有字段本身
	Fields []Field `json:"fields,omitempty" gorm:"many2many:report_fields;"`
	Tags   []Tag   `json:"tags,omitempty" gorm:"many2many:report_tags;"`
	// 收藏该报表的用户；所有者被删除时所有权转移给第一个收藏者
	FavoriteUsers []User `json:"-" gorm:"many2many:user_favorite_reports;"`
}

// TableName 设置表名
func (Report) TableName() string {
	return "reports"
}

// Tag 标签模型，用于报表搜索
type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:64;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 设置表名
func (Tag) TableName() string {
	return "tags"
}
