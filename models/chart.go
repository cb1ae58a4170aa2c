package models

import (
	"time"

	"gorm.io/gorm"
)

// ChartType 图表类型（查找表）
type ChartType struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:32;not null;uniqueIndex"`
}

// TableName 设置表名
func (ChartType) TableName() string {
	return "chart_types"
}

// 图表类型常量
const (
	ChartTypeLine = "line"
	ChartTypeBar  = "bar"
	ChartTypePie  = "pie"
)

// GetChartTypes 获取所有图表类型名称（用于初始化查找表）
func GetChartTypes() []string {
	return []string{ChartTypeLine, ChartTypeBar, ChartTypePie}
}

// ChartDateType 图表日期窗口类型（查找表），名称与 datewindow 包的策略一一对应
type ChartDateType struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:32;not null;uniqueIndex"` // 如 rolling_week
	PrettyValue string `json:"pretty_value" gorm:"size:32;not null"`     // 如 Rolling Week
}

// TableName 设置表名
func (ChartDateType) TableName() string {
	return "chart_date_types"
}

// Chart 图表模型：一组字段 + 图表类型 + 日期窗口策略
type Chart struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Name            string         `json:"name" gorm:"size:64;not null;index"`
	UserID          uint           `json:"user_id" gorm:"not null;index"` // 所有者
	ChartTypeID     uint           `json:"chart_type_id" gorm:"not null"`
	ChartDateTypeID uint           `json:"chart_date_type_id" gorm:"not null"`
	WithTable       bool           `json:"with_table" gorm:"default:false"` // 图表下方附数据表（仅表格展示时图类型无效）
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	User          User          `json:"-" gorm:"foreignKey:UserID"`
	ChartType     ChartType     `json:"chart_type" gorm:"foreignKey:ChartTypeID"`
	ChartDateType ChartDateType `json:"chart_date_type" gorm:"foreignKey:ChartDateTypeID"`
	Fields        []Field       `json:"fields,omitempty" gorm:"many2many:chart_fields;"`
	FavoriteUsers []User        `json:"-" gorm:"many2many:user_favorite_charts;"`
}

// TableName 设置表名
func (Chart) TableName() string {
	return "charts"
}
