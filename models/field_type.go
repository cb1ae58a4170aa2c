package models

// FieldType 字段类型（查找表，初始化时写入，之后只读）
type FieldType struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:32;not null;uniqueIndex"`
}

// TableName 设置表名
func (FieldType) TableName() string {
	return "field_types"
}

// 字段类型常量
const (
	FieldTypeCurrency = "CURRENCY" // 货币：按最小单位（分）存整数
	FieldTypeDouble   = "DOUBLE"   // 浮点数：原样存储
	FieldTypeInteger  = "INTEGER"  // 整数：原样存储
	FieldTypeString   = "STRING"   // 文本：原样存储
	FieldTypeTime     = "TIME"     // 时长：按秒存整数
)

// GetFieldTypes 获取所有字段类型名称（用于初始化查找表）
func GetFieldTypes() []string {
	return []string{
		FieldTypeCurrency,
		FieldTypeDouble,
		FieldTypeInteger,
		FieldTypeString,
		FieldTypeTime,
	}
}
