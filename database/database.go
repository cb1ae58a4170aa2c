package database

import (
	"fmt"
	"log"

	"dlireport/config"
	"dlireport/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 初始化数据库连接
func Init(cfg *config.Config) error {
	// 构建 MySQL DSN 连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
	)

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 连接池配置
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(10)  // 最大空闲连接数
	sqlDB.SetMaxOpenConns(100) // 最大打开连接数

	// 自动迁移数据库表
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.FieldType{},
		&models.Field{},
		&models.FieldData{},
		&models.Report{},
		&models.Tag{},
		&models.ChartType{},
		&models.ChartDateType{},
		&models.Chart{},
	); err != nil {
		return err
	}

	if err := seedLookupTables(DB); err != nil {
		return err
	}

	log.Println("数据库初始化成功")
	return nil
}

// seedLookupTables 初始化查找表（仅当表为空时写入）。
// 字段类型、图表类型、日期窗口类型都是只读枚举，
// 代码中按名称引用，调用方用 LoadLookupTables 一次性取出后注入各引擎。
func seedLookupTables(db *gorm.DB) error {
	var ftCount int64
	db.Model(&models.FieldType{}).Count(&ftCount)
	if ftCount == 0 {
		var fts []models.FieldType
		for _, name := range models.GetFieldTypes() {
			fts = append(fts, models.FieldType{Name: name})
		}
		if err := db.Create(&fts).Error; err != nil {
			return fmt.Errorf("初始化字段类型失败: %w", err)
		}
	}

	var ctCount int64
	db.Model(&models.ChartType{}).Count(&ctCount)
	if ctCount == 0 {
		var cts []models.ChartType
		for _, name := range models.GetChartTypes() {
			cts = append(cts, models.ChartType{Name: name})
		}
		if err := db.Create(&cts).Error; err != nil {
			return fmt.Errorf("初始化图表类型失败: %w", err)
		}
	}

	var cdtCount int64
	db.Model(&models.ChartDateType{}).Count(&cdtCount)
	if cdtCount == 0 {
		// 名称与 datewindow 包的策略名一致
		defaultDateTypes := []struct {
			Name   string
			Pretty string
		}{
			{"today", "Today"},
			{"from_week", "From Week"},
			{"rolling_week", "Rolling Week"},
			{"from_month", "From Month"},
			{"rolling_month", "Rolling Month"},
			{"from_year", "From Year"},
			{"rolling_year", "Rolling Year"},
		}
		var cdts []models.ChartDateType
		for _, item := range defaultDateTypes {
			cdts = append(cdts, models.ChartDateType{
				Name:        item.Name,
				PrettyValue: item.Pretty,
			})
		}
		if err := db.Create(&cdts).Error; err != nil {
			return fmt.Errorf("初始化日期窗口类型失败: %w", err)
		}
	}

	return nil
}

// LookupTables 字段类型查找表，加载一次后注入编解码与汇总引擎，
// 避免原实现里类级缓存在表结构变更后读到过期数据的问题
type LookupTables struct {
	FieldTypeByID   map[uint]string
	FieldTypeByName map[string]uint
}

// LoadLookupTables 从数据库加载字段类型查找表
func LoadLookupTables(db *gorm.DB) (*LookupTables, error) {
	var fts []models.FieldType
	if err := db.Find(&fts).Error; err != nil {
		return nil, fmt.Errorf("加载字段类型失败: %w", err)
	}

	lt := &LookupTables{
		FieldTypeByID:   make(map[uint]string, len(fts)),
		FieldTypeByName: make(map[string]uint, len(fts)),
	}
	for _, ft := range fts {
		lt.FieldTypeByID[ft.ID] = ft.Name
		lt.FieldTypeByName[ft.Name] = ft.ID
	}
	return lt, nil
}

// GetDB 获取数据库连接
func GetDB() *gorm.DB {
	return DB
}
