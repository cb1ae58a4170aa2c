package main

import (
	"flag"
	"log"
	"time"

	"dlireport/config"
	"dlireport/database"
	"dlireport/datewindow"
	"dlireport/export"
	"dlireport/service"
)

var (
	configFile  string
	reportID    uint
	window      string
	startDS     string
	endDS       string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.UintVar(&reportID, "report", 0, "要导出的报表 id")
	flag.UintVar(&reportID, "r", 0, "要导出的报表 id（简写）")
	flag.StringVar(&window, "window", "rolling_week", "日期窗口策略，如: rolling_week、from_month")
	flag.StringVar(&window, "w", "rolling_week", "日期窗口策略（简写）")
	flag.StringVar(&startDS, "start", "", "自定义区间起始日期（2006-01-02，与 -end 搭配，覆盖 -window）")
	flag.StringVar(&endDS, "end", "", "自定义区间结束日期（2006-01-02）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Println("部门日报 v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	config.PrintConfig()

	// 初始化数据库（建表 + 种子查找表）
	if err := database.Init(cfg); err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}
	lookup, err := database.LoadLookupTables(database.GetDB())
	if err != nil {
		log.Fatalf("加载字段类型失败: %v", err)
	}

	if reportID == 0 {
		log.Println("未指定 -report，仅完成初始化")
		return
	}

	start, end, err := resolveWindow()
	if err != nil {
		log.Fatalf("解析日期区间失败: %v", err)
	}

	cache := export.NewCache(cfg.Export.Dir)
	svc := service.NewReportService(database.GetDB(), lookup, cache, cfg.Export.DocTitle)

	path, fieldErrs, err := svc.Download(reportID, start, end)
	if err != nil {
		log.Fatalf("导出失败: %v", err)
	}
	for key, ferr := range fieldErrs {
		log.Printf("字段 %s 汇总失败: %v", key, ferr)
	}
	log.Printf("导出完成: %s", path)
}

// resolveWindow 优先使用 -start/-end 自定义区间，否则按 -window 策略解析
func resolveWindow() (time.Time, time.Time, error) {
	if startDS != "" || endDS != "" {
		start, err := datewindow.ParseDS(startDS)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := datewindow.ParseDS(endDS)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return datewindow.ResolveCustom(start, end)
	}
	return datewindow.Resolve(datewindow.Policy(window), time.Now())
}
