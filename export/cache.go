package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Cache 导出文件缓存，按 (报表名, 日期区间) 键控。
// 同一键的文件只生成一次，之后复用；底层数据变更后由调用方
// 显式 Invalidate 失效。
type Cache struct {
	dir string
}

// NewCache 创建导出缓存
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// sanitizeName 过滤报表名里不能进文件名的字符
func sanitizeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(name)
}

// Filename 缓存文件名：{报表名}-{开始}-to-{结束}.xlsx
func (c *Cache) Filename(reportName, startDS, endDS string) string {
	return fmt.Sprintf("%s-%s-to-%s.xlsx", sanitizeName(reportName), startDS, endDS)
}

// Path 缓存文件的完整路径
func (c *Cache) Path(reportName, startDS, endDS string) string {
	return filepath.Join(c.dir, c.Filename(reportName, startDS, endDS))
}

// Exists 缓存文件是否已存在
func (c *Cache) Exists(reportName, startDS, endDS string) bool {
	_, err := os.Stat(c.Path(reportName, startDS, endDS))
	return err == nil
}

// Invalidate 删除缓存文件。文件不存在时为空操作（幂等）。
func (c *Cache) Invalidate(reportName, startDS, endDS string) error {
	err := os.Remove(c.Path(reportName, startDS, endDS))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return wrapIO(c.Path(reportName, startDS, endDS), err)
	}
	return nil
}

// InvalidateCovering 删除该报表所有日期区间覆盖 ds 的缓存文件。
// 提交或修改某天的数据后调用，保证下次下载重新生成。
func (c *Cache) InvalidateCovering(reportName, ds string) error {
	prefix := sanitizeName(reportName) + "-"
	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return wrapIO(c.dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".xlsx") {
			continue
		}
		// 文件名尾部固定为 -{start}-to-{end}.xlsx，start/end 各 10 字符
		base := strings.TrimSuffix(name, ".xlsx")
		if len(base) < len(prefix)+24 {
			continue
		}
		startDS := base[len(base)-24 : len(base)-14]
		endDS := base[len(base)-10:]
		if base[len(base)-14:len(base)-10] != "-to-" {
			continue
		}
		if startDS <= ds && ds <= endDS {
			if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return wrapIO(filepath.Join(c.dir, name), err)
			}
		}
	}
	return nil
}

// Export 生成或复用缓存文件，返回文件路径。
// 文件以独占创建方式打开：已存在则直接复用，不重复生成；
// build 失败时删除写了一半的文件，避免把损坏的文件当缓存。
func (c *Cache) Export(reportName, startDS, endDS string, build func(w io.Writer) error) (string, error) {
	path := c.Path(reportName, startDS, endDS)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", wrapIO(path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return path, nil // 已有缓存，直接复用
	}
	if err != nil {
		return "", wrapIO(path, err)
	}

	if err := build(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", wrapIO(path, err)
	}
	return path, nil
}
