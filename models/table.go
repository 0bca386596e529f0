package models

import "strings"

// prefix 表名前缀，与 IM 服务共库时保持一致
var prefix = "im_"

// SetTablePrefix 在第一次访问数据库之前调用（GORM 会缓存表名）
func SetTablePrefix(p string) {
	p = strings.TrimSpace(p)
	if p == "" {
		return
	}
	prefix = p
}

// TablePrefix 当前表名前缀
func TablePrefix() string {
	return prefix
}
