package common

import "strings"

// SortDir 表示列表排序方向。
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ParseSortDir 解析排序方向，无法识别的值回退为升序。
func ParseSortDir(value string) SortDir {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "desc", "descending":
		return SortDesc
	default:
		return SortAsc
	}
}

// Descending 判断是否为降序。
func (d SortDir) Descending() bool {
	return d == SortDesc
}
