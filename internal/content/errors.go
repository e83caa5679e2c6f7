package content

import (
	"errors"
	"fmt"
	"strings"

	"portfolio-content/internal/model"
)

// 目录缺失或为空时记录警告并视为空集合，这两个哨兵值只出现在日志中。
var (
	ErrDirMissing = errors.New("content directory missing")
	ErrDirEmpty   = errors.New("content directory empty")
)

// DocumentError 标明哪个集合的哪个文件加载失败；Err 通常为 *schema.ValidationError。
type DocumentError struct {
	Collection model.Collection
	File       string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Collection, e.File, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// DuplicateSlugError 在启用严格 slug 检查时，同一集合出现重复 slug 返回。
type DuplicateSlugError struct {
	Collection model.Collection
	Slug       string
	Files      []string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("load %s: duplicate slug %q in %s", e.Collection, e.Slug, strings.Join(e.Files, ", "))
}
