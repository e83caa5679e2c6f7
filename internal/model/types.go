// 包 model 定义内容记录（作品/实验日志/随笔）、检索索引条目与导出结构。
// 结构体上的 validate 标签即各集合的声明式 schema，由 internal/schema 统一解释。
package model

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Kind 为单条记录的类型，用于索引与路由。
type Kind string

const (
	KindProject Kind = "project"
	KindLog     Kind = "log"
	KindEssay   Kind = "essay"
)

// Collection 为集合名，同时是内容根目录下的子目录名。
type Collection string

const (
	Projects Collection = "projects"
	Logs     Collection = "logs"
	Essays   Collection = "essays"
)

// Collections 按固定顺序列出全部集合。
var Collections = []Collection{Projects, Logs, Essays}

// Kind 返回集合对应的记录类型。
func (c Collection) Kind() Kind {
	switch c {
	case Projects:
		return KindProject
	case Logs:
		return KindLog
	case Essays:
		return KindEssay
	}
	return ""
}

// Body 为由正文派生的字段，所有内容类型共享。
type Body struct {
	Content     string `json:"content"`
	Excerpt     string `json:"excerpt"`
	ReadingTime int    `json:"readingTime"`
	File        string `json:"-"`
}

// Derived 返回可写的派生字段，供加载器填充。
func (b *Body) Derived() *Body { return b }

// Entry 由 *Project、*Log、*Essay 实现。
type Entry interface {
	Kind() Kind
	Key() string
	Label() string
	// Blurb 为摘要性文字（summary/synopsis），日志为空。
	Blurb() string
	// Terms 为检索关键词：作品取 stack，日志取 tags，随笔取 keywords。
	Terms() []string
	SortDate() time.Time
	IsPublished() bool
	IsFeatured() bool
	// ReadingTimeOverride 返回 front matter 显式给出的阅读时长，未给出为 0。
	ReadingTimeOverride() int
	// DefaultSlug 在 front matter 未给出 slug 时使用文件名。
	DefaultSlug(stem string)
	// Normalize 在校验通过后把日期字符串转换为可比较的时间。
	Normalize() error
	Derived() *Body
}

// IndexEntry 为跨集合检索/站点地图使用的摘要记录。
type IndexEntry struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Type     Kind      `json:"type"`
	Excerpt  string    `json:"excerpt"`
	Keywords []string  `json:"keywords"`
	URL      string    `json:"url"`
	Date     time.Time `json:"date"`
}

// Stats 为导出时的集合统计。
type Stats struct {
	Projects    int       `json:"projects"`
	Logs        int       `json:"logs"`
	Essays      int       `json:"essays"`
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Export 为 index.json 的顶层结构。
type Export struct {
	BuildID string       `json:"build_id"`
	Stats   Stats        `json:"stats"`
	Entries []IndexEntry `json:"entries"`
}

// Metric 为作品的量化成果。
type Metric struct {
	Label       string `yaml:"label" json:"label" validate:"required"`
	Value       string `yaml:"value" json:"value" validate:"required"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Link 为作品的外部链接，external 缺省为 true。
type Link struct {
	Label    string `yaml:"label" json:"label" validate:"required"`
	Href     string `yaml:"href" json:"href" validate:"required,absurl"`
	External bool   `yaml:"external" json:"external"`
}

func (l *Link) UnmarshalYAML(n *yaml.Node) error {
	type plain Link
	p := plain{External: true}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*l = Link(p)
	return nil
}
