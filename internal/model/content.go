package model

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// YearMonthLayout 为作品起止日期的格式（YYYY-MM）。
const YearMonthLayout = "2006-01"

// DateRange 为作品起止月份。
type DateRange struct {
	Start string `yaml:"start" json:"start" validate:"required,yearmonth"`
	End   string `yaml:"end" json:"end" validate:"required,yearmonth"`

	start time.Time
}

// StartTime 返回 Normalize 之后的起始月份。
func (d DateRange) StartTime() time.Time { return d.start }

// Project 为案例研究（content/projects）。
type Project struct {
	Slug      string    `yaml:"slug" json:"slug" validate:"required,slug,unreserved"`
	Title     string    `yaml:"title" json:"title" validate:"required,max=100"`
	Summary   string    `yaml:"summary" json:"summary" validate:"required,min=10,max=300"`
	Role      string    `yaml:"role" json:"role" validate:"required"`
	Stack     []string  `yaml:"stack" json:"stack" validate:"min=1"`
	Dates     DateRange `yaml:"dates" json:"dates"`
	Media     []string  `yaml:"media" json:"media,omitempty" validate:"omitempty,dive,absurl"`
	Metrics   []Metric  `yaml:"metrics" json:"metrics,omitempty" validate:"omitempty,dive"`
	Links     []Link    `yaml:"links" json:"links,omitempty" validate:"omitempty,dive"`
	Published bool      `yaml:"published" json:"published"`
	Featured  bool      `yaml:"featured" json:"featured"`

	Body `yaml:"-" validate:"-"`
}

// NewProject 返回带默认值（published=true）的空记录，供 front matter 覆盖。
func NewProject() *Project { return &Project{Published: true} }

func (p *Project) Kind() Kind               { return KindProject }
func (p *Project) Key() string              { return p.Slug }
func (p *Project) Label() string            { return p.Title }
func (p *Project) Blurb() string            { return p.Summary }
func (p *Project) Terms() []string          { return p.Stack }
func (p *Project) SortDate() time.Time      { return p.Dates.start }
func (p *Project) IsPublished() bool        { return p.Published }
func (p *Project) IsFeatured() bool         { return p.Featured }
func (p *Project) ReadingTimeOverride() int { return 0 }
func (p *Project) DefaultSlug(stem string)  { p.Slug = orDefault(p.Slug, stem) }

func (p *Project) Normalize() error {
	t, err := time.Parse(YearMonthLayout, p.Dates.Start)
	if err != nil {
		return fmt.Errorf("dates.start: %w", err)
	}
	p.Dates.start = t
	return nil
}

// Log 为实验日志（content/logs）。
type Log struct {
	ID        int       `yaml:"id" json:"id" validate:"required,gt=0"`
	RawDate   string    `yaml:"date" json:"-" validate:"required,anydate"`
	Date      time.Time `yaml:"-" json:"date"`
	Title     string    `yaml:"title" json:"title" validate:"required,max=100"`
	Tags      []string  `yaml:"tags" json:"tags" validate:"min=1,max=10"`
	Slug      string    `yaml:"slug" json:"slug" validate:"required,slug,unreserved"`
	Published bool      `yaml:"published" json:"published"`
	Featured  bool      `yaml:"featured" json:"featured"`

	Body `yaml:"-" validate:"-"`
}

func NewLog() *Log { return &Log{Published: true} }

func (l *Log) Kind() Kind               { return KindLog }
func (l *Log) Key() string              { return l.Slug }
func (l *Log) Label() string            { return l.Title }
func (l *Log) Blurb() string            { return "" }
func (l *Log) Terms() []string          { return l.Tags }
func (l *Log) SortDate() time.Time      { return l.Date }
func (l *Log) IsPublished() bool        { return l.Published }
func (l *Log) IsFeatured() bool         { return l.Featured }
func (l *Log) ReadingTimeOverride() int { return 0 }
func (l *Log) DefaultSlug(stem string)  { l.Slug = orDefault(l.Slug, stem) }

func (l *Log) Normalize() error {
	t, err := ParseDate(l.RawDate)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	l.Date = t
	return nil
}

// Essay 为长文（content/essays）。
type Essay struct {
	Slug        string    `yaml:"slug" json:"slug" validate:"required,slug,unreserved"`
	Title       string    `yaml:"title" json:"title" validate:"required,max=120"`
	Synopsis    string    `yaml:"synopsis" json:"synopsis" validate:"required,min=10,max=400"`
	Cover       string    `yaml:"cover" json:"cover,omitempty" validate:"omitempty,absurl"`
	Keywords    []string  `yaml:"keywords" json:"keywords" validate:"min=1,max=15"`
	Published   bool      `yaml:"published" json:"published"`
	Featured    bool      `yaml:"featured" json:"featured"`
	RawDate     string    `yaml:"date" json:"-" validate:"required,anydate"`
	Date        time.Time `yaml:"-" json:"date"`
	ReadingTime *int      `yaml:"readingTime" json:"-" validate:"omitnil,gt=0"`

	Body `yaml:"-" validate:"-"`
}

func NewEssay() *Essay { return &Essay{Published: true} }

func (e *Essay) Kind() Kind              { return KindEssay }
func (e *Essay) Key() string             { return e.Slug }
func (e *Essay) Label() string           { return e.Title }
func (e *Essay) Blurb() string           { return e.Synopsis }
func (e *Essay) Terms() []string         { return e.Keywords }
func (e *Essay) SortDate() time.Time     { return e.Date }
func (e *Essay) IsPublished() bool       { return e.Published }
func (e *Essay) IsFeatured() bool        { return e.Featured }
func (e *Essay) DefaultSlug(stem string) { e.Slug = orDefault(e.Slug, stem) }

func (e *Essay) ReadingTimeOverride() int {
	if e.ReadingTime == nil {
		return 0
	}
	return *e.ReadingTime
}

func (e *Essay) Normalize() error {
	t, err := ParseDate(e.RawDate)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	e.Date = t
	return nil
}

// ParseDate 解析自由格式的日期字符串（2024-03-15、March 15, 2024、RFC3339 等），
// 无时区信息时按 UTC 处理。
func ParseDate(s string) (time.Time, error) {
	return dateparse.ParseIn(s, time.UTC)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
