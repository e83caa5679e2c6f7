package content

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"portfolio-content/internal/document"
	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
	"portfolio-content/internal/schema"
)

// Definition 描述一个集合：目录名（即集合名）与记录构造函数。
// New 返回带默认值的空记录，front matter 在其上覆盖。
type Definition[E model.Entry] struct {
	Name model.Collection
	New  func() E
}

// Source 为与记录类型无关的集合视图，供索引、导出与链接检查使用。
type Source interface {
	Name() model.Collection
	Fingerprint() (string, error)
	// Entries 返回已发布记录，按主日期降序。
	Entries() ([]model.Entry, error)
}

// snapshot 为缓存中的一次加载结果，目录指纹变化即失效。
type snapshot struct {
	fingerprint string
	records     []model.Entry
}

type snapshotCache = lru.Cache[model.Collection, snapshot]

// Collection 为单个内容集合的加载器与只读访问器。
// 除 Load 外的访问器只返回已发布记录。
type Collection[E model.Entry] struct {
	def      Definition[E]
	fsys     fs.FS
	strict   bool
	cache    *snapshotCache
	validate *schema.Validator
}

func newCollection[E model.Entry](fsys fs.FS, def Definition[E], strict bool, c *snapshotCache, v *schema.Validator) *Collection[E] {
	return &Collection[E]{def: def, fsys: fsys, strict: strict, cache: c, validate: v}
}

// Name 返回集合名。
func (c *Collection[E]) Name() model.Collection { return c.def.Name }

// Load 读取并校验集合目录下的全部文档（含未发布），顺序为文件名顺序。
// 任一文档失败都会中止整个集合的加载。
func (c *Collection[E]) Load() ([]E, error) {
	if c.cache == nil {
		return c.load()
	}
	fp, err := c.Fingerprint()
	if err != nil {
		return nil, err
	}
	if s, ok := c.cache.Get(c.def.Name); ok && s.fingerprint == fp {
		logx.Debugf("命中缓存：%s", c.def.Name)
		return fromEntries[E](s.records), nil
	}
	recs, err := c.load()
	if err != nil {
		c.cache.Remove(c.def.Name)
		return nil, err
	}
	c.cache.Add(c.def.Name, snapshot{fingerprint: fp, records: toEntries(recs)})
	return recs, nil
}

// All 返回已发布记录，按主日期降序；日期相同保持加载顺序。
func (c *Collection[E]) All() ([]E, error) {
	recs, err := c.Load()
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(recs))
	for _, r := range recs {
		if r.IsPublished() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortDate().After(out[j].SortDate())
	})
	return out, nil
}

// Featured 返回 All 中 featured 为 true 的记录。
func (c *Collection[E]) Featured() ([]E, error) {
	return c.filter(func(e E) bool { return e.IsFeatured() })
}

// BySlug 在 All 中查找 slug。找不到时 found 为 false 且 err 为 nil；
// 重复 slug 时返回排序后的第一条。
func (c *Collection[E]) BySlug(slug string) (rec E, found bool, err error) {
	all, err := c.All()
	if err != nil {
		return rec, false, err
	}
	for _, r := range all {
		if r.Key() == slug {
			return r, true, nil
		}
	}
	return rec, false, nil
}

// Slugs 返回 All 的 slug 列表，用于静态页面枚举。
func (c *Collection[E]) Slugs() ([]string, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, r := range all {
		out = append(out, r.Key())
	}
	return out, nil
}

// ByTag 返回标签（作品为 stack，随笔为 keywords）与 tag 完全相同的记录，区分大小写。
func (c *Collection[E]) ByTag(tag string) ([]E, error) {
	return c.filter(func(e E) bool {
		for _, t := range e.Terms() {
			if t == tag {
				return true
			}
		}
		return false
	})
}

// Tags 返回 All 中出现过的全部标签，去重并排序。
func (c *Collection[E]) Tags() ([]string, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range all {
		for _, t := range r.Terms() {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Search 按不区分大小写的子串匹配标题、摘要、标签与正文。
// 空查询返回 All。
func (c *Collection[E]) Search(query string) ([]E, error) {
	q := strings.ToLower(query)
	return c.filter(func(e E) bool {
		if strings.Contains(strings.ToLower(e.Label()), q) ||
			strings.Contains(strings.ToLower(e.Blurb()), q) ||
			strings.Contains(strings.ToLower(e.Derived().Content), q) {
			return true
		}
		for _, t := range e.Terms() {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	})
}

// Entries 实现 Source。
func (c *Collection[E]) Entries() ([]model.Entry, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	return toEntries(all), nil
}

// Fingerprint 返回集合目录的签名（文件名、大小、修改时间）。
// 目录不存在时返回空字符串。
func (c *Collection[E]) Fingerprint() (string, error) {
	files, err := c.scan()
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			return "", fmt.Errorf("stat %s/%s: %w", c.def.Name, f.Name(), err)
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", f.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Collection[E]) filter(keep func(E) bool) ([]E, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// scan 非递归列出集合目录下的标记文件。
func (c *Collection[E]) scan() ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(c.fsys, string(c.def.Name))
	if err != nil {
		return nil, err
	}
	files := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && document.IsMarkup(e.Name()) {
			files = append(files, e)
		}
	}
	return files, nil
}

func (c *Collection[E]) load() ([]E, error) {
	files, err := c.scan()
	if errors.Is(err, fs.ErrNotExist) {
		logx.Warnf("%v：%s，按空集合处理", ErrDirMissing, c.def.Name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.def.Name, err)
	}
	if len(files) == 0 {
		logx.Warnf("%v：%s，按空集合处理", ErrDirEmpty, c.def.Name)
		return nil, nil
	}

	out := make([]E, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, f := range files {
		name := path.Join(string(c.def.Name), f.Name())
		rec, err := c.parse(name)
		if err != nil {
			return nil, &DocumentError{Collection: c.def.Name, File: name, Err: err}
		}
		slug := rec.Key()
		if prev, dup := seen[slug]; dup {
			if c.strict {
				return nil, &DuplicateSlugError{Collection: c.def.Name, Slug: slug, Files: []string{prev, name}}
			}
			logx.Warnf("%s 存在重复 slug %q：%s 与 %s", c.def.Name, slug, prev, name)
		} else {
			seen[slug] = name
		}
		out = append(out, rec)
	}
	logx.Debugf("已加载 %s：%d 篇", c.def.Name, len(out))
	return out, nil
}

// parse 读取单个文档：解码 front matter、回退 slug、校验、规范化日期并计算派生字段。
func (c *Collection[E]) parse(name string) (E, error) {
	rec := c.def.New()
	var zero E
	var fm yaml.Node
	body, err := document.Read(c.fsys, name, &fm)
	if err != nil {
		return zero, err
	}
	if err := schema.Decode(&fm, rec); err != nil {
		return zero, err
	}
	rec.DefaultSlug(document.Stem(name))
	if err := c.validate.Struct(rec); err != nil {
		return zero, err
	}
	if err := rec.Normalize(); err != nil {
		return zero, err
	}
	d := rec.Derived()
	d.Content = body
	d.File = name
	d.Excerpt = Excerpt(body)
	d.ReadingTime = ReadingTime(body, rec.ReadingTimeOverride())
	return rec, nil
}

func toEntries[E model.Entry](recs []E) []model.Entry {
	out := make([]model.Entry, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out
}

func fromEntries[E model.Entry](recs []model.Entry) []E {
	out := make([]E, len(recs))
	for i, r := range recs {
		out[i] = r.(E)
	}
	return out
}
