// 包 content 负责内容集合（作品/实验日志/随笔）的加载与读取：
// - 扫描集合目录，解析 front matter 并按 schema 校验
// - 计算摘要与阅读时长
// - 提供按 slug/标签/关键词的只读访问与跨集合索引
package content

import (
	"io/fs"
	"os"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"portfolio-content/internal/config"
	"portfolio-content/internal/model"
	"portfolio-content/internal/schema"
)

// Options 控制 Library 的加载行为。
type Options struct {
	// Cache 为真时按集合名缓存加载结果，目录指纹变化即重新加载。
	Cache bool
	// StrictSlugs 为真时集合内重复 slug 视为错误，否则只记录警告。
	StrictSlugs bool
	// Routes 为详情页前缀，未设置的字段使用 /work、/lab、/writing。
	Routes config.Routes
}

// OptionsFrom 从应用配置构造 Options。
func OptionsFrom(cfg *config.Config) Options {
	return Options{Cache: cfg.Cache, StrictSlugs: cfg.StrictSlugs, Routes: cfg.Routes}
}

// Library 聚合三个集合，集合之间互不共享可变状态，可并发加载。
type Library struct {
	Projects *Collection[*model.Project]
	Logs     *Collection[*model.Log]
	Essays   *Collection[*model.Essay]

	routes config.Routes
}

// New 以 root 为内容根目录创建 Library，集合目录为 root 下的 projects/logs/essays。
func New(root fs.FS, opts Options) *Library {
	var c *snapshotCache
	if opts.Cache {
		// 容量固定为集合数，New 只在容量非正时出错
		c, _ = lru.New[model.Collection, snapshot](len(model.Collections))
	}
	v := schema.New()
	return &Library{
		Projects: newCollection(root, Definition[*model.Project]{Name: model.Projects, New: model.NewProject}, opts.StrictSlugs, c, v),
		Logs:     newCollection(root, Definition[*model.Log]{Name: model.Logs, New: model.NewLog}, opts.StrictSlugs, c, v),
		Essays:   newCollection(root, Definition[*model.Essay]{Name: model.Essays, New: model.NewEssay}, opts.StrictSlugs, c, v),
		routes:   defaultRoutes(opts.Routes),
	}
}

// Open 以本地目录 dir 为内容根创建 Library。
func Open(dir string, opts Options) *Library {
	return New(os.DirFS(dir), opts)
}

// Sources 按固定顺序（projects、logs、essays）返回全部集合。
func (l *Library) Sources() []Source {
	return []Source{l.Projects, l.Logs, l.Essays}
}

// Source 按集合名查找集合。
func (l *Library) Source(name model.Collection) (Source, bool) {
	for _, s := range l.Sources() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Route 返回某类记录详情页的前缀，如 /work。
func (l *Library) Route(kind model.Kind) string {
	switch kind {
	case model.KindLog:
		return l.routes.Log
	case model.KindEssay:
		return l.routes.Essay
	}
	return l.routes.Project
}

// URL 返回记录的站内地址，如 /work/neon-atlas。
func (l *Library) URL(kind model.Kind, slug string) string {
	prefix := l.Route(kind)
	if prefix == "/" {
		return "/" + slug
	}
	return prefix + "/" + slug
}

// Summarize 把记录转换为索引条目。
func (l *Library) Summarize(e model.Entry) model.IndexEntry {
	return model.IndexEntry{
		Slug:     e.Key(),
		Title:    e.Label(),
		Type:     e.Kind(),
		Excerpt:  e.Derived().Excerpt,
		Keywords: e.Terms(),
		URL:      l.URL(e.Kind(), e.Key()),
		Date:     e.SortDate(),
	}
}

// Index 返回三个集合已发布记录的索引条目，依次为作品、日志、随笔，
// 各集合内部保持 All 的顺序。
func (l *Library) Index() ([]model.IndexEntry, error) {
	groups, err := l.loadAll()
	if err != nil {
		return nil, err
	}
	out := []model.IndexEntry{}
	for _, g := range groups {
		for _, e := range g {
			out = append(out, l.Summarize(e))
		}
	}
	return out, nil
}

// Timeline 返回三个集合全部已发布记录，按主日期降序合并。
func (l *Library) Timeline() ([]model.Entry, error) {
	groups, err := l.loadAll()
	if err != nil {
		return nil, err
	}
	out := []model.Entry{}
	for _, g := range groups {
		out = append(out, g...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortDate().After(out[j].SortDate())
	})
	return out, nil
}

// loadAll 并发加载全部集合；任一集合失败时按集合顺序返回第一个错误。
func (l *Library) loadAll() ([][]model.Entry, error) {
	sources := l.Sources()
	groups := make([][]model.Entry, len(sources))
	errs := make([]error, len(sources))
	var wg sync.WaitGroup
	for i, s := range sources {
		i, s := i, s
		wg.Add(1)
		go func() {
			defer wg.Done()
			groups[i], errs[i] = s.Entries()
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func defaultRoutes(r config.Routes) config.Routes {
	if r.Project == "" {
		r.Project = "/work"
	}
	if r.Log == "" {
		r.Log = "/lab"
	}
	if r.Essay == "" {
		r.Essay = "/writing"
	}
	return r
}
