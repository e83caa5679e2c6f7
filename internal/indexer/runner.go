// 包 indexer 负责把内容集合同步到检索索引：
// - 并发比较各集合目录指纹与索引中记录的指纹
// - 只重建发生变化的集合
// - 正文去掉 Markdown 语法后写入，供全文匹配
package indexer

import (
	"context"
	"sync"

	stripmd "github.com/writeas/go-strip-markdown"

	"portfolio-content/internal/content"
	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
	"portfolio-content/internal/store"
)

// Result 为单个集合的同步结果。
type Result struct {
	Collection model.Collection
	Indexed    int
	// Skipped 表示指纹未变化，沿用索引中已有的条目。
	Skipped bool
}

// Runner 同步执行器，持有内容库与索引存储。
type Runner struct {
	lib         *content.Library
	store       *store.SQLite
	concurrency int
	force       bool
}

// New 创建 Runner；concurrency <= 0 时按 1 处理。
func New(lib *content.Library, s *store.SQLite, concurrency int) *Runner {
	return &Runner{lib: lib, store: s, concurrency: concurrency}
}

// Force 设置为真时忽略指纹，全部集合重建。
func (r *Runner) Force(v bool) *Runner {
	r.force = v
	return r
}

// Run 执行一轮同步。任一集合加载失败时返回该错误（按集合顺序取第一个），
// 失败集合的旧索引保持不变。
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	sources := r.lib.Sources()
	results := make([]Result, len(sources))
	errs := make([]error, len(sources))

	sem := make(chan struct{}, max(1, r.concurrency))
	var wg sync.WaitGroup
	for i, src := range sources {
		i, src := i, src
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = r.sync(ctx, src)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// sync 处理单个集合：指纹比较→加载→整集合替换。
func (r *Runner) sync(ctx context.Context, src content.Source) (Result, error) {
	res := Result{Collection: src.Name()}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	dir, err := src.Fingerprint()
	if err != nil {
		return res, err
	}
	// 索引中保存的是完整地址，路由前缀变化同样需要重建
	fp := dir + "@" + r.lib.Route(src.Name().Kind())
	if !r.force {
		st, ok, err := r.store.Collection(ctx, src.Name())
		if err != nil {
			return res, err
		}
		if ok && st.Fingerprint == fp {
			logx.Debugf("[%s] 指纹未变化，跳过", src.Name())
			res.Indexed = st.Count
			res.Skipped = true
			return res, nil
		}
	}

	entries, err := src.Entries()
	if err != nil {
		logx.Errorf("[%s] 加载失败：%v", src.Name(), err)
		return res, err
	}
	docs := make([]store.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, store.Document{IndexEntry: r.lib.Summarize(e), Text: SearchText(e.Derived().Content)})
	}
	n, err := r.store.ReplaceCollection(ctx, src.Name(), fp, docs)
	if err != nil {
		return res, err
	}
	res.Indexed = n
	logx.Infof("[%s] 索引完成：%d", src.Name(), n)
	return res, nil
}

// SearchText 返回正文的纯文本：去掉嵌入组件与 Markdown 语法。
func SearchText(body string) string {
	return stripmd.Strip(content.StripComponents(body))
}
