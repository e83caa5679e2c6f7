// 包 linkcheck 检查已发布记录中的外部地址（作品链接与媒体、随笔封面）是否可访问。
// 失效链接只作为报告输出，不影响内容校验结果。
package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"portfolio-content/internal/content"
	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
)

// Checker 返回地址的最终状态码，*fetch.Client 实现了它。
type Checker interface {
	Status(ctx context.Context, url string) (int, error)
}

// Target 为一个待检查的地址及其出处。
type Target struct {
	URL        string
	Collection model.Collection
	Slug       string
	Field      string // 如 "links[0].href"、"media[1]"、"cover"
}

// Result 为单个地址的检查结果。
type Result struct {
	Target
	Status int
	Err    error
}

// OK 报告地址是否可访问（无错误且状态码小于 400）。
func (r Result) OK() bool { return r.Err == nil && r.Status > 0 && r.Status < http.StatusBadRequest }

// Targets 收集已发布作品的 links/media 与已发布随笔的 cover。
func Targets(lib *content.Library) ([]Target, error) {
	projects, err := lib.Projects.All()
	if err != nil {
		return nil, err
	}
	essays, err := lib.Essays.All()
	if err != nil {
		return nil, err
	}
	var out []Target
	for _, p := range projects {
		for i, l := range p.Links {
			out = append(out, Target{URL: l.Href, Collection: model.Projects, Slug: p.Slug, Field: fmt.Sprintf("links[%d].href", i)})
		}
		for i, m := range p.Media {
			out = append(out, Target{URL: m, Collection: model.Projects, Slug: p.Slug, Field: fmt.Sprintf("media[%d]", i)})
		}
	}
	for _, e := range essays {
		if e.Cover != "" {
			out = append(out, Target{URL: e.Cover, Collection: model.Essays, Slug: e.Slug, Field: "cover"})
		}
	}
	return out, nil
}

// Check 并发检查 targets，相同地址只请求一次；结果顺序与 targets 一致。
func Check(ctx context.Context, cl Checker, targets []Target, concurrency int) []Result {
	type outcome struct {
		status int
		err    error
	}
	unique := map[string]*outcome{}
	var urls []string
	for _, t := range targets {
		if _, ok := unique[t.URL]; !ok {
			unique[t.URL] = &outcome{}
			urls = append(urls, t.URL)
		}
	}

	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup
	for _, u := range urls {
		u := u
		o := unique[u]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			o.status, o.err = cl.Status(ctx, u)
			if o.err != nil {
				logx.Warnf("链接检查失败：%s 错误=%v", u, o.err)
			} else if o.status >= http.StatusBadRequest {
				logx.Warnf("链接不可用：%s 状态=%d", u, o.status)
			}
		}()
	}
	wg.Wait()

	out := make([]Result, 0, len(targets))
	for _, t := range targets {
		o := unique[t.URL]
		out = append(out, Result{Target: t, Status: o.status, Err: o.err})
	}
	return out
}

// Broken 过滤出不可访问的结果。
func Broken(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
