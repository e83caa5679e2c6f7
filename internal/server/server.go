// 包 server 以只读 JSON 接口暴露内容库，并在线生成 sitemap.xml 与 feed.xml。
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-content/internal/config"
	"portfolio-content/internal/content"
	"portfolio-content/internal/export"
	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
	"portfolio-content/internal/render"
)

// Server 持有内容库与站点配置。
type Server struct {
	lib *content.Library
	cfg *config.Config
}

// New 创建 Server；cfg 需已通过 Validate。
func New(lib *content.Library, cfg *config.Config) *Server {
	return &Server{lib: lib, cfg: cfg}
}

// detail 为详情接口的响应：记录本身加渲染结果。
type detail struct {
	Record any `json:"record"`
	render.Page
}

type timelineItem struct {
	Type   model.Kind  `json:"type"`
	Record model.Entry `json:"record"`
}

// Router 注册全部路由。
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		projects := api.Group("/projects")
		projects.GET("", listHandler(s.lib.Projects.All))
		projects.GET("/featured", listHandler(s.lib.Projects.Featured))
		projects.GET("/:slug", detailHandler(s.lib.Projects))

		logs := api.Group("/logs")
		logs.GET("", listHandler(s.lib.Logs.All))
		logs.GET("/tags", listHandler(s.lib.Logs.Tags))
		logs.GET("/tags/:tag", tagHandler(s.lib.Logs))
		logs.GET("/:slug", detailHandler(s.lib.Logs))

		essays := api.Group("/essays")
		essays.GET("", listHandler(s.lib.Essays.All))
		essays.GET("/featured", listHandler(s.lib.Essays.Featured))
		essays.GET("/search", searchHandler(s.lib.Essays))
		essays.GET("/tags", listHandler(s.lib.Essays.Tags))
		essays.GET("/tags/:tag", tagHandler(s.lib.Essays))
		essays.GET("/:slug", detailHandler(s.lib.Essays))

		api.GET("/index", listHandler(s.lib.Index))
		api.GET("/timeline", s.timeline)
	}

	r.GET("/sitemap.xml", s.sitemap)
	r.GET("/feed.xml", s.feed)
	return r
}

// Run 在 addr 上提供服务，ctx 结束时优雅关闭。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logx.Infof("服务已启动：%s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logx.Infof("正在关闭服务")
		return srv.Shutdown(shutdownCtx)
	}
}

func listHandler[T any](load func() ([]T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := load()
		if err != nil {
			respondLoadError(c, err)
			return
		}
		if recs == nil {
			recs = []T{}
		}
		c.JSON(http.StatusOK, recs)
	}
}

func detailHandler[E model.Entry](col *content.Collection[E]) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		rec, found, err := col.BySlug(slug)
		if err != nil {
			respondLoadError(c, err)
			return
		}
		if !found {
			respondError(c, http.StatusNotFound, string(col.Name())+" not found: "+slug)
			return
		}
		page, err := render.Render(rec.Derived().Content)
		if err != nil {
			logx.Errorf("渲染失败：%s/%s 错误=%v", col.Name(), slug, err)
			respondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, detail{Record: rec, Page: page})
	}
}

func tagHandler[E model.Entry](col *content.Collection[E]) gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := c.Param("tag")
		listHandler(func() ([]E, error) { return col.ByTag(tag) })(c)
	}
}

func searchHandler[E model.Entry](col *content.Collection[E]) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		listHandler(func() ([]E, error) { return col.Search(q) })(c)
	}
}

func (s *Server) timeline(c *gin.Context) {
	recs, err := s.lib.Timeline()
	if err != nil {
		respondLoadError(c, err)
		return
	}
	out := make([]timelineItem, 0, len(recs))
	for _, r := range recs {
		out = append(out, timelineItem{Type: r.Kind(), Record: r})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) sitemap(c *gin.Context) {
	entries, err := s.timelineIndex()
	if err != nil {
		respondLoadError(c, err)
		return
	}
	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.EncodeSitemap(c.Writer, s.cfg.SiteURL, s.cfg.StaticPages, entries); err != nil {
		logx.Errorf("写出 sitemap 失败：%v", err)
	}
}

func (s *Server) feed(c *gin.Context) {
	entries, err := s.timelineIndex()
	if err != nil {
		respondLoadError(c, err)
		return
	}
	opts := export.FeedOptions{
		Title:       s.cfg.Export.FeedTitle,
		Description: s.cfg.Export.FeedDescription,
		SiteURL:     s.cfg.SiteURL,
		MaxItems:    s.cfg.Export.MaxFeedItems,
	}
	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.EncodeFeed(c.Writer, opts, entries); err != nil {
		logx.Errorf("写出 feed 失败：%v", err)
	}
}

// timelineIndex 返回按时间倒序的索引条目。
func (s *Server) timelineIndex() ([]model.IndexEntry, error) {
	recs, err := s.lib.Timeline()
	if err != nil {
		return nil, err
	}
	out := make([]model.IndexEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, s.lib.Summarize(r))
	}
	return out, nil
}

func respondLoadError(c *gin.Context, err error) {
	logx.Errorf("加载内容失败：%s 错误=%v", c.Request.URL.Path, err)
	respondError(c, http.StatusInternalServerError, err.Error())
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logx.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
