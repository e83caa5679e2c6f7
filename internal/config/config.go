// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ContentDir  string    `yaml:"CONTENT_DIR"`
	SiteURL     string    `yaml:"SITE_URL"`
	Routes      Routes    `yaml:"ROUTES"`
	StaticPages []string  `yaml:"STATIC_PAGES"`
	Cache       bool      `yaml:"CACHE"`
	StrictSlugs bool      `yaml:"STRICT_SLUGS"`
	Database    Database  `yaml:"DATABASE"`
	Export      Export    `yaml:"EXPORT"`
	Server      Server    `yaml:"SERVER"`
	LinkCheck   LinkCheck `yaml:"LINK_CHECK"`
	LogLevel    string    `yaml:"LOG_LEVEL"`
	LogFormat   string    `yaml:"LOG_FORMAT"` // pretty|json|text
	LogColor    string    `yaml:"LOG_COLOR"`  // auto|always|never
}

// Routes 为各内容类型的页面前缀，详情页地址为 {prefix}/{slug}。
type Routes struct {
	Project string `yaml:"project"`
	Log     string `yaml:"log"`
	Essay   string `yaml:"essay"`
}

type Database struct {
	Type string `yaml:"type"` // sqlite (default)
	DSN  string `yaml:"dsn"`
}

type Export struct {
	Dir             string `yaml:"dir"`
	MaxFeedItems    int    `yaml:"max_feed_items"`
	FeedTitle       string `yaml:"feed_title"`
	FeedDescription string `yaml:"feed_description"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type LinkCheck struct {
	Concurrency int           `yaml:"concurrency"`
	Retry       int           `yaml:"retry"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// Default 返回未提供配置文件时使用的配置（已填充默认值）。
func Default() *Config {
	c := &Config{}
	_ = c.Validate()
	return c
}

// Load 从文件读取 YAML 并反序列化为 Config，随后应用环境变量覆盖并校验。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadOrDefault 与 Load 相同，但文件不存在时返回默认配置。
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		c = &Config{}
		c.applyEnv()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
		return c, nil
	}
	return nil, err
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PORTFOLIO_SITE_URL")); v != "" {
		c.SiteURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PORTFOLIO_CONTENT_DIR")); v != "" {
		c.ContentDir = v
	}
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:3000"
	}
	u, err := url.Parse(c.SiteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SITE_URL must be an absolute URL: %q", c.SiteURL)
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")

	c.Routes.Project = routeOr(c.Routes.Project, "/work")
	c.Routes.Log = routeOr(c.Routes.Log, "/lab")
	c.Routes.Essay = routeOr(c.Routes.Essay, "/writing")
	if len(c.StaticPages) == 0 {
		c.StaticPages = []string{"/", c.Routes.Project, "/about", "/contact"}
	}

	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.DSN == "" {
		c.Database.DSN = filepath.Join(xdg.CacheHome, "portfolio-content", "index.db")
	}

	if c.Export.MaxFeedItems < 0 {
		return errors.New("EXPORT.max_feed_items must be >= 0")
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "public"
	}
	if c.Export.MaxFeedItems == 0 {
		c.Export.MaxFeedItems = 20
	}
	if c.Export.FeedTitle == "" {
		c.Export.FeedTitle = "Portfolio"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.LinkCheck.Concurrency < 0 || c.LinkCheck.Retry < 0 {
		return errors.New("LINK_CHECK.concurrency and LINK_CHECK.retry must be >= 0")
	}
	if c.LinkCheck.Concurrency == 0 {
		c.LinkCheck.Concurrency = 8
	}
	if c.LinkCheck.Timeout <= 0 {
		c.LinkCheck.Timeout = 15 * time.Second
	}

	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// routeOr 返回规范化的路由前缀：以 / 开头、不以 / 结尾。
func routeOr(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		v = def
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	if len(v) > 1 {
		v = strings.TrimRight(v, "/")
	}
	return v
}
