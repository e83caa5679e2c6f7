package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"portfolio-content/internal/model"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// WriteSitemap 写出 sitemaps.org 格式的站点地图：先是 staticPages，再是各记录详情页。
// 静态页的 lastmod 为生成日期，记录取其主日期。
func WriteSitemap(path, siteURL string, staticPages []string, entries []model.IndexEntry) error {
	err := writeFile(path, func(w io.Writer) error {
		return EncodeSitemap(w, siteURL, staticPages, entries)
	}, nil)
	if err != nil {
		return fmt.Errorf("write sitemap %s: %w", path, err)
	}
	return nil
}

// EncodeSitemap 与 WriteSitemap 相同，但直接写入 w。
func EncodeSitemap(w io.Writer, siteURL string, staticPages []string, entries []model.IndexEntry) error {
	return encodeXML(w, buildSitemap(siteURL, staticPages, entries, time.Now().UTC()))
}

// buildSitemap 构造站点地图；同一地址只出现一次。
func buildSitemap(siteURL string, staticPages []string, entries []model.IndexEntry, now time.Time) urlset {
	set := urlset{Xmlns: sitemapNS}
	seen := map[string]bool{}
	add := func(loc string, t time.Time) {
		if seen[loc] {
			return
		}
		seen[loc] = true
		u := sitemapURL{Loc: loc}
		if !t.IsZero() {
			u.LastMod = t.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	for _, p := range staticPages {
		add(absolute(siteURL, p), now)
	}
	for _, e := range entries {
		add(absolute(siteURL, e.URL), e.Date)
	}
	return set
}

// absolute 把站内路径拼接到站点地址；"/" 对应站点根地址本身。
func absolute(siteURL, p string) string {
	base := strings.TrimRight(siteURL, "/")
	if p == "" || p == "/" {
		return base
	}
	return base + "/" + strings.TrimPrefix(p, "/")
}

func encodeXML(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
