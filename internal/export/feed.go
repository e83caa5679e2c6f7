package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"portfolio-content/internal/model"
)

// FeedOptions 为 RSS 频道信息。
type FeedOptions struct {
	Title       string
	Description string
	SiteURL     string
	// MaxItems 为条目上限，0 表示不限制。
	MaxItems int
}

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
}

// WriteFeed 按 entries 的顺序（应为时间倒序）写出 RSS 2.0，条目数不超过 MaxItems。
// 写出的文件会用 gofeed 回读，条目数不一致视为失败并保留旧文件。
func WriteFeed(path string, opts FeedOptions, entries []model.IndexEntry) error {
	doc := buildFeed(opts, entries, time.Now().UTC())
	want := len(doc.Channel.Items)
	err := writeFile(path, func(w io.Writer) error {
		return encodeXML(w, doc)
	}, func(tmp string) error {
		f, err := os.Open(tmp)
		if err != nil {
			return err
		}
		defer f.Close()
		items, err := ReadFeed(f, 0)
		if err != nil {
			return err
		}
		if len(items) != want {
			return fmt.Errorf("feed round trip: got %d items, want %d", len(items), want)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write feed %s: %w", path, err)
	}
	return nil
}

// EncodeFeed 把 RSS 直接写入 w，不做回读校验。
func EncodeFeed(w io.Writer, opts FeedOptions, entries []model.IndexEntry) error {
	return encodeXML(w, buildFeed(opts, entries, time.Now().UTC()))
}

// buildFeed 构造 RSS 文档。
func buildFeed(opts FeedOptions, entries []model.IndexEntry, now time.Time) rss {
	if opts.MaxItems > 0 && len(entries) > opts.MaxItems {
		entries = entries[:opts.MaxItems]
	}
	ch := rssChannel{
		Title:         opts.Title,
		Link:          absolute(opts.SiteURL, "/"),
		Description:   opts.Description,
		LastBuildDate: now.Format(time.RFC1123Z),
	}
	for _, e := range entries {
		link := absolute(opts.SiteURL, e.URL)
		it := rssItem{
			Title:       e.Title,
			Link:        link,
			GUID:        link,
			Description: e.Excerpt,
			Categories:  e.Keywords,
		}
		if !e.Date.IsZero() {
			it.PubDate = e.Date.UTC().Format(time.RFC1123Z)
		}
		ch.Items = append(ch.Items, it)
	}
	return rss{Version: "2.0", Channel: ch}
}

// FeedItem 为回读得到的订阅条目。
type FeedItem struct {
	Title     string
	Link      string
	Published time.Time
}

// ReadFeed 用 gofeed 解析 RSS/Atom/JSON Feed（最多返回 max 条，0 表示不限制）。
func ReadFeed(r io.Reader, max int) ([]FeedItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := FeedItem{
			Title: strings.TrimSpace(it.Title),
			Link:  strings.TrimSpace(it.Link),
		}
		if it.PublishedParsed != nil {
			item.Published = *it.PublishedParsed
		}
		items = append(items, item)
		if max > 0 && len(items) >= max {
			break
		}
	}
	return items, nil
}
