// 包 render 把记录正文（Markdown/MDX）渲染为安全的 HTML，
// 并从渲染结果中提取目录与纯文本。
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"portfolio-content/internal/content"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	sanitizer = newPolicy()
)

// newPolicy 在 UGC 策略基础上保留标题 id，目录锚点依赖它。
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	return p
}

// Heading 为目录中的一项。
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// Page 为一篇正文的渲染结果。
type Page struct {
	HTML    string    `json:"html"`
	Outline []Heading `json:"outline"`
	// Text 为渲染后的可见文本，供摘要展示与字数统计。
	Text    string    `json:"text"`
}

// HTML 去掉嵌入组件后按 GFM 渲染正文并做清洗。
// 原始 HTML 标签（包括 MDX 组件标签）不会输出。
func HTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content.StripComponents(body)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return sanitizer.Sanitize(buf.String()), nil
}

// Outline 按文档顺序返回 h2/h3 标题。
func Outline(html string) ([]Heading, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	out := []Heading{}
	doc.Find("h2, h3").Each(func(_ int, s *goquery.Selection) {
		level := 2
		if goquery.NodeName(s) == "h3" {
			level = 3
		}
		id, _ := s.Attr("id")
		out = append(out, Heading{Level: level, ID: id, Text: collapse(s.Text())})
	})
	return out, nil
}

// Text 返回 HTML 的可见文本，空白折叠为单个空格。
func Text(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return collapse(doc.Text()), nil
}

// Render 渲染正文并生成目录。
func Render(body string) (Page, error) {
	html, err := HTML(body)
	if err != nil {
		return Page{}, err
	}
	outline, err := Outline(html)
	if err != nil {
		return Page{}, err
	}
	text, err := Text(html)
	if err != nil {
		return Page{}, err
	}
	return Page{HTML: html, Outline: outline, Text: text}, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
