package content

import (
	"math"
	"regexp"
	"strings"
)

const (
	// ExcerptLimit 为摘要的最大字符数（含省略号）。
	ExcerptLimit = 160
	// WordsPerMinute 为估算阅读时长使用的阅读速度。
	WordsPerMinute = 200

	ellipsis = "..."
)

var (
	headingRe   = regexp.MustCompile(`#+\s`)
	linkRe      = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	boldRe      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe    = regexp.MustCompile(`\*([^*]+)\*`)
	paragraphRe = regexp.MustCompile(`\n[ \t]*\n`)
)

// StripComponents 删除正文中嵌入的组件标记（成对的 {...}，可嵌套），
// 不成对的花括号也一并删除。
func StripComponents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Excerpt 取正文第一段的纯文本：去掉组件、标题符号、链接语法与强调符号，
// 超过 ExcerptLimit 个字符时按字符截断并追加省略号。
func Excerpt(body string) string {
	s := strings.ReplaceAll(body, "\r\n", "\n")
	s = StripComponents(s)
	s = headingRe.ReplaceAllString(s, "")
	s = linkRe.ReplaceAllString(s, "${1}")
	s = boldRe.ReplaceAllString(s, "${1}")
	s = italicRe.ReplaceAllString(s, "${1}")
	s = strings.TrimSpace(s)

	para := strings.TrimSpace(paragraphRe.Split(s, 2)[0])
	runes := []rune(para)
	if len(runes) <= ExcerptLimit {
		return para
	}
	cut := ExcerptLimit - len(ellipsis)
	return strings.TrimSpace(string(runes[:cut])) + ellipsis
}

// ReadingTime 按空白切分统计词数，返回 ceil(词数/WordsPerMinute) 分钟，至少 1 分钟。
// override > 0 时直接返回 override。
func ReadingTime(body string, override int) int {
	if override > 0 {
		return override
	}
	words := len(strings.Fields(body))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
