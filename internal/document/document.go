// 包 document 负责单个内容文件的读取：
// 拆分开头的 YAML front matter 与正文，front matter 直接解码到目标结构体。
package document

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// yamlFormat 使用 yaml.v3 解码 --- 分隔的 front matter，与配置文件保持同一解析器。
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Extensions 为可识别的标记文件扩展名。
var Extensions = []string{".md", ".mdx"}

// IsMarkup 报告文件名是否为可识别的标记文件（不区分大小写）。
func IsMarkup(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Stem 返回去掉扩展名的文件名，用作 slug 的回退值。
func Stem(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Read 读取 fsys 中的 name，把 front matter 解码进 v 并返回正文。
// 没有 front matter 的文件不会修改 v，整个文件作为正文返回。
func Read(fsys fs.FS, name string, v any) (string, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return Parse(b, v)
}

// Parse 与 Read 相同，但直接处理内存中的内容。
func Parse(b []byte, v any) (string, error) {
	body, err := frontmatter.Parse(bytes.NewReader(b), v, yamlFormat)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
