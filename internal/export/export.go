// 包 export 负责构建产物的导出：
// - index.json：跨集合检索索引与统计
// - sitemap.xml：静态页面与各记录详情页
// - feed.xml：RSS 2.0，写出后用 gofeed 回读校验
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"portfolio-content/internal/model"
)

// 产物的默认文件名。
const (
	IndexFile   = "index.json"
	SitemapFile = "sitemap.xml"
	FeedFile    = "feed.xml"
)

// NewExport 汇总索引条目并生成带 build_id 的导出结构。
func NewExport(entries []model.IndexEntry) model.Export {
	st := model.Stats{GeneratedAt: time.Now().UTC()}
	for _, e := range entries {
		switch e.Type {
		case model.KindProject:
			st.Projects++
		case model.KindLog:
			st.Logs++
		case model.KindEssay:
			st.Essays++
		}
	}
	st.Total = len(entries)
	if entries == nil {
		entries = []model.IndexEntry{}
	}
	return model.Export{BuildID: uuid.NewString(), Stats: st, Entries: entries}
}

// WriteIndex 把索引条目写为带缩进的 JSON 文件，返回写出的导出结构。
func WriteIndex(path string, entries []model.IndexEntry) (model.Export, error) {
	out := NewExport(entries)
	err := writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}, nil)
	if err != nil {
		return out, fmt.Errorf("encode json to %s: %w", path, err)
	}
	return out, nil
}

// writeFile 先写入同目录下的临时文件，verify 通过后再重命名为 path，
// 失败时不会留下半成品。
func writeFile(path string, write func(io.Writer) error, verify func(string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if verify != nil {
		if err := verify(tmp); err != nil {
			return err
		}
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
