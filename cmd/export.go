package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"portfolio-content/internal/export"
	"portfolio-content/internal/indexer"
	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
	"portfolio-content/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		out       string
		skipIndex bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write index.json, sitemap.xml and feed.xml and sync the search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.Export.Dir
			}
			w := cmd.OutOrStdout()

			// 1) 索引：依次为作品、日志、随笔
			index, err := a.lib.Index()
			if err != nil {
				return err
			}
			exp, err := export.WriteIndex(filepath.Join(out, export.IndexFile), index)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: %d projects, %d logs, %d essays (build %s)\n",
				export.IndexFile, exp.Stats.Projects, exp.Stats.Logs, exp.Stats.Essays, exp.BuildID)

			// 2) 站点地图与订阅：按时间倒序
			timeline, err := timelineIndex(a)
			if err != nil {
				return err
			}
			if err := export.WriteSitemap(filepath.Join(out, export.SitemapFile), a.cfg.SiteURL, a.cfg.StaticPages, timeline); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: %d records\n", export.SitemapFile, len(timeline))
			feedOpts := export.FeedOptions{
				Title:       a.cfg.Export.FeedTitle,
				Description: a.cfg.Export.FeedDescription,
				SiteURL:     a.cfg.SiteURL,
				MaxItems:    a.cfg.Export.MaxFeedItems,
			}
			if err := export.WriteFeed(filepath.Join(out, export.FeedFile), feedOpts, timeline); err != nil {
				return err
			}
			fmt.Fprintf(w, "%s: %d items\n", export.FeedFile, min(len(timeline), a.cfg.Export.MaxFeedItems))
			logx.Infof("已导出到 %s", out)

			if skipIndex {
				return nil
			}
			// 3) 检索索引
			st, results, err := openIndex(cmd.Context(), a, false)
			if err != nil {
				return err
			}
			defer st.Close()
			for _, r := range results {
				state := "indexed"
				if r.Skipped {
					state = "unchanged"
				}
				fmt.Fprintf(w, "index %s: %d %s\n", r.Collection, r.Indexed, state)
			}
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "index: %d entries (%d projects, %d logs, %d essays)\n",
				stats.Total, stats.Projects, stats.Logs, stats.Essays)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (default EXPORT.dir)")
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "do not sync the SQLite search index")
	return cmd
}

// timelineIndex 返回按时间倒序的索引条目，供站点地图与订阅使用。
func timelineIndex(a *app) ([]model.IndexEntry, error) {
	recs, err := a.lib.Timeline()
	if err != nil {
		return nil, err
	}
	out := make([]model.IndexEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, a.lib.Summarize(r))
	}
	return out, nil
}

// openIndex 打开检索索引并同步全部集合，force 时先清空旧索引。
// 调用方负责关闭返回的存储。
func openIndex(ctx context.Context, a *app, force bool) (*store.SQLite, []indexer.Result, error) {
	st, err := store.OpenSQLite(a.cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if force {
		if err := st.Reset(ctx); err != nil {
			st.Close()
			return nil, nil, err
		}
	}
	results, err := indexer.New(a.lib, st, len(model.Collections)).Force(force).Run(ctx)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, results, nil
}
