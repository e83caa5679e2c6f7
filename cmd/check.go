package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"portfolio-content/internal/content"
	"portfolio-content/internal/fetch"
	"portfolio-content/internal/linkcheck"
	"portfolio-content/internal/logx"
	"portfolio-content/internal/model"
)

func newCheckCmd(a *app) *cobra.Command {
	var links bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load and validate every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Collection", "Records", "Published", "Featured"})

			rows := []func() (countRow, error){
				func() (countRow, error) { return count(a.lib.Projects) },
				func() (countRow, error) { return count(a.lib.Logs) },
				func() (countRow, error) { return count(a.lib.Essays) },
			}
			for _, row := range rows {
				r, err := row()
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{r.name, r.total, r.published, r.featured})
			}
			t.Render()

			if !links {
				return nil
			}
			return checkLinks(cmd.Context(), a, out)
		},
	}
	cmd.Flags().BoolVar(&links, "links", false, "also check external links of published records")
	return cmd
}

type countRow struct {
	name                       model.Collection
	total, published, featured int
}

func count[E model.Entry](col *content.Collection[E]) (countRow, error) {
	r := countRow{name: col.Name()}
	recs, err := col.Load()
	if err != nil {
		return r, err
	}
	r.total = len(recs)
	for _, rec := range recs {
		if rec.IsPublished() {
			r.published++
			if rec.IsFeatured() {
				r.featured++
			}
		}
	}
	return r, nil
}

// checkLinks 报告失效的外部链接，不改变命令的退出状态。
func checkLinks(ctx context.Context, a *app, out io.Writer) error {
	targets, err := linkcheck.Targets(a.lib)
	if err != nil {
		return err
	}
	lc := a.cfg.LinkCheck
	cl := fetch.New(fetch.Options{Timeout: lc.Timeout, Retry: lc.Retry, UserAgent: lc.UserAgent})
	results := linkcheck.Check(ctx, cl, targets, lc.Concurrency)
	broken := linkcheck.Broken(results)
	logx.Infof("链接检查完成：共 %d 个，失效 %d 个", len(results), len(broken))
	if len(broken) == 0 {
		fmt.Fprintf(out, "links: %d checked, all reachable\n", len(results))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Collection", "Slug", "Field", "URL", "Status"})
	for _, r := range broken {
		status := fmt.Sprint(r.Status)
		if r.Err != nil {
			status = r.Err.Error()
		}
		t.AppendRow(table.Row{r.Collection, r.Slug, r.Field, r.URL, status})
	}
	t.Render()
	return nil
}
