package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"portfolio-content/internal/content"
	"portfolio-content/internal/model"
)

// excerptWidth 为表格中摘要列的最大显示宽度。
const excerptWidth = 48

func newListCmd(a *app) *cobra.Command {
	var (
		format string
		tag    string
	)
	cmd := &cobra.Command{
		Use:       "list <projects|logs|essays>",
		Short:     "List published records of a collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(model.Projects), string(model.Logs), string(model.Essays)},
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := published(a.lib, model.Collection(args[0]), tag)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), recs)
			case "table":
				outputTable(cmd.OutOrStdout(), a.lib, model.Collection(args[0]), recs)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().StringVar(&tag, "tag", "", "only records carrying this tag (stack, tags or keywords)")
	return cmd
}

// published 返回集合中已发布的记录，tag 非空时只保留带该标签的记录。
func published(lib *content.Library, name model.Collection, tag string) ([]model.Entry, error) {
	src, ok := lib.Source(name)
	if !ok {
		return nil, fmt.Errorf("unknown collection: %s (valid values: projects, logs, essays)", name)
	}
	recs, err := src.Entries()
	if err != nil || tag == "" {
		return recs, err
	}
	return slices.DeleteFunc(recs, func(r model.Entry) bool {
		return !slices.Contains(r.Terms(), tag)
	}), nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputTable(w io.Writer, lib *content.Library, name model.Collection, recs []model.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(cases.Title(language.English).String(string(name)))
	t.AppendHeader(table.Row{"Slug", "Title", "Date", "Tags", "Min", "Excerpt", "URL"})
	for _, r := range recs {
		date := ""
		if d := r.SortDate(); !d.IsZero() {
			date = d.Format("2006-01-02")
		}
		mark := ""
		if r.IsFeatured() {
			mark = " *"
		}
		t.AppendRow(table.Row{
			r.Key(),
			r.Label() + mark,
			date,
			strings.Join(r.Terms(), ", "),
			r.Derived().ReadingTime,
			runewidth.Truncate(r.Derived().Excerpt, excerptWidth, "..."),
			lib.URL(r.Kind(), r.Key()),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(recs)})
	t.Render()
}
