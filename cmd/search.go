package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		limit   int
		reindex bool
		format  string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search all published records through the SQLite index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openIndex(cmd.Context(), a, reindex)
			if err != nil {
				return err
			}
			defer st.Close()

			hits, err := st.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), hits)
			case "table":
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Type", "Title", "Date", "Excerpt", "URL"})
			for _, h := range hits {
				t.AppendRow(table.Row{
					h.Type,
					h.Title,
					h.Date.Format("2006-01-02"),
					runewidth.Truncate(h.Excerpt, excerptWidth, "..."),
					h.URL,
				})
			}
			t.AppendFooter(table.Row{"", "", "", "Hits", len(hits)})
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of hits (0 for all)")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "rebuild every collection before searching")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}
