package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/retention-cli/internal/dataset"
	"github.com/KaramelBytes/retention-cli/internal/store"
)

var (
	qrySQL   string
	qryTable string
	qryList  bool
	qryShow  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [name...]",
	Short: "Run canned retention analytics or custom SQL against the store",
	Long: `Query runs named analytics queries over the cleaned table, or every canned
query when no name is given. --sql runs a custom statement instead. Requires a
SQL store driver (sqlite, postgres or snowflake).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if qryList {
			for _, q := range cannedQueries {
				fmt.Fprintf(out, "- %s: %s\n", q.Name, q.Title)
			}
			return nil
		}
		if qrySQL != "" && len(args) > 0 {
			return fmt.Errorf("--sql cannot be combined with query names")
		}

		ctx, stop := stageContext(cmd)
		defer stop()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()
		q, ok := e.store.(store.Querier)
		if !ok {
			return fmt.Errorf("store driver %q does not support SQL queries (use sqlite, postgres or snowflake)", currentConfig().Store.Driver)
		}

		if qrySQL != "" {
			d, err := q.Query(ctx, qrySQL)
			if err != nil {
				return err
			}
			printTable(out, d)
			return nil
		}

		table := qryTable
		if table == "" {
			table = currentConfig().Tables.Cleaned
		}
		if err := store.ValidTable(table); err != nil {
			return err
		}
		selected := cannedQueries
		if len(args) > 0 {
			selected = selected[:0:0]
			for _, name := range args {
				cq, err := findQuery(name)
				if err != nil {
					return err
				}
				selected = append(selected, cq)
			}
		}
		for i, cq := range selected {
			sql := cq.render(table)
			d, err := q.Query(ctx, sql)
			if err != nil {
				return fmt.Errorf("%s: %w", cq.Name, err)
			}
			fmt.Fprintf(out, "%s\n  %d. %s\n%s\n", strings.Repeat("=", 70), i+1, cq.Title, strings.Repeat("=", 70))
			if qryShow {
				fmt.Fprintf(out, "\n%s\n\n", sql)
			}
			printTable(out, d)
		}
		return nil
	},
}

// printTable renders d as aligned columns followed by a row count.
func printTable(w io.Writer, d *dataset.Dataset) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(d.Columns, "\t"))
	for _, r := range d.Rows {
		cells := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			cells[i] = dataset.Format(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "(%d rows returned)\n\n", d.Len())
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&qrySQL, "sql", "", "custom SQL statement to run")
	queryCmd.Flags().StringVarP(&qryTable, "table", "t", "", "table the canned queries read (default: cleaned table)")
	queryCmd.Flags().BoolVarP(&qryList, "list", "l", false, "list canned queries")
	queryCmd.Flags().BoolVar(&qryShow, "show-sql", false, "print each query before its results")
}
