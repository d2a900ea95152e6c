package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sheetsql/internal/sqlite"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// openStore returns a store over the configured data directory.
func (a *app) openStore() (*sqlite.Store, error) {
	store, err := sqlite.NewStore(a.cfg, a.logger)
	if err != nil {
		return nil, sysErr("open store: %v", err)
	}
	return store, nil
}

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Materialize a CSV or XLSX file as a new dataset",
		Long: "Ingest parses the file, loads it into a fresh SQLite store, and prints\n" +
			"the dataset UUID. The extension (.csv or .xlsx) selects the parser.\n\n" +
			"Example:\n  sheetsql ingest people.csv",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			id, err := store.Ingest(cmd.Context(), f, filepath.Base(path))
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]types.Identity{"uuid": id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <uuid> <sql>",
		Short: "Run a SQL statement against a dataset",
		Long: "Query hands the statement to SQLite unchanged and prints every row.\n" +
			"The dataset table is named data_table and every column is TEXT.\n\n" +
			"Example:\n  sheetsql query 0192... \"SELECT name FROM data_table WHERE age > '25'\"",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}

			result, err := store.Execute(cmd.Context(), types.Identity(args[0]), args[1])
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), result)
			}
			if len(result.Columns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			}
			rows := make([][]string, len(result.Rows))
			for i, row := range result.Rows {
				rows[i] = make([]string, len(row))
				for j, v := range row {
					rows[i][j] = cellText(v)
				}
			}
			return printTable(cmd.OutOrStdout(), result.Columns, rows)
		},
	}
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <uuid>",
		Short: "Describe the tables of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}

			id := types.Identity(args[0])
			summary, err := store.DescribeSchema(cmd.Context(), id)
			if err != nil {
				return err
			}
			if summary == "" {
				return fmt.Errorf("%w: %s", types.ErrSchemaNotFound, id)
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"schema": summary})
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List datasets in the data directory, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}

			datasets, err := store.List()
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				if datasets == nil {
					datasets = []sqlite.DatasetInfo{}
				}
				return printJSON(cmd.OutOrStdout(), datasets)
			}
			rows := make([][]string, len(datasets))
			for i, d := range datasets {
				rows[i] = []string{
					d.Identity.String(),
					strconv.FormatInt(d.Size, 10),
					d.Modified.UTC().Format(time.RFC3339),
				}
			}
			return printTable(cmd.OutOrStdout(), []string{"UUID", "SIZE", "MODIFIED"}, rows)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a dataset before its retention expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}

			id := types.Identity(args[0])
			if err := store.Remove(id); err != nil {
				return err
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]types.Identity{"deleted": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
}
