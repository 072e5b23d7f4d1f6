package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/dlqdiag/internal/ddl"
)

var convertDatabase string

var convertDDLCmd = &cobra.Command{
	Use:   "convert-ddl <mysql_dir> <output_dir>",
	Short: "Convert MySQL SHOW CREATE TABLE dumps into ClickHouse DDL",
	Long: `Convert every <table>.sql MySQL DDL dump in mysql_dir into a ClickHouse
ReplacingMergeTree table with CDC metadata columns, written under the same
name in output_dir.`,
	Args: cobra.ExactArgs(2),
	Run:  runConvertDDL,
}

func init() {
	convertDDLCmd.Flags().StringVar(&convertDatabase, "database", "", "target ClickHouse database (defaults to clickhouse.database)")
	rootCmd.AddCommand(convertDDLCmd)
}

func runConvertDDL(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	database := convertDatabase
	if database == "" {
		database = cfg.ClickHouse.Database
	}

	results, err := ddl.ConvertDir(args[0], args[1], database)
	if err != nil {
		slog.Error("Failed to convert DDL", "error", err)
		os.Exit(1)
	}

	failed := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tCOLUMNS\tKEYS\tRESULT")
	for _, r := range results {
		result := "ok"
		switch {
		case r.Err != nil:
			failed++
			result = "error: " + r.Err.Error()
		case len(r.Issues) > 0:
			result = "warning: " + strings.Join(r.Issues, "; ")
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.Table, r.Columns, r.Keys, result)
	}
	_ = w.Flush()

	slog.Info("DDL conversion finished", "total", len(results), "failed", failed, "output", args[1])
	if failed > 0 {
		os.Exit(1)
	}
}
