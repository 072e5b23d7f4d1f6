package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/dlqdiag/internal/diagnosis/classifier"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
	"github.com/vietddude/dlqdiag/internal/infra/dlq"
)

var (
	explainInput string
	explainLimit int
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show how each record in an NDJSON dump was classified",
	Args:  cobra.NoArgs,
	Run:   runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainInput, "input", "", "NDJSON dump to explain (required)")
	explainCmd.Flags().IntVar(&explainLimit, "limit", 50, "maximum records to explain")
	_ = explainCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	records, err := dlq.NewFileSource(explainInput, explainLimit).Fetch(context.Background())
	if err != nil {
		slog.Error("Failed to read records", "error", err)
		os.Exit(1)
	}

	eng, err := engine.New(engine.Config{Rules: classifier.DefaultRules(), TopN: cfg.Engine.TopN})
	if err != nil {
		slog.Error("Failed to create engine", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tTABLE\tCATEGORY\tCONFIDENCE\tSIGNATURE\tKEYWORD\tSTAGE\tFIELDS")
	for i, rec := range records {
		d, scores := eng.Explain(rec)
		c := d.Category
		var sig, kw, stage int
		if c.Known() {
			sig, kw, stage = scores.Signature[c], scores.Keyword[c], scores.Stage[c]
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			i+1, d.Entity, c, d.Confidence, sig, kw, stage, strings.Join(d.CandidateFields, ","))
	}
	_ = w.Flush()
}
