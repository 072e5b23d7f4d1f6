package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/diagnosis/engine"
)

const timestampLayout = "20060102_150405"

// Writer persists all report artifacts into one directory.
type Writer struct {
	Dir      string
	Database string
	Top      int
	// DDLDir holds MySQL `SHOW CREATE TABLE` dumps named <table>.sql. When
	// set, the fix script also creates confirmed-missing tables.
	DDLDir   string
}

// WriteAll writes the text report, JSON export, SQL fix script and
// suggested connector config. It returns the written paths in that order.
func (wr *Writer) WriteAll(a *engine.Analysis, truth domain.GroundTruth, now time.Time) ([]string, error) {
	if err := os.MkdirAll(wr.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	ts := now.Format(timestampLayout)

	artifacts := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"dlq_diagnostic_report_" + ts + ".txt", func(w io.Writer) error {
			return WriteText(w, a, wr.Top, now)
		}},
		{"dlq_diagnostic_data_" + ts + ".json", func(w io.Writer) error {
			return WriteJSON(w, NewExport(a, truth.ConnectorConfig, now))
		}},
		{"fix_schema_issues_" + ts + ".sql", func(w io.Writer) error {
			if err := WriteFixSQL(w, a.RootCauses, wr.Database, truth); err != nil || wr.DDLDir == "" {
				return err
			}
			return WriteCreateTables(w, a.RootCauses, wr.Database, truth, wr.DDLDir)
		}},
		{"suggested_connector_config_" + ts + ".json", func(w io.Writer) error {
			return WriteSuggestedConfig(w, SuggestConfig(truth.ConnectorConfig, a.RootCauses))
		}},
	}

	paths := make([]string, 0, len(artifacts))
	for _, art := range artifacts {
		path := filepath.Join(wr.Dir, art.name)
		if err := writeFile(path, art.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
