package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"strings"

	"github.com/vietddude/dlqdiag/internal/core/domain"
	"github.com/vietddude/dlqdiag/internal/ddl"
)

const maxAlterTables = 10

// WriteFixSQL writes ALTER statements widening date/time columns of
// schema-mismatch tables. The script is for review and is never executed.
// Columns known to be absent from a table are skipped.
func WriteFixSQL(w io.Writer, causes []domain.RootCause, database string, truth domain.GroundTruth) error {
	p := &printer{w: w}
	p.line("-- Auto-generated SQL fixes")
	p.line("-- Review before executing!")
	p.line("")

	for _, rc := range causes {
		if rc.Category != domain.CategorySchemaMismatch {
			continue
		}
		p.line("-- Fix DateTime range issues")
		for _, table := range head(rc.AffectedEntities, maxAlterTables) {
			for _, field := range rc.AffectedFields {
				if !isTemporal(field) {
					continue
				}
				if _, known := truth.Columns[table]; known {
					if _, ok := truth.ColumnType(table, field); !ok {
						continue
					}
				}
				p.printf("ALTER TABLE %s.%s MODIFY COLUMN %s DateTime64(3);\n", database, table, field)
			}
		}
		p.line("")
	}
	return p.err
}

// WriteCreateTables writes ClickHouse CREATE TABLE statements for tables
// the catalog confirms missing, converted from the MySQL dumps in ddlDir.
// Nothing is written when the catalog was unavailable.
func WriteCreateTables(w io.Writer, causes []domain.RootCause, database string, truth domain.GroundTruth, ddlDir string) error {
	if !truth.HasEntities() {
		return nil
	}
	p := &printer{w: w}
	for _, rc := range causes {
		if rc.Category != domain.CategoryMissingTable {
			continue
		}
		for _, table := range rc.AffectedEntities {
			if table == "" || table == "unknown" || truth.KnownEntities[table] {
				continue
			}
			p.printf("-- Create missing table %s\n", table)
			t, err := ddl.Load(ddlDir, table)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				p.printf("-- no MySQL DDL for %s in %s\n\n", table, ddlDir)
				continue
			case err != nil:
				p.printf("-- failed to convert %s: %v\n\n", table, err)
				continue
			}
			for _, issue := range ddl.Check(t) {
				p.printf("-- warning: %s\n", issue)
			}
			p.line(ddl.Generate(database, t))
			p.line("")
		}
	}
	return p.err
}

func isTemporal(field string) bool {
	f := strings.ToLower(field)
	return strings.Contains(f, "date") || strings.Contains(f, "time")
}

// SuggestConfig returns a copy of the connector config patched for the
// ranked root causes.
func SuggestConfig(current map[string]string, causes []domain.RootCause) map[string]string {
	out := make(map[string]string, len(current)+3)
	maps.Copy(out, current)
	for _, rc := range causes {
		switch rc.Category {
		case domain.CategoryPrimaryKey:
			out["primary.key.mode"] = "record_value"
			out["primary.key.fields"] = "id"
		case domain.CategorySchemaMismatch:
			out["schema.evolution"] = "basic"
		}
	}
	return out
}

// WriteSuggestedConfig writes cfg in the Kafka Connect PUT body shape.
func WriteSuggestedConfig(w io.Writer, cfg map[string]string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"config": cfg}); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
