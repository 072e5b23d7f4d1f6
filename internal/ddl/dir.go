package ddl

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Result describes one converted file.
type Result struct {
	Table   string
	Columns int
	Keys    int
	Issues  []string
	Err     error
}

// Load reads and parses the MySQL DDL file for table from dir, where each
// table is dumped as <table>.sql.
func Load(dir, table string) (*Table, error) {
	raw, err := os.ReadFile(filepath.Join(dir, table+".sql"))
	if err != nil {
		return nil, err
	}
	stmt, err := Normalize(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table, err)
	}
	return Parse(table, stmt)
}

// ConvertDir converts every .sql file in inDir and writes the ClickHouse
// DDL under the same name in outDir. A failing file is recorded in its
// Result and does not stop the others.
func ConvertDir(inDir, outDir, database string) ([]Result, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, strings.TrimSuffix(e.Name(), ".sql"))
		}
	}
	sort.Strings(names)

	results := make([]Result, 0, len(names))
	for _, name := range names {
		res := Result{Table: name}
		t, err := Load(inDir, name)
		if err == nil {
			res.Columns, res.Keys, res.Issues = len(t.Columns), len(t.PrimaryKey), Check(t)
			out := Generate(database, t) + "\n"
			err = os.WriteFile(filepath.Join(outDir, name+".sql"), []byte(out), 0o644)
		}
		if err != nil {
			res.Err = err
			slog.Warn("Failed to convert DDL", "table", name, "error", err)
		}
		results = append(results, res)
	}
	return results, nil
}
