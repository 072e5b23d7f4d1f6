package ddl

import (
	"fmt"
	"slices"
	"strings"
)

// cdcColumns are appended to every table for ReplacingMergeTree
// deduplication of CDC updates and deletes.
var cdcColumns = []string{
	"`_version` UInt64 DEFAULT 0",
	"`_is_deleted` UInt8 DEFAULT 0",
	"`_extracted_at` DateTime DEFAULT now()",
}

var partitionPreference = []string{"created_at", "created", "date", "timestamp"}

// Generate renders the ClickHouse CREATE TABLE for t. The MySQL primary key
// becomes the ORDER BY key and the first creation-like timestamp column
// drives monthly partitioning.
func Generate(database string, t *Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s.`%s`\n(\n", database, t.Name)

	defs := make([]string, 0, len(t.Columns)+len(cdcColumns))
	for _, c := range t.Columns {
		defs = append(defs, fmt.Sprintf("    `%s` %s", c.Name, ColumnType(c.Name, c.Definition)))
	}
	for _, c := range cdcColumns {
		defs = append(defs, "    "+c)
	}
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n)\n")

	b.WriteString("ENGINE = ReplacingMergeTree(_version, _is_deleted)\n")
	if len(t.PrimaryKey) > 0 {
		keys := make([]string, len(t.PrimaryKey))
		for i, k := range t.PrimaryKey {
			keys[i] = "`" + k + "`"
		}
		fmt.Fprintf(&b, "ORDER BY (%s)\n", strings.Join(keys, ", "))
	} else {
		b.WriteString("ORDER BY tuple()\n")
	}
	if col := partitionColumn(t); col != "" {
		fmt.Fprintf(&b, "PARTITION BY toYYYYMM(`%s`)\n", col)
	}
	b.WriteString("SETTINGS clean_deleted_rows = 'Always',\n")
	b.WriteString("         index_granularity = 8192;")
	return b.String()
}

// partitionColumn picks the partition key among timestamp columns,
// ignoring update and delete markers.
func partitionColumn(t *Table) string {
	var candidates []string
	for _, c := range t.Columns {
		upper := strings.ToUpper(c.Definition)
		lname := strings.ToLower(c.Name)
		if !strings.Contains(upper, "DATETIME") && !strings.Contains(upper, "TIMESTAMP") {
			continue
		}
		if lname == "updated_at" || lname == "deleted_at" {
			continue
		}
		candidates = append(candidates, c.Name)
	}
	if len(candidates) == 0 {
		return ""
	}
	for _, pref := range partitionPreference {
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c), pref) {
				return c
			}
		}
	}
	return candidates[0]
}

// Check reports conversion problems worth a human look.
func Check(t *Table) []string {
	var issues []string
	if len(t.Columns) == 0 {
		issues = append(issues, "no columns parsed")
		return issues
	}

	names := make([]string, len(t.Columns))
	strs := 0
	for i, c := range t.Columns {
		names[i] = c.Name
		ct := ColumnType(c.Name, c.Definition)
		if ct == "String" || ct == "Nullable(String)" || strings.HasPrefix(ct, "String ") {
			strs++
		}
	}
	for _, k := range t.PrimaryKey {
		if !slices.Contains(names, k) {
			issues = append(issues, fmt.Sprintf("primary key column %s is not a parsed column", k))
		}
	}
	if float64(strs) > float64(len(t.Columns))*0.7 {
		issues = append(issues, fmt.Sprintf("too many String columns (%d/%d)", strs, len(t.Columns)))
	}
	return issues
}
