// Package ddl converts MySQL CREATE TABLE statements into ClickHouse
// ReplacingMergeTree tables for the sink connector.
package ddl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoCreateTable is returned when the input holds no CREATE TABLE statement
	ErrNoCreateTable = errors.New("no CREATE TABLE statement found")

	bodyPattern     = regexp.MustCompile(`(?is)CREATE TABLE[^(]+\((.*)\)`)
	columnPattern   = regexp.MustCompile("^[\"`]([\\p{L}\\p{N}_]+)[\"`]\\s+(.+?),?\\s*$")
	quotedIdent     = regexp.MustCompile("[\"`]([\\p{L}\\p{N}_]+)[\"`]")
	primaryKeyStart = regexp.MustCompile(`(?i)^PRIMARY\s+KEY\s*\(`)
)

// Column is one MySQL column with its raw type definition.
type Column struct {
	Name       string
	Definition string
}

// Table is a parsed MySQL table.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// Normalize extracts the CREATE TABLE statement from `SHOW CREATE TABLE`
// output. It accepts the tab-separated mysql client format, with escaped
// newlines and an optional password warning, as well as a bare statement.
func Normalize(raw string) (string, error) {
	lines := strings.Split(raw, "\n")

	var stmt string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if trimmed == "" || strings.Contains(lower, "mysql:") || lower == "table\tcreate table" || lower == "table create table" {
			continue
		}
		if _, after, ok := strings.Cut(line, "\t"); ok && strings.Contains(strings.ToUpper(after), "CREATE TABLE") {
			stmt = after
			break
		}
	}

	if stmt == "" {
		for i, line := range lines {
			if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "CREATE TABLE") {
				stmt = strings.Join(lines[i:], "\n")
				break
			}
		}
	}
	if stmt == "" {
		return "", fmt.Errorf("%w in %d lines", ErrNoCreateTable, len(lines))
	}

	stmt = strings.ReplaceAll(stmt, `\n`, "\n")
	stmt = strings.ReplaceAll(stmt, `\"`, `"`)
	stmt = strings.ReplaceAll(stmt, `\'`, `'`)
	return stmt, nil
}

// Parse reads the column and primary-key definitions of a normalized
// CREATE TABLE statement. Index and constraint lines other than the
// primary key are skipped.
func Parse(name, stmt string) (*Table, error) {
	m := bodyPattern.FindStringSubmatch(stmt)
	if m == nil {
		return nil, fmt.Errorf("failed to parse CREATE TABLE body of %s", name)
	}

	t := &Table{Name: name}
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if primaryKeyStart.MatchString(line) {
			for _, id := range quotedIdent.FindAllStringSubmatch(line, -1) {
				t.PrimaryKey = append(t.PrimaryKey, id[1])
			}
			continue
		}
		if cm := columnPattern.FindStringSubmatch(line); cm != nil {
			t.Columns = append(t.Columns, Column{Name: cm[1], Definition: strings.TrimSpace(cm[2])})
		}
	}
	return t, nil
}
