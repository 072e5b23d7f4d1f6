// Package clickhouse reads the sink database catalog.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

// Config holds ClickHouse connection configuration.
type Config struct {
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

// Table is one row of system.tables.
type Table struct {
	Name   string `db:"name"`
	Engine string `db:"engine"`
}

// Column is one row of system.columns.
type Column struct {
	Table string `db:"table"`
	Name  string `db:"name"`
	Type  string `db:"type"`
}

// Catalog queries table and column metadata for one database.
type Catalog struct {
	db       *sqlx.DB
	database string
}

// NewCatalog opens a connection pool and pings the server.
func NewCatalog(ctx context.Context, cfg Config) (*Catalog, error) {
	db, err := sqlx.Open("clickhouse", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &Catalog{db: db, database: cfg.Database}, nil
}

// Close closes the connection pool.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping checks the connection.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Tables lists the tables of the configured database.
func (c *Catalog) Tables(ctx context.Context) ([]Table, error) {
	var tables []Table
	err := c.db.SelectContext(ctx, &tables,
		`SELECT name, engine FROM system.tables WHERE database = ? ORDER BY name`, c.database)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

// Columns lists every column of every table in the configured database.
func (c *Catalog) Columns(ctx context.Context) ([]Column, error) {
	var cols []Column
	err := c.db.SelectContext(ctx, &cols,
		`SELECT table, name, type FROM system.columns WHERE database = ? ORDER BY table, position`, c.database)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	return cols, nil
}

// Schema returns the known table set and the table -> column -> type map.
func (c *Catalog) Schema(ctx context.Context) (map[string]bool, map[string]map[string]string, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.Name] = true
	}

	cols, err := c.Columns(ctx)
	if err != nil {
		return nil, nil, err
	}
	return known, GroupColumns(cols), nil
}

// GroupColumns indexes columns by table.
func GroupColumns(cols []Column) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, col := range cols {
		m, ok := out[col.Table]
		if !ok {
			m = make(map[string]string)
			out[col.Table] = m
		}
		m[col.Name] = col.Type
	}
	return out
}
