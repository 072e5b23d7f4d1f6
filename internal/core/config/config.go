package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/dlqdiag/internal/infra/clickhouse"
	"github.com/vietddude/dlqdiag/internal/infra/connect"
	"github.com/vietddude/dlqdiag/internal/infra/dlq"
	redisclient "github.com/vietddude/dlqdiag/internal/infra/redis"
	"github.com/vietddude/dlqdiag/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Kafka      dlq.Config         `yaml:"kafka"`
	Connect    connect.Config     `yaml:"connect"`
	ClickHouse clickhouse.Config  `yaml:"clickhouse"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
	Report     ReportConfig       `yaml:"report"`
	Engine     EngineConfig       `yaml:"engine"`
	Watch      WatchConfig        `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// SlogLevel parses Level. Empty means info.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unsupported logging.level %q", l.Level)
	}
	return level, nil
}

// ReportConfig controls artifact generation.
type ReportConfig struct {
	Dir         string `yaml:"dir"`
	Top         int    `yaml:"top"`           // root causes shown in the text report
	MySQLDDLDir string `yaml:"mysql_ddl_dir"` // <table>.sql dumps for CREATE TABLE fixes
}

// EngineConfig tunes the classification pass.
type EngineConfig struct {
	Workers int `yaml:"workers"`
	TopN    int `yaml:"top_n"`
}

// WatchConfig holds settings for periodic runs.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}
