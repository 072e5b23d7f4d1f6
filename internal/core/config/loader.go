package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "clickhouse-dlq"
	}
	if cfg.Kafka.SampleSize == 0 {
		cfg.Kafka.SampleSize = 1000
	}
	if cfg.Kafka.FetchTimeout == 0 {
		cfg.Kafka.FetchTimeout = 120 * time.Second
	}

	if cfg.Connect.URL == "" {
		cfg.Connect.URL = "http://localhost:8085"
	}
	if cfg.Connect.Connector == "" {
		cfg.Connect.Connector = "clickhouse-sink-connector"
	}
	if cfg.Connect.Timeout == 0 {
		cfg.Connect.Timeout = 10 * time.Second
	}

	if cfg.ClickHouse.Database == "" {
		cfg.ClickHouse.Database = "analytics"
	}
	if cfg.ClickHouse.DSN == "" {
		cfg.ClickHouse.DSN = "clickhouse://default:@localhost:9000/" + cfg.ClickHouse.Database
	}

	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 5 * time.Minute
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.Retention == 0 {
		cfg.Database.Retention = 30 * 24 * time.Hour
	}

	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "."
	}
	if cfg.Report.Top == 0 {
		cfg.Report.Top = 5
	}

	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = 1
	}
	if cfg.Engine.TopN == 0 {
		cfg.Engine.TopN = 20
	}

	if cfg.Watch.Interval == 0 {
		cfg.Watch.Interval = 5 * time.Minute
	}
}

// Validate rejects settings that cannot work.
func (c *AppConfig) Validate() error {
	switch {
	case c.Kafka.SampleSize < 0:
		return fmt.Errorf("kafka.sample_size must not be negative")
	case c.Engine.Workers < 0:
		return fmt.Errorf("engine.workers must not be negative")
	case c.Engine.TopN < 0:
		return fmt.Errorf("engine.top_n must not be negative")
	case c.Watch.Interval < time.Second:
		return fmt.Errorf("watch.interval must be at least 1s, got %s", c.Watch.Interval)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported logging.format %q", c.Logging.Format)
	}
	return nil
}
