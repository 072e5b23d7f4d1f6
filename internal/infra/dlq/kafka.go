package dlq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

// Config holds DLQ consumer settings.
type Config struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	SampleSize   int           `yaml:"sample_size"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// Partitions restricts the read; empty reads every partition.
	Partitions []int `yaml:"partitions"`
}

// partitionReader reads one topic partition at a time.
type partitionReader interface {
	Partitions(ctx context.Context) ([]int, error)
	// ReadPartition returns the records read so far together with any error,
	// so a timeout mid-partition still yields its partial slice.
	ReadPartition(ctx context.Context, partition, limit int) ([]domain.RawRecord, error)
}

// KafkaSource samples the DLQ topic from the earliest retained offset
// without joining a consumer group, so it never commits offsets.
type KafkaSource struct {
	cfg    Config
	reader partitionReader
}

func NewKafkaSource(cfg Config) *KafkaSource {
	return &KafkaSource{
		cfg: cfg,
		reader: &brokerReader{
			cfg: cfg,
			dialer: &kafka.Dialer{
				Timeout:   10 * time.Second,
				DualStack: true,
			},
		},
	}
}

func (s *KafkaSource) Name() string {
	return "kafka://" + s.cfg.Topic
}

// Fetch reads up to SampleSize records, partition by partition, each up to
// the high-water mark observed at the start of the read. When FetchTimeout
// expires after at least one record was read, the partial sample is returned.
func (s *KafkaSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	if len(s.cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	partitions, err := s.reader.Partitions(ctx)
	if err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	for _, p := range partitions {
		remaining := s.cfg.SampleSize - len(records)
		if s.cfg.SampleSize > 0 && remaining <= 0 {
			break
		}
		batch, err := s.reader.ReadPartition(ctx, p, remaining)
		records = append(records, batch...)
		if err == nil {
			continue
		}
		if timedOut(ctx, err) && len(records) > 0 {
			slog.Warn("DLQ fetch timed out, using partial sample", "topic", s.cfg.Topic, "partition", p, "count", len(records))
			break
		}
		return nil, fmt.Errorf("failed to read partition %d: %w", p, err)
	}

	slog.Debug("Fetched DLQ records", "topic", s.cfg.Topic, "partitions", len(partitions), "count", len(records))
	return records, nil
}

// timedOut reports whether err stems from the fetch deadline. Dial errors do
// not always wrap the context error, so the context is checked as well.
func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// brokerReader reads partitions directly from the partition leaders.
type brokerReader struct {
	cfg    Config
	dialer *kafka.Dialer
}

func (b *brokerReader) Partitions(ctx context.Context) ([]int, error) {
	conn, err := b.dialer.DialContext(ctx, "tcp", b.cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	parts, err := conn.ReadPartitions(b.cfg.Topic)
	if errors.Is(err, kafka.UnknownTopicOrPartition) {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, b.cfg.Topic)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read partitions: %w", err)
	}
	return filterPartitions(parts, b.cfg)
}

func filterPartitions(parts []kafka.Partition, cfg Config) ([]int, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, cfg.Topic)
	}
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		if len(cfg.Partitions) > 0 && !slices.Contains(cfg.Partitions, p.ID) {
			continue
		}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: partitions %v of %s", ErrTopicNotFound, cfg.Partitions, cfg.Topic)
	}
	sort.Ints(ids)
	return ids, nil
}

func (b *brokerReader) ReadPartition(ctx context.Context, partition, limit int) ([]domain.RawRecord, error) {
	leader, err := b.dialer.DialLeader(ctx, "tcp", b.cfg.Brokers[0], b.cfg.Topic, partition)
	if err != nil {
		return nil, fmt.Errorf("failed to dial leader: %w", err)
	}
	first, last, err := leader.ReadOffsets()
	leader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read offsets: %w", err)
	}
	if last <= first {
		return nil, nil
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   b.cfg.Brokers,
		Topic:     b.cfg.Topic,
		Partition: partition,
		Dialer:    b.dialer,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   500 * time.Millisecond,
	})
	defer r.Close()

	if err := r.SetOffset(first); err != nil {
		return nil, fmt.Errorf("failed to seek: %w", err)
	}

	var out []domain.RawRecord
	for {
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, recordFromMessage(msg))
		if msg.Offset >= last-1 {
			return out, nil
		}
	}
}

func recordFromMessage(msg kafka.Message) domain.RawRecord {
	headers := make(map[string]any, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawRecord{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}
