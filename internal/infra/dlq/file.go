package dlq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

// maxLineSize bounds a single NDJSON line; stack traces can be large.
const maxLineSize = 16 << 20

// FileSource reads records from an NDJSON dump as written by
// `rpk topic consume --format json` or `kcat -J`.
type FileSource struct {
	path  string
	limit int
}

func NewFileSource(path string, limit int) *FileSource {
	return &FileSource{path: path, limit: limit}
}

func (s *FileSource) Name() string {
	return "file://" + s.path
}

func (s *FileSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dlq dump: %w", err)
	}
	defer f.Close()
	return ReadNDJSON(ctx, f, s.limit)
}

// dumpLine is one consumed message. Headers arrive either as an object or
// as a list of key/value pairs depending on the tool.
type dumpLine struct {
	Key     json.RawMessage `json:"key"`
	Value   json.RawMessage `json:"value"`
	Headers json.RawMessage `json:"headers"`
}

type dumpHeader struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// ReadNDJSON decodes one record per line. Blank and undecodable lines are
// skipped. limit <= 0 reads everything.
func ReadNDJSON(ctx context.Context, r io.Reader, limit int) ([]domain.RawRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		records []domain.RawRecord
		skipped int
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		rec, err := decodeLine(line)
		if err != nil {
			skipped++
			slog.Debug("Skipping undecodable DLQ line", "line", lineNo, "error", err)
			continue
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan dlq dump: %w", err)
	}
	if skipped > 0 {
		slog.Warn("Skipped undecodable DLQ lines", "count", skipped)
	}
	return records, nil
}

func decodeLine(line []byte) (domain.RawRecord, error) {
	var dl dumpLine
	if err := json.Unmarshal(line, &dl); err != nil {
		return domain.RawRecord{}, err
	}
	headers, err := decodeHeaders(dl.Headers)
	if err != nil {
		return domain.RawRecord{}, err
	}
	return domain.RawRecord{
		Key:     payload(dl.Key),
		Value:   payload(dl.Value),
		Headers: headers,
	}, nil
}

func decodeHeaders(raw json.RawMessage) (map[string]any, error) {
	headers := make(map[string]any)
	if len(raw) == 0 || string(raw) == "null" {
		return headers, nil
	}

	switch raw[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to decode headers: %w", err)
		}
		for k, v := range m {
			headers[k] = headerValue(v)
		}
	case '[':
		var list []dumpHeader
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("failed to decode headers: %w", err)
		}
		for _, h := range list {
			headers[h.Key] = headerValue(h.Value)
		}
	default:
		return nil, fmt.Errorf("unexpected headers encoding")
	}
	return headers, nil
}

// headerValue keeps strings and numbers; JSON numbers decode as float64 and
// are narrowed to int64 when integral.
func headerValue(v any) any {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return t
	case nil:
		return ""
	default:
		return t
	}
}

// payload unwraps a JSON string so keys and values keep their original bytes.
func payload(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return []byte(raw)
}
