package domain

// Kafka Connect error-context headers attached to every DLQ record.
const (
	HeaderTopic          = "__connect.errors.topic"
	HeaderPartition      = "__connect.errors.partition"
	HeaderOffset         = "__connect.errors.offset"
	HeaderConnectorName  = "__connect.errors.connector.name"
	HeaderTaskID         = "__connect.errors.task.id"
	HeaderStage          = "__connect.errors.stage"
	HeaderExceptionClass = "__connect.errors.exception.class.name"
	HeaderExceptionMsg   = "__connect.errors.exception.message"
	HeaderStackTrace     = "__connect.errors.exception.stacktrace"
)

// RawRecord is a single dead-letter record as fetched from the DLQ topic.
// Header values are strings or integers depending on the source.
type RawRecord struct {
	Key     []byte         `json:"key,omitempty"`
	Value   []byte         `json:"value,omitempty"`
	Headers map[string]any `json:"headers"`
}
