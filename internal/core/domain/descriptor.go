package domain

// Descriptor is the flat error view of one RawRecord.
// Everything except Category and Confidence is fixed at normalization time.
type Descriptor struct {
	OriginTopic   string `json:"original_topic"`
	Partition     int    `json:"partition"`
	Offset        int64  `json:"offset"`
	ConnectorName string `json:"connector_name"`
	TaskID        int    `json:"task_id"`
	Stage         string `json:"stage"`

	ExceptionClass   string `json:"exception_class"`
	ExceptionMessage string `json:"exception_message"`
	StackTrace       string `json:"stacktrace,omitempty"`

	Entity          string   `json:"table_name"`
	CandidateFields []string `json:"problematic_fields"`

	Category   Category `json:"category"`
	Confidence int      `json:"confidence"`
}
