package domain

// GroundTruth is the externally observed system state used to cross-check
// classification hypotheses. A nil map means the fact could not be fetched.
type GroundTruth struct {
	// KnownEntities is the set of tables present in the sink database.
	KnownEntities map[string]bool `json:"known_entities"`

	// Columns maps table -> column -> column type.
	Columns map[string]map[string]string `json:"columns,omitempty"`

	// ConnectorConfig is the sink connector's configuration.
	ConnectorConfig map[string]string `json:"connector_config"`
}

// HasEntities reports whether the known-entity set was supplied.
func (g GroundTruth) HasEntities() bool {
	return g.KnownEntities != nil
}

// HasConfig reports whether the connector configuration was supplied.
func (g GroundTruth) HasConfig() bool {
	return g.ConnectorConfig != nil
}

// ColumnType returns the sink column type for table.column, if known.
func (g GroundTruth) ColumnType(table, column string) (string, bool) {
	cols, ok := g.Columns[table]
	if !ok {
		return "", false
	}
	t, ok := cols[column]
	return t, ok
}
