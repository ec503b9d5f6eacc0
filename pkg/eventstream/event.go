// Package eventstream publishes model lifecycle events so downstream
// consumers can react to retrains without polling the session store.
package eventstream

import "time"

const (
	// SchemaVersionV1 tags the current event payload layout.
	SchemaVersionV1 = 1

	// EventTypeModelTrained is emitted after a train completes and the
	// session row is persisted.
	EventTypeModelTrained = "model.trained"
)

// ModelTrainedEvent describes one completed training run.
type ModelTrainedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	SessionID     string    `json:"session_id"`
	Algorithm     string    `json:"algorithm"`
	ModelVersion  string    `json:"model_version"`
	ItemCount     int       `json:"item_count"`
	TrainedAt     time.Time `json:"trained_at"`
}

// NewModelTrainedEvent fills in the envelope fields.
func NewModelTrainedEvent(sessionID, algorithm, modelVersion string, itemCount int) *ModelTrainedEvent {
	return &ModelTrainedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeModelTrained,
		SessionID:     sessionID,
		Algorithm:     algorithm,
		ModelVersion:  modelVersion,
		ItemCount:     itemCount,
		TrainedAt:     time.Now().UTC(),
	}
}
