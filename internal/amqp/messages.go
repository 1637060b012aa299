package amqp

import (
	"encoding/json"
	"time"
)

// SubmissionExportMessage is the lightweight queue message for exporting a
// stored submission. It carries only the id and version; the worker loads the
// full submission from the database.
type SubmissionExportMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSubmissionExportMessage(id, version int64) *SubmissionExportMessage {
	return &SubmissionExportMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SubmissionExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SubmissionExportMessageFromJSON creates a message from JSON bytes.
func SubmissionExportMessageFromJSON(data []byte) (*SubmissionExportMessage, error) {
	var msg SubmissionExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
