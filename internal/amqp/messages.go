package amqp

import (
	"encoding/json"
	"time"
)

// GenerationLoadedMessage announces that the loader stored a new record
// generation. Consumers fetch the generation from the database, the message
// carries only its identity.
type GenerationLoadedMessage struct {
	GenerationID string    `json:"generation_id"`
	RecordCount  int       `json:"record_count"`
	SourceFile   string    `json:"source_file"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewGenerationLoadedMessage creates a notification for a freshly stored
// generation.
func NewGenerationLoadedMessage(generationID, sourceFile string, recordCount int) *GenerationLoadedMessage {
	return &GenerationLoadedMessage{
		GenerationID: generationID,
		RecordCount:  recordCount,
		SourceFile:   sourceFile,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *GenerationLoadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func GenerationLoadedMessageFromJSON(data []byte) (*GenerationLoadedMessage, error) {
	var msg GenerationLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
