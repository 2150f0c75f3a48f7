package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// FileUploadedMessage announces a stored upload waiting to be ingested.
// It carries only identifiers; the worker loads the record and blob itself.
type FileUploadedMessage struct {
	FileID    string    `json:"file_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

var errMissingFileID = errors.New("message has no file_id")

// NewFileUploadedMessage creates a message stamped with the current time
func NewFileUploadedMessage(fileID, userID string) *FileUploadedMessage {
	return &FileUploadedMessage{
		FileID:    fileID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *FileUploadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FileUploadedMessageFromJSON decodes a message and rejects one without a file ID
func FileUploadedMessageFromJSON(data []byte) (*FileUploadedMessage, error) {
	var msg FileUploadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.FileID == "" {
		return nil, errMissingFileID
	}
	return &msg, nil
}
