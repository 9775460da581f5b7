// Package events contains the WebSocket message contract between the
// TrawlScope server and dashboard clients.
package events

import (
	"time"

	"trawlscope/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Connection messages
	MessageTypeConnected MessageType = "connection"
	MessageTypeError     MessageType = "error"

	// Pipeline messages
	MessageTypeRunProgress MessageType = "run:progress"

	// Dataset messages
	MessageTypeDatasetRefreshed MessageType = "dataset:refreshed"
)

// Envelope is the wire shape of every message pushed to dashboard clients.
type Envelope struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ConnectionInfo greets a client after registration.
type ConnectionInfo struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	ClientID string `json:"client_id"`
}

// DatasetRefreshed tells dashboards to reload their series after a pipeline
// run published a new dataset.
type DatasetRefreshed struct {
	Records int `json:"records"`
	Species int `json:"species"`
}

// ErrorInfo carries a server-side error to the client.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewConnected builds the welcome message for a registered client.
func NewConnected(clientID string) Envelope {
	return Envelope{
		Type:      MessageTypeConnected,
		Timestamp: time.Now(),
		Data: ConnectionInfo{
			Status:   "connected",
			Message:  "Connected to TrawlScope",
			ClientID: clientID,
		},
	}
}

// NewRunProgress wraps a pipeline run progress event for broadcast.
func NewRunProgress(p domain.RunProgress) Envelope {
	return Envelope{
		Type:      MessageTypeRunProgress,
		Timestamp: time.Now(),
		Data:      p,
	}
}

// NewDatasetRefreshed wraps a dataset publication notice for broadcast.
func NewDatasetRefreshed(records, species int) Envelope {
	return Envelope{
		Type:      MessageTypeDatasetRefreshed,
		Timestamp: time.Now(),
		Data: DatasetRefreshed{
			Records: records,
			Species: species,
		},
	}
}

// NewError wraps a server-side error for delivery to a client.
func NewError(code, message string) Envelope {
	return Envelope{
		Type:      MessageTypeError,
		Timestamp: time.Now(),
		Data: ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}
