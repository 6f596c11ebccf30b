package models

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Message struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
	// Timestamp is epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// MessageCreate is the request body for appending a message.
type MessageCreate struct {
	Text string `json:"text"`
}
