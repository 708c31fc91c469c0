package chat

import "time"

// Turn is one entry in a session's chat log, authored by the user or the backend.
type Turn struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionId"`
	Text      string     `json:"text"`
	IsBot     bool       `json:"isBot"`
	Timestamp time.Time  `json:"timestamp"`
	Component *Component `json:"component,omitempty"`
	// ReplyTo holds the id of the user turn a bot turn answers.
	ReplyTo string `json:"replyTo,omitempty"`
}

// QueryResult is the normalized reply handed from a backend to the session controller.
type QueryResult struct {
	Text      string     `json:"text"`
	Component *Component `json:"component,omitempty"`
}
