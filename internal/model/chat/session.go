package chat

import "time"

// HostContext carries the host application's view of who is chatting and where.
type HostContext struct {
	TeamID    string `json:"teamId,omitempty"`
	ChannelID string `json:"channelId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// Session captures a transient in-memory conversation.
type Session struct {
	ID string `json:"id"`
	HostContext
	CreatedAt time.Time `json:"createdAt"`
}
