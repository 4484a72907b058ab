package domain

import "time"

// MessagePreview is the subset of a Message shown in a conversation list
type MessagePreview struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	SenderID  string    `json:"senderId"`
}

// ConversationSummary is a derived per-peer view over Message records
type ConversationSummary struct {
	PeerUserID      string          `json:"peerUserId"`
	PeerDisplayName string          `json:"peerDisplayName"`
	PeerRole        Role            `json:"peerRole,omitempty"`
	LastMessage     *MessagePreview `json:"lastMessage"`
	UnreadCount     int             `json:"unreadCount"`
}
