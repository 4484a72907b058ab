package domain

import (
	"strings"
	"time"

	"github.com/alumnihub/alumni-backend/internal/common"
)

// Message is a one-to-one chat message
type Message struct {
	ID           string    `bson:"_id" json:"id"`
	SenderID     string    `bson:"sender_id" json:"senderId"`
	ReceiverID   string    `bson:"receiver_id" json:"receiverId"`
	SenderRole   Role      `bson:"sender_role" json:"senderRole"`
	ReceiverRole Role      `bson:"receiver_role" json:"receiverRole"`
	Content      string    `bson:"content" json:"content"`
	Read         bool      `bson:"read" json:"read"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// PeerOf returns the other participant from userID's point of view
func (m *Message) PeerOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Between reports whether the message belongs to the (a, b) conversation in either direction
func (m *Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// SendMessageRequest is the body of a send operation
type SendMessageRequest struct {
	SenderID     string `json:"senderId"`
	ReceiverID   string `json:"receiverId"`
	SenderRole   Role   `json:"senderRole"`
	ReceiverRole Role   `json:"receiverRole"`
	Content      string `json:"content"`
}

// Validate checks the request shape
func (r *SendMessageRequest) Validate() error {
	if r.SenderID == "" {
		return common.NewValidationError("senderId", "is required")
	}
	if r.ReceiverID == "" {
		return common.NewValidationError("receiverId", "is required")
	}
	if r.SenderID == r.ReceiverID {
		return common.NewValidationError("receiverId", "must differ from senderId")
	}
	if strings.TrimSpace(r.Content) == "" {
		return common.NewValidationError("content", "must not be empty")
	}
	if !r.SenderRole.Valid() {
		return common.NewValidationError("senderRole", "must be student, teacher or alumni")
	}
	if !r.ReceiverRole.Valid() {
		return common.NewValidationError("receiverRole", "must be student, teacher or alumni")
	}
	return nil
}

// MarkReadResponse reports how many messages flipped to read
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// MessageStream is a standing live subscription to one conversation.
// Updates is closed when the stream ends; Err then reports why (nil after Close).
type MessageStream interface {
	Snapshot() []*Message
	Updates() <-chan *Message
	Err() error
	Close() error
}
