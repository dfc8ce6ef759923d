package models

import "time"

// ChatRoom is a support conversation owned by one subscriber. Room IDs are
// UUIDs because they travel in realtime channel names.
type ChatRoom struct {
	ID            string     `gorm:"type:char(36);primaryKey" json:"id"`
	SubscriberID  uint       `gorm:"uniqueIndex" json:"subscriber_id"`
	LastMessageAt *time.Time `gorm:"type:timestamp;default:null" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChannelName returns the realtime channel clients subscribe to.
func (r *ChatRoom) ChannelName() string {
	return "chat-" + r.ID
}
