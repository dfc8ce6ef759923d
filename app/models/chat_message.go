package models

import "time"

const (
	SenderTypeUser    = "user"
	SenderTypeSupport = "support"
)

// Attachment kinds, inferred from the MIME type at the upload boundary.
const (
	AttachmentTypeImage = "image"
	AttachmentTypeVideo = "video"
	AttachmentTypeAudio = "audio"
	AttachmentTypeFile  = "file"
)

// ChatMessage is a persisted support-chat message, optionally carrying one
// attachment stored in object storage.
type ChatMessage struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	ChatRoomID         string    `gorm:"type:char(36);index" json:"chat_room_id"`
	SenderID           uint      `gorm:"index" json:"sender_id"`
	SenderType         string    `gorm:"type:varchar(16);default:'user'" json:"sender_type"`
	Message            string    `gorm:"type:text" json:"message"`
	AttachmentType     string    `gorm:"type:varchar(16)" json:"attachment_type,omitempty"`
	AttachmentURL      string    `gorm:"type:varchar(500)" json:"attachment_url,omitempty"`
	AttachmentFilename string    `gorm:"type:varchar(255)" json:"attachment_filename,omitempty"`
	AttachmentSize     int64     `json:"attachment_size,omitempty"`
	AttachmentMimeType string    `gorm:"type:varchar(100)" json:"attachment_mime_type,omitempty"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HasContent reports whether the message carries text or an attachment.
func (m *ChatMessage) HasContent() bool {
	return m.Message != "" || m.AttachmentURL != ""
}
