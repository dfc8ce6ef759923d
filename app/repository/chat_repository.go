package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
)

// chatRepository implements the ChatRepository interface
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository instance
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// CreateRoom creates a new chat room
func (r *chatRepository) CreateRoom(room *models.ChatRoom) error {
	return r.db.Create(room).Error
}

// GetRoomByID retrieves a room by its ID
func (r *chatRepository) GetRoomByID(id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.Where("id = ?", id).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoomBySubscriberID retrieves the subscriber's room
func (r *chatRepository) GetRoomBySubscriberID(subscriberID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.Where("subscriber_id = ?", subscriberID).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// TouchRoomLastMessage updates the room's last-activity marker
func (r *chatRepository) TouchRoomLastMessage(roomID string, at time.Time) error {
	return r.db.Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{"last_message_at": at}).Error
}

// CreateMessage stores a chat message
func (r *chatRepository) CreateMessage(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

// ListMessages returns the newest messages for a room, oldest first
func (r *chatRepository) ListMessages(roomID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []models.ChatMessage
	err := r.db.
		Where("chat_room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
