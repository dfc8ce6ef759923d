package repository

import (
	"time"

	"github.com/atelier-logos/nabla/app/models"
)

// SubscriberRepository defines the interface for subscriber-related database operations
type SubscriberRepository interface {
	Create(subscriber *models.Subscriber) error
	GetByID(id uint) (*models.Subscriber, error)
	GetByEmail(email string) (*models.Subscriber, error)
	Update(subscriber *models.Subscriber) error
	Delete(id uint) error
	// ConsumeCuration atomically decrements a finite quota. Returns false
	// when nothing was consumed because the quota was already exhausted.
	ConsumeCuration(id uint) (bool, error)
	Count() (int64, error)
}

// CustomerRepository defines the interface for API customer operations
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(id string) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	GetByAPIKeyHash(hash string) (*models.Customer, error)
	Update(customer *models.Customer) error
	TouchAPIKeyUsage(id string, usedAt time.Time) error
}

// ChatRepository defines the interface for chat room and message operations
type ChatRepository interface {
	CreateRoom(room *models.ChatRoom) error
	GetRoomByID(id string) (*models.ChatRoom, error)
	GetRoomBySubscriberID(subscriberID uint) (*models.ChatRoom, error)
	TouchRoomLastMessage(roomID string, at time.Time) error
	CreateMessage(message *models.ChatMessage) error
	ListMessages(roomID string, limit int) ([]models.ChatMessage, error)
}

// PurchaseRepository defines the interface for purchase ledger reads
type PurchaseRepository interface {
	GetBySubscriberID(subscriberID uint) ([]models.Purchase, error)
	GetByStripeSessionID(sessionID string) (*models.Purchase, error)
}
