package repository

import (
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
)

// purchaseRepository implements the PurchaseRepository interface
type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a new purchase repository instance
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// GetBySubscriberID returns a subscriber's purchases, newest first
func (r *purchaseRepository) GetBySubscriberID(subscriberID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.
		Where("subscriber_id = ?", subscriberID).
		Order("created_at DESC").
		Find(&purchases).Error
	return purchases, err
}

// GetByStripeSessionID returns the purchase created from a checkout session
func (r *purchaseRepository) GetByStripeSessionID(sessionID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.Where("stripe_session_id = ?", sessionID).First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
