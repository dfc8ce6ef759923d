package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
)

// subscriberRepository implements the SubscriberRepository interface
type subscriberRepository struct {
	db *gorm.DB
}

// NewSubscriberRepository creates a new subscriber repository instance
func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

// Create creates a new subscriber in the database
func (r *subscriberRepository) Create(subscriber *models.Subscriber) error {
	return r.db.Create(subscriber).Error
}

// GetByID retrieves a subscriber by their ID
func (r *subscriberRepository) GetByID(id uint) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	err := r.db.First(&subscriber, id).Error
	if err != nil {
		return nil, err
	}
	return &subscriber, nil
}

// GetByEmail retrieves a subscriber by their email address
func (r *subscriberRepository) GetByEmail(email string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&subscriber).Error
	if err != nil {
		return nil, err
	}
	return &subscriber, nil
}

// Update updates an existing subscriber in the database
func (r *subscriberRepository) Update(subscriber *models.Subscriber) error {
	return r.db.Save(subscriber).Error
}

// Delete soft deletes a subscriber by their ID
func (r *subscriberRepository) Delete(id uint) error {
	return r.db.Delete(&models.Subscriber{}, id).Error
}

// ConsumeCuration decrements a finite curation quota in a single guarded
// UPDATE so two concurrent consumers cannot drive it below zero. Unlimited
// quotas never reach this statement.
func (r *subscriberRepository) ConsumeCuration(id uint) (bool, error) {
	tx := r.db.Model(&models.Subscriber{}).
		Where("id = ? AND curations > 0", id).
		UpdateColumn("curations", gorm.Expr("curations - 1"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Count returns the total number of subscribers
func (r *subscriberRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscriber{}).Count(&count).Error
	return count, err
}
