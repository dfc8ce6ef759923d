package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atelier-logos/nabla/app/models"
)

// Repository provides the DB operations used by the billing service.
type Repository interface {
	GetSubscriberByID(id uint) (*models.Subscriber, error)
	GetSubscriberByEmail(email string) (*models.Subscriber, error)
	GetSubscriberByStripeCustomerID(customerID string) (*models.Subscriber, error)
	SaveSubscriberEntitlement(subscriberID uint, customer bool, curations int, stripeCustomerID string) error
	CreatePurchaseIfNotExists(p *models.Purchase) (bool, error)
	ResolveNewestPendingPurchase(stripeCustomerID string) (*models.Purchase, error)
	UpdatePurchaseStatus(id uint, status string) error
	GetCustomerByEmail(email string) (*models.Customer, error)
	CreateCustomer(c *models.Customer) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetSubscriberByID(id uint) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db.Where("email = ?", email).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) GetSubscriberByStripeCustomerID(customerID string) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.db.Where("stripe_customer_id = ?", customerID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) SaveSubscriberEntitlement(subscriberID uint, customer bool, curations int, stripeCustomerID string) error {
	updates := map[string]interface{}{
		"customer":   customer,
		"curations":  curations,
		"updated_at": time.Now(),
	}
	if stripeCustomerID != "" {
		updates["stripe_customer_id"] = stripeCustomerID
	}
	return r.db.Model(&models.Subscriber{}).Where("id = ?", subscriberID).Updates(updates).Error
}

func (r *gormRepository) CreatePurchaseIfNotExists(p *models.Purchase) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_session_id"}},
		DoNothing: true,
	}).Create(p)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ResolveNewestPendingPurchase(stripeCustomerID string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.
		Where("stripe_customer_id = ? AND status = ?", stripeCustomerID, models.PurchaseStatusPending).
		Order("created_at DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) UpdatePurchaseStatus(id uint, status string) error {
	return r.db.Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, models.PurchaseStatusPending).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *gormRepository) GetCustomerByEmail(email string) (*models.Customer, error) {
	var c models.Customer
	if err := r.db.Where("email = ?", email).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) CreateCustomer(c *models.Customer) error {
	return r.db.Create(c).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
