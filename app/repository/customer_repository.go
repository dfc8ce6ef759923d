package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
)

// customerRepository implements the CustomerRepository interface
type customerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new customer repository instance
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// Create creates a new customer in the database
func (r *customerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// GetByID retrieves a customer by their ID
func (r *customerRepository) GetByID(id string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByEmail retrieves a customer by their email address
func (r *customerRepository) GetByEmail(email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByAPIKeyHash resolves an active API key hash to its customer.
func (r *customerRepository) GetByAPIKeyHash(hash string) (*models.Customer, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var customer models.Customer
	err := r.db.
		Where("api_key_hash = ? AND api_key_hash <> '' AND api_key_revoked_at IS NULL", trimmed).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// Update updates an existing customer in the database
func (r *customerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}

// TouchAPIKeyUsage refreshes the key's last-used timestamp best-effort.
func (r *customerRepository) TouchAPIKeyUsage(id string, usedAt time.Time) error {
	return r.db.Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"api_key_last_used_at": usedAt}).Error
}
