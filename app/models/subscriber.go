package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// UnlimitedCurations marks an entitlement without a curation cap.
	UnlimitedCurations = -1
	// DefaultCurations is the quota granted to subscribers without a plan.
	DefaultCurations = 3
)

// Subscriber is the identity record billing events reconcile against.
// Email is the join key coming back from the payment processor.
type Subscriber struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	FirstName        string         `gorm:"type:varchar(100)" json:"first_name" validate:"max=100"`
	LastName         string         `gorm:"type:varchar(100)" json:"last_name" validate:"max=100"`
	Email            string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password         string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Customer         bool           `gorm:"default:false;index" json:"customer"`
	Curations        int            `gorm:"default:3" json:"curations"`
	CurationPrompt   string         `gorm:"type:text" json:"curation_prompt"`
	StripeCustomerID string         `gorm:"type:varchar(191);index" json:"stripe_customer_id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Subscriber) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// CreateSubscriber builds a new subscriber with default entitlements.
func CreateSubscriber(firstName, lastName, email, password string) (*Subscriber, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	s := &Subscriber{
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  pw,
		Customer:  false,
		Curations: DefaultCurations,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPassword verifies the given password against the stored hash.
func (s *Subscriber) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.Password), []byte(password)) == nil
}

// DisplayName returns "First Last", falling back to the email address.
func (s *Subscriber) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Email
	}
	return name
}

// HasUnlimitedCurations reports whether the quota sentinel is set.
func (s *Subscriber) HasUnlimitedCurations() bool {
	return s.Curations == UnlimitedCurations
}

// CanCurate reports whether a curation may be consumed right now.
func (s *Subscriber) CanCurate() bool {
	return s.Curations == UnlimitedCurations || s.Curations > 0
}
