package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Plan names as sold on the marketing site.
const (
	PlanCrateIntelligence = "Crate Intelligence"
	PlanSBOMBuilder       = "SBOM Builder"
	PlanBinaryAnalysis    = "Binary Analysis"
)

// TrialDuration is the onboarding trial window.
const TrialDuration = 14 * 24 * time.Hour

const apiKeyPrefix = "nabla_"

// Customer is a provisioned API customer created by onboarding or by the
// checkout webhook. The raw API key is returned exactly once; only its
// SHA-256 hash is stored.
type Customer struct {
	ID                 string     `gorm:"type:char(36);primaryKey" json:"id"`
	Name               string     `gorm:"type:varchar(200)" json:"name"`
	Email              string     `gorm:"type:varchar(200);index" json:"email"`
	Plan               string     `gorm:"type:varchar(50)" json:"plan"`
	OrgSlug            string     `gorm:"type:varchar(100);index" json:"org_slug"`
	APIKeyHash         string     `gorm:"type:char(64);index" json:"-"`
	APIKeyPrefix       string     `gorm:"type:varchar(20)" json:"api_key_prefix"`
	APIKeyCreatedAt    *time.Time `json:"api_key_created_at,omitempty"`
	APIKeyLastUsedAt   *time.Time `json:"api_key_last_used_at,omitempty"`
	APIKeyRevokedAt    *time.Time `json:"api_key_revoked_at,omitempty"`
	RateLimitPerMinute int        `gorm:"default:60" json:"rate_limit_per_minute"`
	TrialStarted       *time.Time `gorm:"type:timestamp;default:null" json:"trial_started,omitempty"`
	TrialEnd           *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	NextInvoice        *time.Time `gorm:"type:timestamp;default:null" json:"next_invoice,omitempty"`
	CheckoutSessionID  string     `gorm:"type:varchar(191);index" json:"checkout_session_id"`
	StripeCustomerID   string     `gorm:"type:varchar(191);index" json:"stripe_customer_id"`
	Onboarded          bool       `gorm:"default:false" json:"onboarded"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PlanRateLimit maps a plan name to its per-minute API rate limit.
func PlanRateLimit(plan string) int {
	switch plan {
	case PlanCrateIntelligence:
		return 60
	case PlanSBOMBuilder:
		return 120
	case PlanBinaryAnalysis:
		return 30
	default:
		return 60
	}
}

// IssueAPIKey generates a new API key, persists its metadata on the struct,
// and returns the raw secret. Callers must save the struct afterwards.
func (c *Customer) IssueAPIKey() (string, error) {
	rawKey, prefix, hash, err := generateAPIKeyMaterial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	c.APIKeyHash = hash
	c.APIKeyPrefix = prefix
	c.APIKeyCreatedAt = &now
	c.APIKeyRevokedAt = nil
	c.APIKeyLastUsedAt = nil
	return rawKey, nil
}

// RevokeAPIKey clears the stored API key material without deleting the row.
func (c *Customer) RevokeAPIKey() {
	c.APIKeyHash = ""
	c.APIKeyPrefix = ""
	now := time.Now()
	c.APIKeyRevokedAt = &now
	c.APIKeyLastUsedAt = nil
}

// HasActiveAPIKey reports whether the customer holds a usable key.
func (c *Customer) HasActiveAPIKey() bool {
	return c != nil && c.APIKeyHash != "" && c.APIKeyRevokedAt == nil
}

// TrialActive reports whether the trial window covers the given instant.
func (c *Customer) TrialActive(now time.Time) bool {
	if c.TrialStarted == nil || c.TrialEnd == nil {
		return false
	}
	return !now.Before(*c.TrialStarted) && now.Before(*c.TrialEnd)
}

// StartTrial sets the 14-day trial window from the given instant.
func (c *Customer) StartTrial(now time.Time) {
	end := now.Add(TrialDuration)
	c.TrialStarted = &now
	c.TrialEnd = &end
	c.NextInvoice = &end
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func generateAPIKeyMaterial() (string, string, string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	rawKey := apiKeyPrefix + hex.EncodeToString(b)
	if len(rawKey) < 12 {
		return "", "", "", fmt.Errorf("api key generation failed: key too short")
	}
	prefix := rawKey[:min(len(rawKey), 16)]
	hash := HashAPIKey(rawKey)
	return rawKey, prefix, hash, nil
}
