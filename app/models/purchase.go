package models

import "time"

const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
)

// Purchase is an append-style audit row for a checkout session. The checkout
// session ID is the correlation key; payment-result events only ever move a
// row forward from pending.
type Purchase struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SubscriberID     uint      `gorm:"index" json:"subscriber_id"`
	StripeSessionID  string    `gorm:"type:varchar(191);uniqueIndex" json:"stripe_session_id"`
	StripeCustomerID string    `gorm:"type:varchar(191);index:idx_purchases_customer_status,priority:1" json:"stripe_customer_id"`
	AmountTotal      int64     `json:"amount_total"`
	Currency         string    `gorm:"type:varchar(8)" json:"currency"`
	Status           string    `gorm:"type:varchar(16);default:'pending';index:idx_purchases_customer_status,priority:2" json:"status"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanTransitionTo enforces pending -> completed|failed, never backwards.
func (p *Purchase) CanTransitionTo(status string) bool {
	if p.Status != PurchaseStatusPending {
		return false
	}
	return status == PurchaseStatusCompleted || status == PurchaseStatusFailed
}
