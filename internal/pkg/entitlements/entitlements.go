package entitlements

import (
	"strings"

	"github.com/atelier-logos/nabla/app/models"
)

// Plan identifies what a provider price maps to internally.
type Plan string

const (
	PlanPremiumSupport Plan = "premium_support"
	PlanCuration       Plan = "curation"
	PlanUnknown        Plan = "unknown"
)

// Entitlement is the derived pair stored on a subscriber: the paying-customer
// flag and the curation quota (−1 = unlimited).
type Entitlement struct {
	Customer  bool
	Curations int
}

// Free is the entitlement granted when no active subscription remains.
func Free() Entitlement {
	return Entitlement{Customer: false, Curations: models.DefaultCurations}
}

// PriceTable maps the two sold price IDs to their plans. The IDs come from
// the environment; the table is passed in so the decision logic stays pure.
type PriceTable struct {
	PremiumSupportPriceID string
	CurationPlanPriceID   string
}

// PlanFor classifies a provider price ID.
func (t PriceTable) PlanFor(priceID string) Plan {
	id := strings.TrimSpace(priceID)
	if id == "" {
		return PlanUnknown
	}
	switch id {
	case t.PremiumSupportPriceID:
		return PlanPremiumSupport
	case t.CurationPlanPriceID:
		return PlanCuration
	default:
		return PlanUnknown
	}
}

// IsEntitlingStatus reports whether a subscription status grants access.
// Trialing counts: checkout starts subscriptions in trial.
func IsEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	default:
		return false
	}
}

// ForActivePlan applies the decision table for an entitling subscription.
// The second return reports whether the plan was recognized; on an unknown
// plan the current entitlement is returned unchanged.
func ForActivePlan(plan Plan, current Entitlement) (Entitlement, bool) {
	switch plan {
	case PlanPremiumSupport:
		return Entitlement{Customer: true, Curations: models.UnlimitedCurations}, true
	case PlanCuration:
		return Entitlement{Customer: false, Curations: models.UnlimitedCurations}, true
	default:
		return current, false
	}
}

// FromActivePlans recomputes the entitlement from the full set of plans the
// customer still has active. Premium wins over curation; nothing active
// falls back to the free default.
func FromActivePlans(plans []Plan) Entitlement {
	hasPremium := false
	hasCuration := false
	for _, p := range plans {
		switch p {
		case PlanPremiumSupport:
			hasPremium = true
		case PlanCuration:
			hasCuration = true
		}
	}

	switch {
	case hasPremium:
		return Entitlement{Customer: true, Curations: models.UnlimitedCurations}
	case hasCuration:
		return Entitlement{Customer: false, Curations: models.UnlimitedCurations}
	default:
		return Free()
	}
}

// SubscriptionType names the stored pair for display purposes.
func SubscriptionType(e Entitlement) string {
	switch {
	case e.Customer && e.Curations == models.UnlimitedCurations:
		return "premium"
	case !e.Customer && e.Curations == models.UnlimitedCurations:
		return "curation"
	default:
		return "free"
	}
}

// DisplayName returns the marketing name for the subscription type.
func DisplayName(e Entitlement) string {
	switch SubscriptionType(e) {
	case "premium":
		return "Premium Support"
	case "curation":
		return "Curation Plan"
	default:
		return "Free"
	}
}
