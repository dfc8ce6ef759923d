package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v83"

	"github.com/atelier-logos/nabla/internal/pkg/entitlements"
	"github.com/atelier-logos/nabla/internal/pkg/env"
)

// ErrCustomerGone is returned when the payment processor no longer knows the
// customer, or knows it without an email address.
var ErrCustomerGone = errors.New("billing: customer not resolvable upstream")

// Gateway is the slice of the payment processor API the service needs.
// It exists so the webhook flow is testable without live credentials.
type Gateway interface {
	// CustomerEmail resolves a billing-customer ID to its email address.
	CustomerEmail(ctx context.Context, customerID string) (string, error)
	// ActivePriceIDs lists the price IDs on the customer's currently
	// active subscriptions.
	ActivePriceIDs(ctx context.Context, customerID string) ([]string, error)
}

type stripeGateway struct {
	client *stripe.Client
}

// NewStripeGateway wraps a configured stripe client.
func NewStripeGateway(client *stripe.Client) Gateway {
	return &stripeGateway{client: client}
}

// NewStripeGatewayFromEnv builds the gateway from STRIPE_SECRET_KEY.
func NewStripeGatewayFromEnv() Gateway {
	return NewStripeGateway(stripe.NewClient(env.GetEnv("STRIPE_SECRET_KEY", "")))
}

// PriceTableFromEnv reads the two sold price IDs.
func PriceTableFromEnv() entitlements.PriceTable {
	return entitlements.PriceTable{
		PremiumSupportPriceID: strings.TrimSpace(env.GetEnv("STRIPE_PREMIUM_SUPPORT_PRICE_ID", "")),
		CurationPlanPriceID:   strings.TrimSpace(env.GetEnv("STRIPE_CURATION_PLAN_PRICE_ID", "")),
	}
}

func (g *stripeGateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	cust, err := g.client.V1Customers.Retrieve(ctx, customerID, nil)
	if err != nil {
		return "", ErrCustomerGone
	}
	email := strings.TrimSpace(cust.Email)
	if email == "" {
		return "", ErrCustomerGone
	}
	return email, nil
}

func (g *stripeGateway) ActivePriceIDs(ctx context.Context, customerID string) ([]string, error) {
	params := &stripe.SubscriptionListParams{}
	params.Customer = stripe.String(customerID)
	params.Status = stripe.String("active")

	var priceIDs []string
	for sub, err := range g.client.V1Subscriptions.List(ctx, params) {
		if err != nil {
			return nil, err
		}
		if sub.Items == nil {
			continue
		}
		for _, item := range sub.Items.Data {
			if item.Price != nil {
				priceIDs = append(priceIDs, item.Price.ID)
			}
		}
	}
	return priceIDs, nil
}
