package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/internal/pkg/billing"
	"github.com/atelier-logos/nabla/internal/pkg/entitlements"
)

const testWebhookSecret = "whsec_test_secret"

// stripeSignature builds the v1 signature header for a payload, the same
// scheme the processor uses: HMAC-SHA256 over "<timestamp>.<payload>".
func stripeSignature(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func signedWebhookRequest(payload string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", stripeSignature(testWebhookSecret, []byte(payload), time.Now()))
	return req
}

type billingFakeRepo struct {
	subscribers []*models.Subscriber
	purchases   []*models.Purchase
	customers   []*models.Customer
	events      []*models.BillingWebhookEvent
	nextID      uint
}

func newBillingFakeRepo() *billingFakeRepo {
	return &billingFakeRepo{nextID: 1}
}

func (r *billingFakeRepo) GetSubscriberByID(id uint) (*models.Subscriber, error) {
	for _, s := range r.subscribers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *billingFakeRepo) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	for _, s := range r.subscribers {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *billingFakeRepo) GetSubscriberByStripeCustomerID(customerID string) (*models.Subscriber, error) {
	for _, s := range r.subscribers {
		if s.StripeCustomerID == customerID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *billingFakeRepo) SaveSubscriberEntitlement(subscriberID uint, customer bool, curations int, stripeCustomerID string) error {
	for _, s := range r.subscribers {
		if s.ID == subscriberID {
			s.Customer = customer
			s.Curations = curations
			if stripeCustomerID != "" {
				s.StripeCustomerID = stripeCustomerID
			}
		}
	}
	return nil
}

func (r *billingFakeRepo) CreatePurchaseIfNotExists(p *models.Purchase) (bool, error) {
	for _, existing := range r.purchases {
		if existing.StripeSessionID == p.StripeSessionID {
			return false, nil
		}
	}
	p.ID = r.nextID
	r.nextID++
	r.purchases = append(r.purchases, p)
	return true, nil
}

func (r *billingFakeRepo) ResolveNewestPendingPurchase(stripeCustomerID string) (*models.Purchase, error) {
	for i := len(r.purchases) - 1; i >= 0; i-- {
		p := r.purchases[i]
		if p.StripeCustomerID == stripeCustomerID && p.Status == models.PurchaseStatusPending {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *billingFakeRepo) UpdatePurchaseStatus(id uint, status string) error {
	for _, p := range r.purchases {
		if p.ID == id && p.Status == models.PurchaseStatusPending {
			p.Status = status
		}
	}
	return nil
}

func (r *billingFakeRepo) GetCustomerByEmail(email string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *billingFakeRepo) CreateCustomer(c *models.Customer) error {
	r.customers = append(r.customers, c)
	return nil
}

func (r *billingFakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	for _, existing := range r.events {
		if existing.Provider == event.Provider && existing.ProviderEventID == event.ProviderEventID {
			return false, existing, nil
		}
	}
	event.ID = r.nextID
	r.nextID++
	r.events = append(r.events, event)
	return true, event, nil
}

func (r *billingFakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	for _, e := range r.events {
		if e.ID == id {
			e.ProcessedAt = &now
			e.ProcessingError = processingError
		}
	}
	return nil
}

type billingFakeGateway struct {
	emails       map[string]string
	activePrices map[string][]string
}

func (g *billingFakeGateway) CustomerEmail(_ context.Context, customerID string) (string, error) {
	if email, ok := g.emails[customerID]; ok && email != "" {
		return email, nil
	}
	return "", billing.ErrCustomerGone
}

func (g *billingFakeGateway) ActivePriceIDs(_ context.Context, customerID string) ([]string, error) {
	return g.activePrices[customerID], nil
}

func newWebhookTestApp(repo *billingFakeRepo, gw *billingFakeGateway) *fiber.App {
	if gw == nil {
		gw = &billingFakeGateway{}
	}
	svc := billing.NewService(repo, gw, entitlements.PriceTable{
		PremiumSupportPriceID: "price_premium",
		CurationPlanPriceID:   "price_curation",
	}, nil)
	wc := NewWebhookController(svc, testWebhookSecret)

	app := fiber.New()
	app.Post("/api/webhooks/stripe", wc.HandleStripeWebhook)
	return app
}

func TestHandleStripeWebhookCheckoutCompleted(t *testing.T) {
	repo := newBillingFakeRepo()
	repo.subscribers = append(repo.subscribers, &models.Subscriber{
		ID: 7, Email: "jane@example.com", Curations: 3,
	})
	app := newWebhookTestApp(repo, nil)

	payload := `{
		"id": "evt_checkout_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"mode": "subscription",
			"customer": "cus_1",
			"amount_total": 2900,
			"currency": "usd",
			"customer_details": {"email": "jane@example.com"},
			"metadata": {"user_id": "7"}
		}}
	}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["received"])

	require.Len(t, repo.events, 1)
	assert.Equal(t, "evt_checkout_1", repo.events[0].ProviderEventID)
	assert.True(t, repo.events[0].SignatureValid)
	require.NotNil(t, repo.events[0].ProcessedAt)
	assert.Empty(t, repo.events[0].ProcessingError)

	sub := repo.subscribers[0]
	assert.True(t, sub.Customer)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)

	require.Len(t, repo.purchases, 1)
	assert.Equal(t, "cs_test_1", repo.purchases[0].StripeSessionID)
	assert.Equal(t, models.PurchaseStatusPending, repo.purchases[0].Status)
}

func TestHandleStripeWebhookCheckoutResolvesByMetadataUserID(t *testing.T) {
	repo := newBillingFakeRepo()
	repo.subscribers = append(repo.subscribers, &models.Subscriber{
		ID: 7, Email: "jane@example.com", Curations: 3,
	})
	app := newWebhookTestApp(repo, nil)

	// Paid with a card under a different email; metadata still names the account.
	payload := `{
		"id": "evt_checkout_meta",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_meta",
			"mode": "subscription",
			"customer": "cus_meta",
			"customer_details": {"email": "billing@corp.example.com"},
			"metadata": {"user_id": "7"}
		}}
	}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sub := repo.subscribers[0]
	assert.True(t, sub.Customer)
	assert.Equal(t, "cus_meta", sub.StripeCustomerID)
	require.Len(t, repo.purchases, 1)
	assert.Equal(t, uint(7), repo.purchases[0].SubscriberID)
}

func TestHandleStripeWebhookRejectsTamperedPayload(t *testing.T) {
	repo := newBillingFakeRepo()
	app := newWebhookTestApp(repo, nil)

	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	// Signature computed over a different body.
	req.Header.Set("Stripe-Signature", stripeSignature(testWebhookSecret, []byte(`{"tampered":true}`), time.Now()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "invalid signature", body["error"])

	// Nothing was recorded or applied.
	assert.Empty(t, repo.events)
	assert.Empty(t, repo.purchases)
}

func TestHandleStripeWebhookRejectsWrongSecret(t *testing.T) {
	repo := newBillingFakeRepo()
	app := newWebhookTestApp(repo, nil)

	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", stripeSignature("whsec_other", []byte(payload), time.Now()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, repo.events)
}

func TestHandleStripeWebhookDuplicateDelivery(t *testing.T) {
	repo := newBillingFakeRepo()
	repo.subscribers = append(repo.subscribers, &models.Subscriber{
		ID: 7, Email: "jane@example.com", Curations: 3,
	})
	app := newWebhookTestApp(repo, nil)

	payload := `{
		"id": "evt_dup",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_dup",
			"mode": "subscription",
			"customer": "cus_1",
			"customer_details": {"email": "jane@example.com"}
		}}
	}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["duplicate"])

	assert.Len(t, repo.events, 1)
	assert.Len(t, repo.purchases, 1)
}

func TestHandleStripeWebhookSubscriptionUpdated(t *testing.T) {
	repo := newBillingFakeRepo()
	repo.subscribers = append(repo.subscribers, &models.Subscriber{
		ID: 7, StripeCustomerID: "cus_1", Curations: 3,
	})
	app := newWebhookTestApp(repo, nil)

	payload := `{
		"id": "evt_sub_1",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"customer": "cus_1",
			"status": "active",
			"items": {"data": [{"price": {"id": "price_premium"}}]}
		}}
	}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sub := repo.subscribers[0]
	assert.True(t, sub.Customer)
	assert.Equal(t, models.UnlimitedCurations, sub.Curations)
}

func TestHandleStripeWebhookSubscriptionDeleted(t *testing.T) {
	repo := newBillingFakeRepo()
	repo.subscribers = append(repo.subscribers, &models.Subscriber{
		ID: 7, StripeCustomerID: "cus_1", Customer: true, Curations: models.UnlimitedCurations,
	})
	app := newWebhookTestApp(repo, &billingFakeGateway{})

	// Deleted events carry the last known status; deactivation must run anyway.
	payload := `{
		"id": "evt_sub_del",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {"object": {
			"customer": "cus_1",
			"status": "active",
			"items": {"data": [{"price": {"id": "price_premium"}}]}
		}}
	}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sub := repo.subscribers[0]
	assert.False(t, sub.Customer)
	assert.Equal(t, models.DefaultCurations, sub.Curations)
}

func TestHandleStripeWebhookInvoicePaymentSucceeded(t *testing.T) {
	repo := newBillingFakeRepo()
	repo.purchases = append(repo.purchases, &models.Purchase{
		ID: 1, StripeCustomerID: "cus_1", StripeSessionID: "cs_1", Status: models.PurchaseStatusPending,
	})
	app := newWebhookTestApp(repo, nil)

	payload := `{
		"id": "evt_inv_1",
		"object": "event",
		"type": "invoice.payment_succeeded",
		"data": {"object": {"customer": "cus_1"}}
	}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.PurchaseStatusCompleted, repo.purchases[0].Status)
}

func TestHandleStripeWebhookUnhandledTypeAcknowledged(t *testing.T) {
	repo := newBillingFakeRepo()
	app := newWebhookTestApp(repo, nil)

	payload := `{"id":"evt_other","object":"event","type":"customer.created","data":{"object":{}}}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Still recorded for the audit trail.
	require.Len(t, repo.events, 1)
	assert.Equal(t, "customer.created", repo.events[0].EventType)
}

func TestHandleStripeWebhookProcessingFailureStillAcknowledged(t *testing.T) {
	repo := newBillingFakeRepo()
	// No subscriber and no gateway email: subscription handling cannot resolve.
	app := newWebhookTestApp(repo, &billingFakeGateway{})

	payload := `{
		"id": "evt_sub_orphan",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"customer": "cus_orphan",
			"status": "active",
			"items": {"data": [{"price": {"id": "price_premium"}}]}
		}}
	}`

	resp, err := app.Test(signedWebhookRequest(payload))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, repo.events, 1)
	assert.NotEmpty(t, repo.events[0].ProcessingError)
}
