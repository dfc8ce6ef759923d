package controllers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/internal/pkg/billing"
)

// WebhookController receives payment-processor callbacks. Dependencies are
// injected so tests can run the full verify/dispatch path against fakes.
type WebhookController struct {
	billing       *billing.Service
	webhookSecret string
}

func NewWebhookController(svc *billing.Service, webhookSecret string) *WebhookController {
	return &WebhookController{billing: svc, webhookSecret: webhookSecret}
}

// HandleStripeWebhook verifies the signature, records the event once, and
// dispatches by event type. Bad signatures are the only 4xx path; everything
// after verification acknowledges with 200 so the processor stops retrying,
// with failures kept on the event row.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	body := c.Body()
	sigHeader := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(body, sigHeader, wc.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		fiberlog.Warnf("[Webhook] signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
	}

	created, stored, err := wc.billing.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(body),
		SignatureValid:  true,
	})
	if err != nil {
		fiberlog.Errorf("[Webhook] failed to record event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to record event"})
	}
	if !created {
		fiberlog.Infof("[Webhook] duplicate event %s ignored", event.ID)
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	procErr := wc.dispatch(c, &event)
	if procErr != nil {
		fiberlog.Warnf("[Webhook] event %s (%s) not applied: %v", event.ID, event.Type, procErr)
	}
	if err := wc.billing.MarkWebhookProcessed(c.Context(), stored.ID, procErr); err != nil {
		fiberlog.Errorf("[Webhook] failed to mark event %s processed: %v", event.ID, err)
	}

	return c.JSON(fiber.Map{"received": true})
}

func (wc *WebhookController) dispatch(c *fiber.Ctx, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		in, err := checkoutInputFromEvent(event)
		if err != nil {
			return err
		}
		return wc.billing.HandleCheckoutCompleted(c.Context(), in)
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		in, err := subscriptionInputFromEvent(event)
		if err != nil {
			return err
		}
		return wc.billing.HandleSubscriptionChanged(c.Context(), in)
	case "invoice.payment_succeeded":
		customerID, err := invoiceCustomerFromEvent(event)
		if err != nil {
			return err
		}
		return wc.billing.HandleInvoiceResult(c.Context(), customerID, true)
	case "invoice.payment_failed":
		customerID, err := invoiceCustomerFromEvent(event)
		if err != nil {
			return err
		}
		return wc.billing.HandleInvoiceResult(c.Context(), customerID, false)
	default:
		fiberlog.Infof("[Webhook] unhandled event type %s", event.Type)
		return nil
	}
}

func checkoutInputFromEvent(event *stripe.Event) (billing.CheckoutCompleted, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return billing.CheckoutCompleted{}, fmt.Errorf("unmarshal checkout session: %w", err)
	}

	in := billing.CheckoutCompleted{
		SessionID:    session.ID,
		AmountTotal:  session.AmountTotal,
		Currency:     string(session.Currency),
		Subscription: session.Mode == stripe.CheckoutSessionModeSubscription,
	}
	if session.Customer != nil {
		in.StripeCustomerID = session.Customer.ID
	}
	if session.CustomerDetails != nil {
		in.Email = strings.ToLower(strings.TrimSpace(session.CustomerDetails.Email))
	}
	if raw := session.Metadata["user_id"]; raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			in.SubscriberID = uint(id)
		}
	}
	in.Plan = session.Metadata["plan"]
	if in.Plan == "" {
		in.Plan = strings.TrimSpace(session.ClientReferenceID)
	}
	return in, nil
}

func subscriptionInputFromEvent(event *stripe.Event) (billing.SubscriptionChanged, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return billing.SubscriptionChanged{}, fmt.Errorf("unmarshal subscription: %w", err)
	}

	in := billing.SubscriptionChanged{Status: string(sub.Status)}
	if event.Type == "customer.subscription.deleted" {
		// Deleted subscriptions report their last status; force the
		// deactivation path.
		in.Status = "canceled"
	}
	if sub.Customer != nil {
		in.StripeCustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		in.PriceID = sub.Items.Data[0].Price.ID
	}
	return in, nil
}

func invoiceCustomerFromEvent(event *stripe.Event) (string, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return "", fmt.Errorf("unmarshal invoice: %w", err)
	}
	if invoice.Customer == nil {
		return "", nil
	}
	return invoice.Customer.ID, nil
}
