package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/internal/pkg/entitlements"
	"github.com/atelier-logos/nabla/internal/pkg/env"
	"github.com/atelier-logos/nabla/internal/pkg/jobqueue"
)

// ErrNoSubscriber is returned when a billing customer cannot be matched to a
// local subscriber record.
var ErrNoSubscriber = errors.New("billing: no subscriber for billing customer")

// JobEnqueuer hands best-effort work to the background queue. Satisfied by
// jobqueue.Queue; nil disables the notifications.
type JobEnqueuer interface {
	EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// Service reconciles payment-processor webhook events into subscriber
// entitlements and the purchase ledger.
type Service struct {
	repo   Repository
	gw     Gateway
	prices entitlements.PriceTable
	jobs   JobEnqueuer
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, gw Gateway, prices entitlements.PriceTable, jobs JobEnqueuer) *Service {
	return &Service{repo: repo, gw: gw, prices: prices, jobs: jobs}
}

// NewServiceFromDB creates a billing service with the env-configured gateway.
func NewServiceFromDB(db *gorm.DB, jobs JobEnqueuer) *Service {
	return NewService(NewRepository(db), NewStripeGatewayFromEnv(), PriceTableFromEnv(), jobs)
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without a
// provider event ID are keyed by a payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// HandleCheckoutCompleted upgrades the purchasing subscriber, opens a pending
// purchase row keyed by the checkout session, and provisions an API customer
// when the session names a plan.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, in CheckoutCompleted) error {
	if !in.Subscription {
		return nil
	}

	sub, err := s.resolveCheckoutSubscriber(ctx, in)
	if err != nil {
		return err
	}
	if sub != nil {
		if err := s.repo.SaveSubscriberEntitlement(sub.ID, true, sub.Curations, in.StripeCustomerID); err != nil {
			return err
		}

		purchase := &models.Purchase{
			SubscriberID:     sub.ID,
			StripeSessionID:  in.SessionID,
			StripeCustomerID: in.StripeCustomerID,
			AmountTotal:      in.AmountTotal,
			Currency:         in.Currency,
			Status:           models.PurchaseStatusPending,
		}
		// Redelivered checkout events hit the session-ID unique index
		// and insert nothing.
		created, err := s.repo.CreatePurchaseIfNotExists(purchase)
		if err != nil {
			return err
		}
		if created {
			s.enqueueUpgradeEmail(sub, "Premium Support")
		}
	}

	if in.Plan != "" {
		return s.provisionCustomer(in)
	}
	return nil
}

// HandleSubscriptionChanged applies the entitlement decision table for a
// subscription lifecycle event. Re-applying the same event yields the same
// stored values.
func (s *Service) HandleSubscriptionChanged(ctx context.Context, in SubscriptionChanged) error {
	sub, err := s.resolveSubscriber(ctx, in.StripeCustomerID)
	if err != nil {
		return err
	}

	current := entitlements.Entitlement{Customer: sub.Customer, Curations: sub.Curations}

	var next entitlements.Entitlement
	if entitlements.IsEntitlingStatus(in.Status) {
		plan := s.prices.PlanFor(in.PriceID)
		ent, known := entitlements.ForActivePlan(plan, current)
		if !known {
			// Unrecognized price: leave the stored pair untouched.
			return nil
		}
		next = ent
	} else {
		// Deactivation: recompute from whatever is still active upstream.
		priceIDs, err := s.gw.ActivePriceIDs(ctx, in.StripeCustomerID)
		if err != nil {
			return err
		}
		plans := make([]entitlements.Plan, 0, len(priceIDs))
		for _, id := range priceIDs {
			plans = append(plans, s.prices.PlanFor(id))
		}
		next = entitlements.FromActivePlans(plans)
	}

	if next == current {
		return nil
	}
	if err := s.repo.SaveSubscriberEntitlement(sub.ID, next.Customer, next.Curations, in.StripeCustomerID); err != nil {
		return err
	}
	if entitlements.IsEntitlingStatus(in.Status) {
		s.enqueueUpgradeEmail(sub, entitlements.DisplayName(next))
	}
	return nil
}

// enqueueUpgradeEmail queues the plan confirmation email. Delivery is best
// effort; a failed enqueue only gets logged.
func (s *Service) enqueueUpgradeEmail(sub *models.Subscriber, planName string) {
	if s.jobs == nil || sub.Email == "" {
		return
	}
	payload := jobqueue.UpgradeEmailJobPayload{
		Email: sub.Email,
		Name:  sub.DisplayName(),
		Plan:  planName,
	}
	if _, err := s.jobs.EnqueueJob(jobqueue.JobTypeUpgradeEmail, payload.ToMap()); err != nil {
		fiberlog.Warnf("[Billing] upgrade email enqueue failed for subscriber %d: %v", sub.ID, err)
	}
}

// HandleInvoiceResult settles the newest pending purchase for the billing
// customer. Events without a pending row to correlate are ignored.
func (s *Service) HandleInvoiceResult(ctx context.Context, stripeCustomerID string, succeeded bool) error {
	_ = ctx
	if strings.TrimSpace(stripeCustomerID) == "" {
		return nil
	}

	purchase, err := s.repo.ResolveNewestPendingPurchase(stripeCustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	status := models.PurchaseStatusCompleted
	if !succeeded {
		status = models.PurchaseStatusFailed
	}
	if !purchase.CanTransitionTo(status) {
		return nil
	}
	return s.repo.UpdatePurchaseStatus(purchase.ID, status)
}

// resolveSubscriber maps a billing-customer ID to a subscriber: first by the
// denormalized customer reference, then by the upstream email address.
func (s *Service) resolveSubscriber(ctx context.Context, stripeCustomerID string) (*models.Subscriber, error) {
	if strings.TrimSpace(stripeCustomerID) == "" {
		return nil, ErrNoSubscriber
	}

	sub, err := s.repo.GetSubscriberByStripeCustomerID(stripeCustomerID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email, err := s.gw.CustomerEmail(ctx, stripeCustomerID)
	if err != nil {
		return nil, err
	}
	sub, err = s.repo.GetSubscriberByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSubscriber
		}
		return nil, err
	}
	return sub, nil
}

// resolveCheckoutSubscriber finds the purchasing subscriber. The session
// metadata carries the account ID and wins: the payment email can be a
// different address than the account.
func (s *Service) resolveCheckoutSubscriber(ctx context.Context, in CheckoutCompleted) (*models.Subscriber, error) {
	if in.SubscriberID != 0 {
		sub, err := s.repo.GetSubscriberByID(in.SubscriberID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if in.Email != "" {
		sub, err := s.repo.GetSubscriberByEmail(in.Email)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if in.StripeCustomerID == "" {
		return nil, nil
	}
	sub, err := s.resolveSubscriber(ctx, in.StripeCustomerID)
	if err != nil {
		if errors.Is(err, ErrNoSubscriber) || errors.Is(err, ErrCustomerGone) {
			// Checkout can precede signup; provisioning still proceeds.
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// provisionCustomer creates a minimal API customer for a plan bought through
// a hosted checkout link, so onboarding can finish it later.
func (s *Service) provisionCustomer(in CheckoutCompleted) error {
	if in.Email != "" {
		if _, err := s.repo.GetCustomerByEmail(in.Email); err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	customer := &models.Customer{
		ID:                 uuid.New().String(),
		Name:               in.Plan + " Customer",
		Email:              in.Email,
		Plan:               in.Plan,
		RateLimitPerMinute: models.PlanRateLimit(in.Plan),
		CheckoutSessionID:  in.SessionID,
		StripeCustomerID:   in.StripeCustomerID,
		Onboarded:          false,
	}
	if _, err := customer.IssueAPIKey(); err != nil {
		return err
	}
	return s.repo.CreateCustomer(customer)
}

// WebhookSecretFromEnv reads the shared webhook signing secret.
func WebhookSecretFromEnv() string {
	return strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
}
