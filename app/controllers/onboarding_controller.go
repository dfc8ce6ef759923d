package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/app/repository"
	"github.com/atelier-logos/nabla/internal/pkg/jobqueue"
	"github.com/atelier-logos/nabla/internal/pkg/mail"
)

// FollowUpDelay is how long after onboarding the check-in email goes out.
const FollowUpDelay = 14 * 24 * time.Hour

// Scheduler enqueues immediate and delayed background jobs. Satisfied by
// jobqueue.Queue.
type Scheduler interface {
	EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
	EnqueueJobAt(jobType jobqueue.JobType, payload map[string]interface{}, runAt time.Time) (*jobqueue.Job, error)
}

// OnboardingController provisions API customers: key, trial window, welcome
// email, and a scheduled follow-up.
type OnboardingController struct {
	customers repository.CustomerRepository
	mailer    mail.Mailer
	scheduler Scheduler
}

func NewOnboardingController(customers repository.CustomerRepository, mailer mail.Mailer, scheduler Scheduler) *OnboardingController {
	return &OnboardingController{customers: customers, mailer: mailer, scheduler: scheduler}
}

type onboardingRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Plan  string `json:"plan"`
	Org   string `json:"org"`
}

// HandleCompleteOnboarding creates or finishes a customer record. The welcome
// email carries the only copy of the raw API key, so its delivery must
// succeed; the follow-up is scheduled best-effort afterwards.
func (oc *OnboardingController) HandleCompleteOnboarding(c *fiber.Ctx) error {
	var req onboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Plan = strings.TrimSpace(req.Plan)
	req.Org = strings.TrimSpace(req.Org)
	if req.Email == "" || req.Plan == "" || req.Org == "" {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "email, plan and org are required")
	}

	customer, created, err := oc.upsertCustomer(req)
	if err != nil {
		fiberlog.Errorf("[Onboarding] customer upsert failed for %s: %v", req.Email, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to provision customer")
	}

	now := time.Now()
	customer.StartTrial(now)
	customer.Onboarded = true

	apiKey, err := customer.IssueAPIKey()
	if err != nil {
		fiberlog.Errorf("[Onboarding] api key generation failed for %s: %v", customer.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to generate API key")
	}

	if created {
		err = oc.customers.Create(customer)
	} else {
		err = oc.customers.Update(customer)
	}
	if err != nil {
		fiberlog.Errorf("[Onboarding] customer save failed for %s: %v", customer.ID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to provision customer")
	}

	// The raw key exists only in this email. A lost send means a locked-out
	// customer, so the welcome email is the one send that must succeed.
	body := mail.WelcomeBody(customer.Name, customer.Plan, apiKey, *customer.TrialEnd)
	if err := oc.mailer.Send(customer.Email, mail.WelcomeSubject, body); err != nil {
		fiberlog.Errorf("[Onboarding] welcome email failed for %s: %v", customer.Email, err)
		return errorJSON(c, fiber.StatusBadGateway, "email_delivery_failed", "failed to deliver welcome email")
	}

	payload := jobqueue.FollowUpEmailJobPayload{
		CustomerID: customer.ID,
		Email:      customer.Email,
		Name:       customer.Name,
		Plan:       customer.Plan,
	}
	if _, err := oc.scheduler.EnqueueJobAt(jobqueue.JobTypeFollowUpEmail, payload.ToMap(), now.Add(FollowUpDelay)); err != nil {
		fiberlog.Warnf("[Onboarding] follow-up scheduling failed for %s: %v", customer.ID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"customer": fiber.Map{
			"id":                    customer.ID,
			"name":                  customer.Name,
			"email":                 customer.Email,
			"plan":                  customer.Plan,
			"org_slug":              customer.OrgSlug,
			"rate_limit_per_minute": customer.RateLimitPerMinute,
			"trial_started":         customer.TrialStarted,
			"trial_end":             customer.TrialEnd,
			"api_key_prefix":        customer.APIKeyPrefix,
		},
		// Returned exactly once; only the hash is stored.
		"api_key": apiKey,
	})
}

// upsertCustomer reuses a row provisioned by the checkout webhook when one
// exists for the email, otherwise builds a fresh one.
func (oc *OnboardingController) upsertCustomer(req onboardingRequest) (*models.Customer, bool, error) {
	existing, err := oc.customers.GetByEmail(req.Email)
	if err == nil {
		existing.Name = req.Name
		existing.Plan = req.Plan
		existing.OrgSlug = slug.Make(req.Org)
		existing.RateLimitPerMinute = models.PlanRateLimit(req.Plan)
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	return &models.Customer{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		Email:              req.Email,
		Plan:               req.Plan,
		OrgSlug:            slug.Make(req.Org),
		RateLimitPerMinute: models.PlanRateLimit(req.Plan),
	}, true, nil
}
