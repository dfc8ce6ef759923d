package jobqueue

import (
	"context"
	"fmt"

	"github.com/atelier-logos/nabla/internal/pkg/mail"
)

// processFollowUpEmailJob sends the scheduled trial check-in email.
func (q *Queue) processFollowUpEmailJob(ctx context.Context, job *Job) error {
	_ = ctx
	payload, err := FollowUpEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid followup email payload: %w", err)
	}
	if payload.Email == "" {
		return fmt.Errorf("followup email payload missing recipient")
	}

	body := mail.FollowUpBody(payload.Name, payload.Plan)
	return q.mailer.Send(payload.Email, mail.FollowUpSubject, body)
}

// processUpgradeEmailJob sends the plan confirmation queued by billing.
func (q *Queue) processUpgradeEmailJob(ctx context.Context, job *Job) error {
	_ = ctx
	payload, err := UpgradeEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid upgrade email payload: %w", err)
	}
	if payload.Email == "" {
		return fmt.Errorf("upgrade email payload missing recipient")
	}

	body := mail.UpgradeBody(payload.Name, payload.Plan)
	return q.mailer.Send(payload.Email, mail.UpgradeSubject, body)
}
