package jobqueue

import (
	"context"
	"fmt"

	"github.com/atelier-logos/nabla/internal/pkg/push"
)

// processPushNotificationJob publishes a web push to the payload interests.
func (q *Queue) processPushNotificationJob(ctx context.Context, job *Job) error {
	payload, err := PushNotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid push notification payload: %w", err)
	}
	if len(payload.Interests) == 0 {
		return fmt.Errorf("push notification payload missing interests")
	}

	return q.notifier.Publish(ctx, payload.Interests, push.Notification{
		Title:    payload.Title,
		Body:     payload.Body,
		DeepLink: payload.DeepLink,
	})
}
