package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeFollowUpEmail    JobType = "followup_email"
	JobTypeUpgradeEmail     JobType = "upgrade_email"
	JobTypePushNotification JobType = "push_notification"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	RunAt       *time.Time             `json:"run_at,omitempty"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// FollowUpEmailJobPayload carries the data for a scheduled trial check-in.
type FollowUpEmailJobPayload struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Plan       string `json:"plan"`
}

// ToMap converts the payload to a map for storage
func (p FollowUpEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"customer_id": p.CustomerID,
		"email":       p.Email,
		"name":        p.Name,
		"plan":        p.Plan,
	}
}

// FollowUpEmailJobPayloadFromMap creates a payload from a map
func FollowUpEmailJobPayloadFromMap(data map[string]interface{}) (*FollowUpEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload FollowUpEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// UpgradeEmailJobPayload carries the data for a plan confirmation email
// queued by the billing webhook flow.
type UpgradeEmailJobPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Plan  string `json:"plan"`
}

// ToMap converts the payload to a map for storage
func (p UpgradeEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"email": p.Email,
		"name":  p.Name,
		"plan":  p.Plan,
	}
}

// UpgradeEmailJobPayloadFromMap creates a payload from a map
func UpgradeEmailJobPayloadFromMap(data map[string]interface{}) (*UpgradeEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload UpgradeEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// PushNotificationJobPayload carries the data for an async push publish.
type PushNotificationJobPayload struct {
	Interests []string `json:"interests"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	DeepLink  string   `json:"deep_link"`
}

// ToMap converts the payload to a map for storage
func (p PushNotificationJobPayload) ToMap() map[string]interface{} {
	interests := make([]interface{}, len(p.Interests))
	for i, in := range p.Interests {
		interests[i] = in
	}
	return map[string]interface{}{
		"interests": interests,
		"title":     p.Title,
		"body":      p.Body,
		"deep_link": p.DeepLink,
	}
}

// PushNotificationJobPayloadFromMap creates a payload from a map
func PushNotificationJobPayloadFromMap(data map[string]interface{}) (*PushNotificationJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PushNotificationJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
