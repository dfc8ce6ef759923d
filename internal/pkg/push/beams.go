package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelier-logos/nabla/internal/pkg/env"
)

// Notification is a web push message delivered to interest subscribers.
type Notification struct {
	Title    string
	Body     string
	DeepLink string
	Icon     string
}

// Notifier publishes push notifications to named interests. Delivery is
// best effort everywhere it is used.
type Notifier interface {
	Publish(ctx context.Context, interests []string, n Notification) error
}

// BeamsClient talks to the Beams publish API.
type BeamsClient struct {
	InstanceID string
	SecretKey  string
	BaseURL    string // overrides the instance host when set, for tests
	HTTPClient *http.Client
}

// NewBeamsClient creates a client for the given Beams instance.
func NewBeamsClient(instanceID, secretKey string) *BeamsClient {
	return &BeamsClient{
		InstanceID: instanceID,
		SecretKey:  secretKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewBeamsClientFromEnv builds the client from BEAMS_* settings.
func NewBeamsClientFromEnv() *BeamsClient {
	return NewBeamsClient(
		env.GetEnv("BEAMS_INSTANCE_ID", ""),
		env.GetEnv("BEAMS_SECRET_KEY", ""),
	)
}

// IsConfigured reports whether publish credentials are present.
func (c *BeamsClient) IsConfigured() bool {
	return c.InstanceID != "" && c.SecretKey != ""
}

type publishRequest struct {
	Interests []string   `json:"interests"`
	Web       webPayload `json:"web"`
}

type webPayload struct {
	Notification webNotification `json:"notification"`
}

type webNotification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	DeepLink string `json:"deep_link,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// Publish sends one web notification to the given interests.
func (c *BeamsClient) Publish(ctx context.Context, interests []string, n Notification) error {
	if !c.IsConfigured() {
		return fmt.Errorf("push: client not configured")
	}
	if len(interests) == 0 {
		return fmt.Errorf("push: at least one interest is required")
	}

	body, err := json.Marshal(publishRequest{
		Interests: interests,
		Web: webPayload{Notification: webNotification{
			Title:    n.Title,
			Body:     n.Body,
			DeepLink: n.DeepLink,
			Icon:     n.Icon,
		}},
	})
	if err != nil {
		return fmt.Errorf("push: encode publish request: %w", err)
	}

	reqURL := c.publishURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("push: publish request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push: publish returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (c *BeamsClient) publishURL() string {
	base := c.BaseURL
	if base == "" {
		base = "https://" + c.InstanceID + ".pushnotifications.pusher.com"
	}
	return strings.TrimRight(base, "/") + "/publish_api/v1/instances/" + c.InstanceID + "/publishes"
}
