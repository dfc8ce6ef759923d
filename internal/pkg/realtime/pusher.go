package realtime

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atelier-logos/nabla/internal/pkg/env"
)

// Publisher delivers events to realtime channels. The concrete client talks
// to the Channels HTTP API; tests inject a fake.
type Publisher interface {
	Trigger(ctx context.Context, channel, eventName string, data interface{}) error
}

// Client is a minimal Channels REST client. Events are signed with the app
// secret per the v1.0 auth scheme.
type Client struct {
	AppID      string
	Key        string
	Secret     string
	Cluster    string
	BaseURL    string // overrides the cluster host when set, for tests
	HTTPClient *http.Client

	now func() time.Time
}

// NewClient creates a Channels client for the given app credentials.
func NewClient(appID, key, secret, cluster string) *Client {
	return &Client{
		AppID:      appID,
		Key:        key,
		Secret:     secret,
		Cluster:    cluster,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// NewClientFromEnv builds the client from PUSHER_* settings.
func NewClientFromEnv() *Client {
	return NewClient(
		env.GetEnv("PUSHER_APP_ID", ""),
		env.GetEnv("PUSHER_KEY", ""),
		env.GetEnv("PUSHER_SECRET", ""),
		env.GetEnv("PUSHER_CLUSTER", "us2"),
	)
}

// IsConfigured reports whether credentials are present. Chat falls back to
// store-only delivery when they are not.
func (c *Client) IsConfigured() bool {
	return c.AppID != "" && c.Key != "" && c.Secret != ""
}

type triggerBody struct {
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
	Data     string   `json:"data"`
}

// Trigger publishes one event to one channel. The payload is JSON-encoded
// and sent as the event data string, matching what browser clients expect.
func (c *Client) Trigger(ctx context.Context, channel, eventName string, data interface{}) error {
	if !c.IsConfigured() {
		return fmt.Errorf("realtime: client not configured")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("realtime: encode event data: %w", err)
	}
	body, err := json.Marshal(triggerBody{
		Name:     eventName,
		Channels: []string{channel},
		Data:     string(payload),
	})
	if err != nil {
		return fmt.Errorf("realtime: encode request body: %w", err)
	}

	path := "/apps/" + c.AppID + "/events"
	reqURL := c.baseURL() + path + "?" + c.signedQuery("POST", path, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("realtime: trigger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("realtime: trigger returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://api-" + c.Cluster + ".pusher.com"
}

// signedQuery builds the auth_* query string. The signature covers the
// method, the path and the sorted query parameters.
func (c *Client) signedQuery(method, path string, body []byte) string {
	bodyMD5 := md5.Sum(body)

	params := url.Values{}
	params.Set("auth_key", c.Key)
	params.Set("auth_timestamp", strconv.FormatInt(c.now().Unix(), 10))
	params.Set("auth_version", "1.0")
	params.Set("body_md5", hex.EncodeToString(bodyMD5[:]))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}
	unsigned := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write([]byte(method + "\n" + path + "\n" + unsigned))
	signature := hex.EncodeToString(mac.Sum(nil))

	return unsigned + "&auth_signature=" + signature
}
