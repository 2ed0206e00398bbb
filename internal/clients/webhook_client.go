package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/apex/log"
	"mealrelay/internal/config"
)

var (
	ErrWebhookNotConfigured = errors.New("webhook url is not configured")
	ErrUpstreamTimeout      = errors.New("webhook request timed out")
	ErrUpstreamStatus       = errors.New("webhook responded with non-2xx status")
	ErrUpstreamUnavailable  = errors.New("webhook unreachable")
)

// MaxResponseBytes bounds how much of a webhook reply is buffered.
const MaxResponseBytes = 4 << 20

// WebhookPayload is the body the n8n workflow expects. Keys mirror the
// inbound chat request.
type WebhookPayload struct {
	Message           string `json:"message"`
	Timestamp         string `json:"timestamp"`
	UserID            string `json:"user_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	DietaryPreference string `json:"dietary_preference"`
	Allergies         string `json:"allergies"`
	MealsPerDay       string `json:"meals_per_day"`
	AdultsCount       string `json:"adults_count"`
	ChildrenCount     string `json:"children_count"`
	SessionID         string `json:"session_id"`
}

// formFields returns the payload in a stable field order for multipart bodies.
func (p WebhookPayload) formFields() [][2]string {
	return [][2]string{
		{"message", p.Message},
		{"timestamp", p.Timestamp},
		{"user_id", p.UserID},
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"email", p.Email},
		{"dietary_preference", p.DietaryPreference},
		{"allergies", p.Allergies},
		{"meals_per_day", p.MealsPerDay},
		{"adults_count", p.AdultsCount},
		{"children_count", p.ChildrenCount},
		{"session_id", p.SessionID},
	}
}

type WebhookClientInterface interface {
	// Send posts the payload once and returns the full response body as text.
	Send(ctx context.Context, payload WebhookPayload) (string, error)
}

type WebhookClient struct {
	url        string
	format     string
	timeout    time.Duration
	maxBody    int64
	httpClient *http.Client
}

func NewWebhookClient(cfg *config.Config, httpClient *http.Client) *WebhookClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &WebhookClient{
		url:        cfg.WebhookURL,
		format:     cfg.PayloadFormat,
		timeout:    cfg.WebhookTimeout,
		maxBody:    MaxResponseBytes,
		httpClient: httpClient,
	}
}

func (c *WebhookClient) Send(ctx context.Context, payload WebhookPayload) (string, error) {
	if c.url == "" {
		return "", ErrWebhookNotConfigured
	}

	body, contentType, err := c.encode(payload)
	if err != nil {
		return "", fmt.Errorf("encode webhook payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classify(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	log.WithFields(log.Fields{
		"status": resp.StatusCode,
		"format": c.format,
	}).Info("webhook responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBody))
		return "", fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", c.classify(ctx, reqCtx, err)
	}
	if int64(len(raw)) > c.maxBody {
		return "", fmt.Errorf("%w: reply exceeds %d bytes", ErrUpstreamUnavailable, c.maxBody)
	}
	return string(raw), nil
}

func (c *WebhookClient) encode(payload WebhookPayload) (io.Reader, string, error) {
	if c.format == config.PayloadFormatMultipart {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, f := range payload.formFields() {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return nil, "", err
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

// classify separates our own timeout from the caller going away.
func (c *WebhookClient) classify(parent, reqCtx context.Context, err error) error {
	switch {
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrUpstreamTimeout, c.timeout)
	case parent.Err() != nil:
		return fmt.Errorf("webhook request aborted: %w", parent.Err())
	default:
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
}
