package services

import (
	"encoding/json"
	"strings"
	"time"

	"mealrelay/internal/clients"
	"mealrelay/internal/models/request_models"
)

const DefaultGreeting = "I'm here to help you plan your meals and create grocery lists! What would you like to work on today?"

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type webhookOutput struct {
	Output *string `json:"output"`
}

// ExtractMessage picks the display text out of a webhook reply:
// [{"output": ...}] first, then {"output": ...}, otherwise the raw body.
func ExtractMessage(raw string) string {
	if raw == "" {
		return DefaultGreeting
	}

	var list []webhookOutput
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		if len(list) > 0 && list[0].Output != nil && *list[0].Output != "" {
			return *list[0].Output
		}
		return raw
	}

	var obj webhookOutput
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		if obj.Output != nil && *obj.Output != "" {
			return *obj.Output
		}
	}
	return raw
}

// Tokenize splits on single spaces only. Runs of spaces yield empty tokens,
// which are kept so the client can rebuild the original spacing.
func Tokenize(message string) []string {
	return strings.Split(message, " ")
}

// BuildWebhookPayload copies the request into the webhook shape, stamping the
// current time when the client sent none.
func BuildWebhookPayload(req request_models.ChatRequest, now time.Time) clients.WebhookPayload {
	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = now.UTC().Format(isoMillis)
	}

	return clients.WebhookPayload{
		Message:           req.Message,
		Timestamp:         timestamp,
		UserID:            req.UserID,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		DietaryPreference: req.DietaryPreference,
		Allergies:         req.Allergies,
		MealsPerDay:       req.MealsPerDay,
		AdultsCount:       req.AdultsCount,
		ChildrenCount:     req.ChildrenCount,
		SessionID:         req.SessionID,
	}
}
