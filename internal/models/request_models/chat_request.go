package request_models

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// ChatRequest is what the chat client sends. Every field is optional; absent
// values stay as empty strings. Form tags cover the multipart shape older
// clients still post.
type ChatRequest struct {
	Message           string `json:"message" form:"message"`
	UserID            string `json:"user_id" form:"user_id"`
	FirstName         string `json:"first_name" form:"first_name"`
	LastName          string `json:"last_name" form:"last_name"`
	Email             string `json:"email" form:"email"`
	DietaryPreference string `json:"dietary_preference" form:"dietary_preference"`
	Allergies         string `json:"allergies" form:"allergies"`
	MealsPerDay       string `json:"meals_per_day" form:"meals_per_day"`
	AdultsCount       string `json:"adults_count" form:"adults_count"`
	ChildrenCount     string `json:"children_count" form:"children_count"`
	Timestamp         string `json:"timestamp" form:"timestamp"`
	SessionID         string `json:"session_id" form:"session_id"`
}

// UnmarshalJSON accepts numbers, booleans and null for any field so that
// {"meals_per_day": 3} and {"meals_per_day": "3"} bind the same way.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = ChatRequest{
		Message:           textValue(raw["message"]),
		UserID:            textValue(raw["user_id"]),
		FirstName:         textValue(raw["first_name"]),
		LastName:          textValue(raw["last_name"]),
		Email:             textValue(raw["email"]),
		DietaryPreference: textValue(raw["dietary_preference"]),
		Allergies:         textValue(raw["allergies"]),
		MealsPerDay:       textValue(raw["meals_per_day"]),
		AdultsCount:       textValue(raw["adults_count"]),
		ChildrenCount:     textValue(raw["children_count"]),
		Timestamp:         textValue(raw["timestamp"]),
		SessionID:         textValue(raw["session_id"]),
	}
	return nil
}

func textValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

// LogFields is a log-safe view of the request with the message truncated.
func (r ChatRequest) LogFields(maxMessage int) map[string]interface{} {
	msg := r.Message
	if len(msg) > maxMessage {
		cut := maxMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return map[string]interface{}{
		"user_id":            r.UserID,
		"session_id":         r.SessionID,
		"dietary_preference": r.DietaryPreference,
		"meals_per_day":      r.MealsPerDay,
		"adults_count":       r.AdultsCount,
		"children_count":     r.ChildrenCount,
		"message":            msg,
	}
}
