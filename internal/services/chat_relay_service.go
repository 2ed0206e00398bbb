package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/apex/log"
	"mealrelay/internal/clients"
	"mealrelay/internal/config"
	"mealrelay/internal/models/request_models"
	"mealrelay/internal/models/response_models"
	"mealrelay/internal/repositories"
	"mealrelay/pkg/metrics"
	"mealrelay/pkg/utils"
)

const (
	TimeoutMessage     = "The request timed out. Please try again with a shorter message."
	UnavailableMessage = "Sorry, I'm having trouble connecting right now. Please try again."

	maxHistoryLimit = 200
)

// EventSink receives stream events in order. Send fails once the client is
// gone or the stream has already been terminated.
type EventSink interface {
	Send(event response_models.StreamEvent) error
}

type ChatRelayServiceInterface interface {
	Relay(ctx context.Context, req request_models.ChatRequest) (string, error)
	Stream(ctx context.Context, req request_models.ChatRequest, sink EventSink) error
	History(ctx context.Context, userID, sessionID string, limit int) ([]response_models.ChatHistoryMessage, error)
}

type ChatRelayService struct {
	webhook    clients.WebhookClientInterface
	activity   repositories.ActivityRepository
	history    repositories.ChatHistoryRepository
	tokenDelay time.Duration
	clock      func() time.Time
}

// NewChatRelayService wires the relay. activity and history may be nil when
// no database is configured.
func NewChatRelayService(
	cfg *config.Config,
	webhook clients.WebhookClientInterface,
	activity repositories.ActivityRepository,
	history repositories.ChatHistoryRepository,
) ChatRelayServiceInterface {
	return &ChatRelayService{
		webhook:    webhook,
		activity:   activity,
		history:    history,
		tokenDelay: cfg.TokenDelay,
		clock:      time.Now,
	}
}

func (s *ChatRelayService) Relay(ctx context.Context, req request_models.ChatRequest) (string, error) {
	logger := log.WithFields(log.Fields(req.LogFields(100)))
	logger.Info("relaying chat request")

	payload := BuildWebhookPayload(req, s.clock())

	start := time.Now()
	raw, err := s.webhook.Send(ctx, payload)
	outcome := Outcome(err)
	metrics.UpstreamDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.WithError(err).WithField("outcome", outcome).Error("webhook call failed")
		return "", err
	}

	s.touchActivity(ctx, req.UserID)

	message := ExtractMessage(raw)
	logger.WithField("reply_length", len(message)).Info("webhook reply extracted")
	return message, nil
}

func (s *ChatRelayService) Stream(ctx context.Context, req request_models.ChatRequest, sink EventSink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sink.Send(response_models.ConnectedEvent()); err != nil {
		return err
	}

	message, err := s.Relay(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sendErr := sink.Send(response_models.ErrorEvent(UserMessage(err))); sendErr != nil {
			return sendErr
		}
		return err
	}

	for i, token := range Tokenize(message) {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}
		if err := sink.Send(response_models.DeltaEvent(token)); err != nil {
			return err
		}
		metrics.DeltaEventsTotal.Inc()
	}

	return sink.Send(response_models.CompleteEvent())
}

// History reads the n8n memory of a session owned by userID. The table is
// read with the service role, so ownership is checked here.
func (s *ChatRelayService) History(ctx context.Context, userID, sessionID string, limit int) ([]response_models.ChatHistoryMessage, error) {
	if s.history == nil {
		return nil, utils.ErrHistoryDisabled
	}
	if sessionID == "" {
		return nil, utils.ErrInvalidSessionID
	}
	if !OwnsSession(userID, sessionID) {
		log.WithFields(log.Fields{"user_id": userID, "session_id": sessionID}).Warn("history of foreign session")
		return nil, utils.ErrForbidden
	}
	if limit < 1 || limit > maxHistoryLimit {
		return nil, utils.ErrInvalidPageSize
	}

	rows, err := s.history.ListBySession(ctx, sessionID, limit)
	if err != nil {
		log.WithError(err).WithField("session_id", sessionID).Error("load chat history")
		return nil, utils.ErrDatabaseError
	}

	messages := make([]response_models.ChatHistoryMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, response_models.ChatHistoryMessage{
			ID:      row.ID,
			Type:    row.Message.Type,
			Content: row.Message.Content,
		})
	}
	return messages, nil
}

func (s *ChatRelayService) pause(ctx context.Context) error {
	if s.tokenDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.tokenDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// touchActivity logs and swallows failures.
func (s *ChatRelayService) touchActivity(ctx context.Context, userID string) {
	if s.activity == nil || userID == "" {
		return
	}
	if err := s.activity.TouchLastMessage(ctx, userID, s.clock()); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("update message activity")
	}
}

// OwnsSession reports whether sessionID belongs to userID: either the user ID
// itself or "<user ID>:<suffix>". An empty userID owns nothing.
func OwnsSession(userID, sessionID string) bool {
	if userID == "" {
		return false
	}
	return sessionID == userID || strings.HasPrefix(sessionID, userID+":")
}

// UserMessage is the text shown to the user for a failed relay.
func UserMessage(err error) string {
	if errors.Is(err, clients.ErrUpstreamTimeout) {
		return TimeoutMessage
	}
	return UnavailableMessage
}

// Outcome labels an error for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, clients.ErrUpstreamTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, utils.ErrStreamClosed):
		return metrics.OutcomeClientGone
	default:
		return metrics.OutcomeUpstream
	}
}
