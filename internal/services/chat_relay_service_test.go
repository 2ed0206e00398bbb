package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mealrelay/internal/clients"
	"mealrelay/internal/config"
	"mealrelay/internal/models/db_models"
	"mealrelay/internal/models/request_models"
	"mealrelay/internal/models/response_models"
	"mealrelay/pkg/utils"
)

type fakeWebhook struct {
	mu       sync.Mutex
	body     string
	err      error
	delay    time.Duration
	payloads []clients.WebhookPayload
}

func (f *fakeWebhook) Send(ctx context.Context, payload clients.WebhookPayload) (string, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("webhook request aborted: %w", ctx.Err())
		case <-time.After(f.delay):
		}
	}
	return f.body, f.err
}

func (f *fakeWebhook) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type recordingSink struct {
	events  []response_models.StreamEvent
	failAt  int
	onEvent func(response_models.StreamEvent)
}

func (s *recordingSink) Send(event response_models.StreamEvent) error {
	if s.failAt > 0 && len(s.events)+1 >= s.failAt {
		return errors.New("client went away")
	}
	s.events = append(s.events, event)
	if s.onEvent != nil {
		s.onEvent(event)
	}
	return nil
}

func (s *recordingSink) types() []response_models.StreamEventType {
	out := make([]response_models.StreamEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeActivity struct {
	users []string
	err   error
}

func (f *fakeActivity) TouchLastMessage(ctx context.Context, userID string, at time.Time) error {
	f.users = append(f.users, userID)
	return f.err
}

type fakeHistory struct {
	rows  []db_models.ChatHistory
	err   error
	calls int
}

func (f *fakeHistory) ListBySession(ctx context.Context, sessionID string, limit int) ([]db_models.ChatHistory, error) {
	f.calls++
	return f.rows, f.err
}

func newService(webhook clients.WebhookClientInterface, activity *fakeActivity, history *fakeHistory) *ChatRelayService {
	cfg := &config.Config{TokenDelay: time.Millisecond}
	svc := &ChatRelayService{
		webhook:    webhook,
		tokenDelay: cfg.TokenDelay,
		clock: func() time.Time {
			return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
		},
	}
	if activity != nil {
		svc.activity = activity
	}
	if history != nil {
		svc.history = history
	}
	return svc
}

func TestRelay_MissingFieldsForwardedAsEmptyStrings(t *testing.T) {
	webhook := &fakeWebhook{body: `{"output":"ok"}`}
	svc := newService(webhook, nil, nil)

	_, err := svc.Relay(context.Background(), request_models.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	require.Equal(t, 1, webhook.calls())
	p := webhook.payloads[0]
	assert.Equal(t, "hi", p.Message)
	assert.Equal(t, "", p.UserID)
	assert.Equal(t, "", p.Email)
	assert.Equal(t, "", p.SessionID)
	assert.Equal(t, "2026-10-15T09:30:00.000Z", p.Timestamp)
}

func TestRelay_KeepsClientTimestamp(t *testing.T) {
	webhook := &fakeWebhook{body: "ok"}
	svc := newService(webhook, nil, nil)

	_, err := svc.Relay(context.Background(), request_models.ChatRequest{Timestamp: "2026-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", webhook.payloads[0].Timestamp)
}

func TestRelay_NoCachingAcrossIdenticalRequests(t *testing.T) {
	webhook := &fakeWebhook{body: `[{"output":"Hi there"}]`}
	svc := newService(webhook, nil, nil)
	req := request_models.ChatRequest{Message: "same", UserID: "u1", SessionID: "s1"}

	first, err := svc.Relay(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Relay(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Hi there", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, webhook.calls())
}

func TestRelay_TouchesActivityOnSuccessOnly(t *testing.T) {
	activity := &fakeActivity{}
	svc := newService(&fakeWebhook{body: "ok"}, activity, nil)

	_, err := svc.Relay(context.Background(), request_models.ChatRequest{UserID: "u1"})
	require.NoError(t, err)
	_, err = svc.Relay(context.Background(), request_models.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, activity.users)

	failing := newService(&fakeWebhook{err: clients.ErrUpstreamUnavailable}, activity, nil)
	_, err = failing.Relay(context.Background(), request_models.ChatRequest{UserID: "u2"})
	require.Error(t, err)
	assert.Equal(t, []string{"u1"}, activity.users)
}

func TestRelay_ActivityFailureDoesNotFailRelay(t *testing.T) {
	activity := &fakeActivity{err: errors.New("db down")}
	svc := newService(&fakeWebhook{body: `{"output":"still here"}`}, activity, nil)

	msg, err := svc.Relay(context.Background(), request_models.ChatRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "still here", msg)
}

func TestStream_EmitsDeltasThenComplete(t *testing.T) {
	svc := newService(&fakeWebhook{body: `{"output":"a b c"}`}, nil, nil)
	sink := &recordingSink{}

	err := svc.Stream(context.Background(), request_models.ChatRequest{Message: "x"}, sink)
	require.NoError(t, err)

	assert.Equal(t, []response_models.StreamEventType{
		response_models.EventConnected,
		response_models.EventDelta,
		response_models.EventDelta,
		response_models.EventDelta,
		response_models.EventComplete,
	}, sink.types())
	assert.Equal(t, "a ", sink.events[1].Text())
	assert.Equal(t, "b ", sink.events[2].Text())
	assert.Equal(t, "c ", sink.events[3].Text())
}

func TestStream_PreservesEmptyTokens(t *testing.T) {
	svc := newService(&fakeWebhook{body: "eggs  toast"}, nil, nil)
	sink := &recordingSink{}

	require.NoError(t, svc.Stream(context.Background(), request_models.ChatRequest{}, sink))

	require.Len(t, sink.events, 5)
	assert.Equal(t, "eggs ", sink.events[1].Text())
	assert.Equal(t, " ", sink.events[2].Text())
	assert.Equal(t, "toast ", sink.events[3].Text())
}

func TestStream_UpstreamFailureEmitsSingleError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", fmt.Errorf("%w after 60s", clients.ErrUpstreamTimeout), TimeoutMessage},
		{"status", fmt.Errorf("%w: 500", clients.ErrUpstreamStatus), UnavailableMessage},
		{"network", fmt.Errorf("%w: refused", clients.ErrUpstreamUnavailable), UnavailableMessage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(&fakeWebhook{err: tc.err}, nil, nil)
			sink := &recordingSink{}

			err := svc.Stream(context.Background(), request_models.ChatRequest{Message: "x"}, sink)
			assert.ErrorIs(t, err, tc.err)

			assert.Equal(t, []response_models.StreamEventType{
				response_models.EventConnected,
				response_models.EventError,
			}, sink.types())
			assert.Equal(t, tc.want, sink.events[1].Text())
		})
	}
}

func TestStream_StopsWhenClientGoesAway(t *testing.T) {
	svc := newService(&fakeWebhook{body: "one two three four"}, nil, nil)
	sink := &recordingSink{failAt: 3}

	err := svc.Stream(context.Background(), request_models.ChatRequest{}, sink)
	require.Error(t, err)

	assert.Equal(t, []response_models.StreamEventType{
		response_models.EventConnected,
		response_models.EventDelta,
	}, sink.types())
}

func TestStream_ContextCancelledDuringPacing(t *testing.T) {
	svc := newService(&fakeWebhook{body: "one two three"}, nil, nil)
	svc.tokenDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{onEvent: func(e response_models.StreamEvent) {
		if e.Type == response_models.EventDelta {
			cancel()
		}
	}}

	err := svc.Stream(ctx, request_models.ChatRequest{}, sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.events, 2)
}

func TestStream_ClientGoneAbortsUpstream(t *testing.T) {
	webhook := &fakeWebhook{body: "late", delay: time.Hour}
	svc := newService(webhook, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	sink := &recordingSink{}

	err := svc.Stream(ctx, request_models.ChatRequest{}, sink)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []response_models.StreamEventType{response_models.EventConnected}, sink.types())
}

func TestHistory(t *testing.T) {
	history := &fakeHistory{rows: []db_models.ChatHistory{
		{ID: 1, SessionID: "s1", Message: db_models.HistoryMessage{Type: "human", Content: "breakfast?"}},
		{ID: 2, SessionID: "s1", Message: db_models.HistoryMessage{Type: "ai", Content: "Oats."}},
	}}
	svc := newService(&fakeWebhook{}, nil, history)

	msgs, err := svc.History(context.Background(), "s1", "s1", 50)
	require.NoError(t, err)
	assert.Equal(t, []response_models.ChatHistoryMessage{
		{ID: 1, Type: "human", Content: "breakfast?"},
		{ID: 2, Type: "ai", Content: "Oats."},
	}, msgs)
}

func TestHistory_Errors(t *testing.T) {
	disabled := newService(&fakeWebhook{}, nil, nil)
	_, err := disabled.History(context.Background(), "s1", "s1", 10)
	assert.ErrorIs(t, err, utils.ErrHistoryDisabled)

	svc := newService(&fakeWebhook{}, nil, &fakeHistory{err: errors.New("boom")})
	_, err = svc.History(context.Background(), "s1", "", 10)
	assert.ErrorIs(t, err, utils.ErrInvalidSessionID)
	_, err = svc.History(context.Background(), "s1", "s1", 0)
	assert.ErrorIs(t, err, utils.ErrInvalidPageSize)
	_, err = svc.History(context.Background(), "s1", "s1", 10)
	assert.ErrorIs(t, err, utils.ErrDatabaseError)
}

func TestHistory_ForeignSessionIsForbidden(t *testing.T) {
	history := &fakeHistory{rows: []db_models.ChatHistory{
		{ID: 1, SessionID: "victim", Message: db_models.HistoryMessage{Type: "human", Content: "my allergy is peanuts"}},
	}}
	svc := newService(&fakeWebhook{}, nil, history)

	for _, userID := range []string{"", "intruder", "vic"} {
		msgs, err := svc.History(context.Background(), userID, "victim", 10)
		assert.ErrorIs(t, err, utils.ErrForbidden, userID)
		assert.Nil(t, msgs, userID)
	}
	assert.Zero(t, history.calls)
}

func TestOwnsSession(t *testing.T) {
	cases := []struct {
		user, session string
		want          bool
	}{
		{"u1", "u1", true},
		{"u1", "u1:weekly-plan", true},
		{"u1", "u10", false},
		{"u1", "u2:u1", false},
		{"", "", false},
		{"", "u1", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OwnsSession(tc.user, tc.session), "%q owns %q", tc.user, tc.session)
	}
}

func TestNewChatRelayService_NilRepositories(t *testing.T) {
	svc := NewChatRelayService(&config.Config{}, &fakeWebhook{body: "fine"}, nil, nil)

	msg, err := svc.Relay(context.Background(), request_models.ChatRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "fine", msg)
}
