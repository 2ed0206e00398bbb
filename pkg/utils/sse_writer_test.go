package utils

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mealrelay/internal/models/response_models"
)

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (b brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestSSEWriter_FramesAndFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := NewSSEWriter(rec)

	require.NoError(t, sse.Send(response_models.ConnectedEvent()))
	require.NoError(t, sse.Send(response_models.DeltaEvent("soup")))

	assert.Equal(t,
		"data: {\"type\":\"connected\"}\n\n"+
			"data: {\"type\":\"delta\",\"content\":\"soup \",\"isComplete\":false}\n\n",
		rec.Body.String())
	assert.True(t, rec.Flushed)
	assert.False(t, sse.Terminated())
}

func TestSSEWriter_NothingAfterTerminal(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := NewSSEWriter(rec)

	require.NoError(t, sse.Send(response_models.CompleteEvent()))
	assert.True(t, sse.Terminated())

	assert.ErrorIs(t, sse.Send(response_models.DeltaEvent("late")), ErrStreamClosed)
	assert.ErrorIs(t, sse.Send(response_models.ErrorEvent("late")), ErrStreamClosed)
	assert.Equal(t, "data: {\"type\":\"complete\",\"isComplete\":true}\n\n", rec.Body.String())
}

func TestSSEWriter_WriteFailureClosesStream(t *testing.T) {
	sse := NewSSEWriter(brokenWriter{httptest.NewRecorder()})

	err := sse.Send(response_models.ConnectedEvent())
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.ErrorIs(t, sse.Send(response_models.ConnectedEvent()), ErrStreamClosed)
	assert.False(t, sse.Terminated())
}
