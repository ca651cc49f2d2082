package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSSEEventFormatsFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupSSEHeaders(rec)

	require.NoError(t, SendSSEEvent(rec, rec, "state", map[string]int{"revision": 3}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: state\ndata: {\"revision\":3}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestSendSSEEventRejectsUnmarshalable(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.Error(t, SendSSEEvent(rec, rec, "state", make(chan int)))
	assert.Empty(t, rec.Body.String())
}

func TestSendSSEComment(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, SendSSEComment(rec, rec, "ping"))
	assert.Equal(t, ": ping\n\n", rec.Body.String())
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusNotFound, "session not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"session not found"}`, rec.Body.String())
}
