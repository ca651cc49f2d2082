package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/z-shop/backend/internal/config"
	"github.com/zhouzirui/z-shop/backend/internal/model/chat"
	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
	"github.com/zhouzirui/z-shop/backend/internal/service/ai"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Keep-alive connections to the fake provider wind down asynchronously.
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

// gatedCompleter blocks each call until release is closed.
type gatedCompleter struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{}
	reply   ai.Reply
}

func newGatedCompleter(reply ai.Reply) *gatedCompleter {
	return &gatedCompleter{release: make(chan struct{}), reply: reply}
}

func (g *gatedCompleter) Complete(_ context.Context, _ *persona.Persona, userText string) ai.Reply {
	g.mu.Lock()
	g.calls = append(g.calls, userText)
	g.mu.Unlock()
	<-g.release
	return g.reply
}

func (g *gatedCompleter) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type instantCompleter struct {
	reply ai.Reply
	calls atomic.Int32
}

func (c *instantCompleter) Complete(context.Context, *persona.Persona, string) ai.Reply {
	c.calls.Add(1)
	return c.reply
}

func shopAssistant() persona.Persona {
	return persona.Seed()[0]
}

func TestWidgetFreshState(t *testing.T) {
	w := NewWidget(shopAssistant(), &instantCompleter{}, nil)
	defer w.Close()

	snap := w.Snapshot()
	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, chat.RoleBot, snap.Transcript[0].Sender)
	assert.Contains(t, snap.Transcript[0].Text, "Welcome")
	assert.False(t, snap.Busy)
}

func TestWidgetSuccessfulReply(t *testing.T) {
	completer := newGatedCompleter(ai.Reply{Text: "Here are some options...", Outcome: ai.OutcomeSuccess})
	w := NewWidget(shopAssistant(), completer, nil)
	defer w.Close()

	require.True(t, w.Send("red sneakers"))

	snap := w.Snapshot()
	assert.Equal(t, chat.UserMessage("red sneakers"), snap.Last())
	assert.True(t, snap.Busy)

	close(completer.release)
	w.Wait()

	snap = w.Snapshot()
	assert.Equal(t, chat.BotMessage("Here are some options..."), snap.Last())
	assert.False(t, snap.Busy)
	assert.Equal(t, []string{"red sneakers"}, completer.Calls())
}

func TestWidgetSecondSubmitWhileBusyIsIgnored(t *testing.T) {
	completer := newGatedCompleter(ai.Reply{Text: "first reply"})
	w := NewWidget(shopAssistant(), completer, nil)
	defer w.Close()

	require.True(t, w.Send("first"))
	assert.False(t, w.Send("second"))
	w.UpdateDraft("third")
	assert.False(t, w.SendDraft())

	close(completer.release)
	w.Wait()

	assert.Equal(t, []string{"first"}, completer.Calls())
	snap := w.Snapshot()
	assert.Len(t, snap.Transcript, 3)
	assert.Equal(t, "third", snap.Draft)
}

func TestWidgetBlankSubmitSendsNothing(t *testing.T) {
	completer := &instantCompleter{}
	w := NewWidget(shopAssistant(), completer, nil)
	defer w.Close()

	assert.False(t, w.Send(""))
	assert.False(t, w.Send("   "))
	assert.False(t, w.SendDraft())
	w.Wait()

	assert.Zero(t, completer.calls.Load())
	assert.Len(t, w.Snapshot().Transcript, 1)
}

func TestWidgetRepliesInOrder(t *testing.T) {
	completer := &instantCompleter{reply: ai.Reply{Text: "noted"}}
	w := NewWidget(shopAssistant(), completer, nil)
	defer w.Close()

	for k := 1; k <= 4; k++ {
		w.UpdateDraft("question")
		require.True(t, w.SendDraft())
		w.Wait()

		snap := w.Snapshot()
		require.Len(t, snap.Transcript, 1+2*k)
		assert.Equal(t, chat.UserMessage("question"), snap.Transcript[2*k-1])
		assert.Equal(t, chat.BotMessage("noted"), snap.Transcript[2*k])
	}
	assert.EqualValues(t, 4, completer.calls.Load())
}

func TestWidgetCloseDiscardsLateReply(t *testing.T) {
	completer := newGatedCompleter(ai.Reply{Text: "too late"})
	w := NewWidget(shopAssistant(), completer, nil)

	require.True(t, w.Send("hello"))
	w.Close()
	close(completer.release)
	w.Wait()

	snap := w.Snapshot()
	assert.Len(t, snap.Transcript, 2)
	assert.True(t, snap.Busy)
}

func TestWidgetSubscriberSeesBusyThenIdle(t *testing.T) {
	completer := newGatedCompleter(ai.Reply{Text: "ok"})
	w := NewWidget(shopAssistant(), completer, nil)
	defer w.Close()

	updates, cancel := w.Subscribe(8)
	defer cancel()
	<-updates

	require.True(t, w.Send("hat"))
	busy := <-updates
	assert.True(t, busy.Busy)

	close(completer.release)
	select {
	case idle := <-updates:
		assert.False(t, idle.Busy)
		assert.Equal(t, chat.BotMessage("ok"), idle.Last())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply snapshot")
	}
	w.Wait()
}

// End-to-end against a fake provider: scenarios for success, network
// failure and an empty choices list.
func TestWidgetWithCompletionService(t *testing.T) {
	cases := []struct {
		name string
		down bool
		body string
		want string
	}{
		{name: "success", body: `{"choices":[{"message":{"content":"Here are some options..."}}]}`, want: "Here are some options..."},
		{name: "network error", down: true, want: ai.FallbackTransportError},
		{name: "empty choices", body: `{"choices":[]}`, want: ai.FallbackProviderError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var requests atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			url := server.URL
			if tc.down {
				server.Close()
			} else {
				defer server.Close()
			}

			svc, err := ai.NewServiceFromConfig(context.Background(), config.AIConfig{
				Provider:  config.ProviderOpenAI,
				APIKey:    "test-key",
				BaseURL:   url,
				Model:     "gpt-4o-mini",
				MaxTokens: 150,
			}, nil)
			require.NoError(t, err)

			w := NewWidget(shopAssistant(), svc, nil)
			defer w.Close()

			require.True(t, w.Send("red sneakers"))
			w.Wait()

			snap := w.Snapshot()
			require.Len(t, snap.Transcript, 3)
			assert.Equal(t, chat.BotMessage(tc.want), snap.Last())
			assert.False(t, snap.Busy)
			if !tc.down {
				assert.EqualValues(t, 1, requests.Load())
			}
		})
	}
}
