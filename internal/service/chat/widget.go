package chat

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/logging"
	"github.com/zhouzirui/z-shop/backend/internal/model/chat"
	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
	"github.com/zhouzirui/z-shop/backend/internal/service/ai"
)

// Completer produces exactly one assistant reply per call and never fails.
type Completer interface {
	Complete(ctx context.Context, p *persona.Persona, userText string) ai.Reply
}

// Widget drives one Conversation against a Completer.
type Widget struct {
	conv      *Conversation
	persona   persona.Persona
	completer Completer
	logger    *zap.Logger
	inflight  sync.WaitGroup
}

// NewWidget mounts a conversation seeded with the persona greeting.
func NewWidget(p persona.Persona, completer Completer, logger *zap.Logger) *Widget {
	return &Widget{
		conv:      NewConversation(p.Greeting),
		persona:   p,
		completer: completer,
		logger:    logging.OrNop(logger).With(zap.String("persona", p.ID)),
	}
}

// Persona returns the persona the widget was mounted with.
func (w *Widget) Persona() persona.Persona {
	return w.persona
}

// Send submits text. It reports whether the submission was accepted; an
// accepted submission starts exactly one completion call.
func (w *Widget) Send(text string) bool {
	ticket, ok := w.conv.Submit(text)
	if !ok {
		return false
	}
	w.dispatch(ticket)
	return true
}

// SendDraft submits the current draft, as the send button does.
func (w *Widget) SendDraft() bool {
	ticket, ok := w.conv.SubmitDraft()
	if !ok {
		return false
	}
	w.dispatch(ticket)
	return true
}

func (w *Widget) dispatch(ticket Ticket) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()

		// The call is never cancelled; it always settles and drives the reply.
		reply := w.completer.Complete(context.Background(), &w.persona, ticket.Text)
		if err := w.conv.ResolveWithReply(ticket, reply.Text); err != nil {
			if errors.Is(err, ErrClosed) {
				w.logger.Debug("discarding reply for unmounted widget")
				return
			}
			w.logger.Error("failed to resolve reply", zap.Error(err))
			return
		}
		w.logger.Debug("reply appended", zap.Stringer("outcome", reply.Outcome))
	}()
}

// UpdateDraft replaces the unsent input text.
func (w *Widget) UpdateDraft(text string) {
	w.conv.UpdateDraft(text)
}

// Snapshot returns the current render state.
func (w *Widget) Snapshot() chat.Snapshot {
	return w.conv.Snapshot()
}

// Subscribe streams render state; see Conversation.Subscribe.
func (w *Widget) Subscribe(buffer int) (<-chan chat.Snapshot, func()) {
	return w.conv.Subscribe(buffer)
}

// Wait blocks until every accepted submission has settled.
func (w *Widget) Wait() {
	w.inflight.Wait()
}

// Close unmounts the widget. Outstanding completions still run to
// settlement but their replies are dropped.
func (w *Widget) Close() {
	w.conv.Close()
}
