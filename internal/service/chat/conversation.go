package chat

import (
	"errors"
	"strings"
	"sync"

	"github.com/zhouzirui/z-shop/backend/internal/model/chat"
)

var (
	ErrNotAwaitingReply = errors.New("conversation is not awaiting a reply")
	ErrStaleTicket      = errors.New("ticket does not match the outstanding submission")
	ErrClosed           = errors.New("conversation is closed")
)

// Ticket identifies one accepted submission. It is the only way to resolve
// the reply for that submission.
type Ticket struct {
	seq  uint64
	Text string
}

// Conversation is the single source of truth for one widget: transcript,
// draft and phase. It moves Idle -> AwaitingReply only through Submit and
// AwaitingReply -> Idle only through ResolveWithReply.
type Conversation struct {
	mu          sync.Mutex
	transcript  []chat.Message
	draft       string
	phase       chat.Phase
	outstanding uint64
	submitted   uint64
	revision    uint64
	closed      bool
	subscribers map[int]chan chat.Snapshot
	nextSubID   int
}

// NewConversation seeds the transcript with the bot greeting.
func NewConversation(greeting string) *Conversation {
	transcript := make([]chat.Message, 1, 16)
	transcript[0] = chat.BotMessage(greeting)
	return &Conversation{
		transcript:  transcript,
		phase:       chat.PhaseIdle,
		subscribers: make(map[int]chan chat.Snapshot),
	}
}

// Submit accepts text when it is not blank and no reply is outstanding.
// Rejected calls change nothing and report false.
func (c *Conversation) Submit(text string) (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(text)
}

// SubmitDraft submits the current draft.
func (c *Conversation) SubmitDraft() (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(c.draft)
}

func (c *Conversation) submitLocked(text string) (Ticket, bool) {
	if c.closed || c.phase != chat.PhaseIdle || strings.TrimSpace(text) == "" {
		return Ticket{}, false
	}

	c.submitted++
	c.outstanding = c.submitted
	c.transcript = append(c.transcript, chat.UserMessage(text))
	c.draft = ""
	c.phase = chat.PhaseAwaitingReply
	c.publishLocked()

	return Ticket{seq: c.outstanding, Text: text}, true
}

// ResolveWithReply appends the bot reply for ticket and returns to Idle.
func (c *Conversation) ResolveWithReply(ticket Ticket, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.phase != chat.PhaseAwaitingReply:
		return ErrNotAwaitingReply
	case ticket.seq != c.outstanding:
		return ErrStaleTicket
	}

	c.transcript = append(c.transcript, chat.BotMessage(text))
	c.phase = chat.PhaseIdle
	c.outstanding = 0
	c.publishLocked()
	return nil
}

// UpdateDraft replaces the draft without validation.
func (c *Conversation) UpdateDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.draft = text
	c.publishLocked()
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() chat.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe delivers a snapshot after every mutation, starting with the
// current state. When the subscriber falls behind, the oldest undelivered
// snapshot is dropped. The channel is closed by cancel or by Close.
func (c *Conversation) Subscribe(buffer int) (<-chan chat.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan chat.Snapshot, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Close tears the conversation down. Later mutations are ignored.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		close(sub)
	}
}

func (c *Conversation) snapshotLocked() chat.Snapshot {
	transcript := make([]chat.Message, len(c.transcript))
	copy(transcript, c.transcript)
	return chat.Snapshot{
		Transcript: transcript,
		Draft:      c.draft,
		Phase:      c.phase,
		Busy:       c.phase == chat.PhaseAwaitingReply,
		Revision:   c.revision,
	}
}

func (c *Conversation) publishLocked() {
	c.revision++
	if len(c.subscribers) == 0 {
		return
	}

	snapshot := c.snapshotLocked()
	for _, sub := range c.subscribers {
		for {
			select {
			case sub <- snapshot:
			default:
				// Drop the oldest frame and retry; renderers only need the latest.
				select {
				case <-sub:
				default:
				}
				continue
			}
			break
		}
	}
}
