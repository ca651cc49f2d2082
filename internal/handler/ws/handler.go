package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/logging"
	"github.com/zhouzirui/z-shop/backend/internal/model/chat"
	chatService "github.com/zhouzirui/z-shop/backend/internal/service/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
	writeWait  = 10 * time.Second
)

// Handler WebSocket聊天组件处理器
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  logging.OrNop(logger).Named("websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widgets/{sessionID}/ws", h.handleWebSocket)
}

// inboundMessage is sent by the page: {"type":"draft","text":"..."} or
// {"type":"submit"} (draft) / {"type":"submit","text":"..."}.
type inboundMessage struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type submitResult struct {
	Accepted bool `json:"accepted"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	widget, err := h.chatSvc.Widget(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("session", sessionID))
	logger.Debug("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := widget.Subscribe(16)
	defer unsubscribe()

	outbound := make(chan outgoingMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		// Closing the connection unblocks the reader below.
		defer conn.Close()
		h.writeLoop(ctx, conn, sessionID, updates, outbound, logger)
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for ctx.Err() == nil {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				logger.Debug("read error", zap.Error(err))
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var reply *outgoingMessage
		switch msg.Type {
		case "draft":
			if msg.Text == nil {
				reply = &outgoingMessage{Type: "error", Data: "draft requires text"}
				break
			}
			widget.UpdateDraft(*msg.Text)
		case "submit":
			var accepted bool
			if msg.Text != nil {
				accepted = widget.Send(*msg.Text)
			} else {
				accepted = widget.SendDraft()
			}
			reply = &outgoingMessage{Type: "submit", Data: submitResult{Accepted: accepted}}
		default:
			reply = &outgoingMessage{Type: "error", Data: "unknown message type: " + msg.Type}
		}

		if reply != nil {
			select {
			case outbound <- *reply:
			case <-ctx.Done():
			}
		}
	}

	cancel()
	<-writerDone
	logger.Debug("connection closed")
}

// writeLoop is the connection's only writer.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, sessionID string, updates <-chan chat.Snapshot, outbound <-chan outgoingMessage, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		msg.SessionID = sessionID
		msg.Timestamp = time.Now().UnixMilli()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("write failed", zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, open := <-updates:
			if !open {
				write(outgoingMessage{Type: "closed"})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "widget unmounted"),
					time.Now().Add(writeWait))
				return
			}
			if !write(outgoingMessage{Type: "state", Data: snapshot}) {
				return
			}
		case msg := <-outbound:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
