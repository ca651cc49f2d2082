package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/logging"
	chatService "github.com/zhouzirui/z-shop/backend/internal/service/chat"
	"github.com/zhouzirui/z-shop/backend/pkg/utils"
)

const (
	eventState  = "state"
	eventClosed = "closed"

	defaultHeartbeat = 15 * time.Second
)

// Handler pushes widget render state via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	logger    *zap.Logger
	heartbeat time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		logger:    logging.OrNop(logger).Named("sse"),
		heartbeat: defaultHeartbeat,
	}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widgets/{sessionID}/events", h.handleEvents)
}

// handleEvents sends the current state, then one "state" event per
// mutation until the client leaves or the widget is unmounted.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	widget, err := h.chatSvc.Widget(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	updates, cancel := widget.Subscribe(16)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	logger := h.logger.With(zap.String("session", sessionID))
	logger.Debug("opening event stream")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("client left event stream")
			return
		case snapshot, open := <-updates:
			if !open {
				_ = utils.SendSSEEvent(w, flusher, eventClosed, map[string]string{"sessionId": sessionID})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, eventState, snapshot); err != nil {
				logger.Warn("failed to send state event", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
