package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-shop/backend/internal/model/chat"
	chatService "github.com/zhouzirui/z-shop/backend/internal/service/chat"
	"github.com/zhouzirui/z-shop/backend/pkg/utils"
)

// Handler 聊天组件的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

type mountResponse struct {
	Session chat.Session  `json:"session"`
	State   chat.Snapshot `json:"state"`
}

type submitResponse struct {
	Accepted bool          `json:"accepted"`
	State    chat.Snapshot `json:"state"`
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/widgets", h.handleMount)
	r.Route("/widgets/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Delete("/", h.handleUnmount)
		r.Put("/draft", h.handleUpdateDraft)
		r.Post("/submit", h.handleSubmit)
	})
}

// handleMount 挂载一个新的聊天组件
func (h *Handler) handleMount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, widget, err := h.chatSvc.Mount(r.Context(), payload.PersonaID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, mountResponse{Session: session, State: widget.Snapshot()})
}

// handleState 返回当前渲染状态
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	widget, err := h.chatSvc.Widget(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, widget.Snapshot())
}

// handleUpdateDraft 更新输入框草稿
func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	widget, err := h.chatSvc.Widget(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	widget.UpdateDraft(payload.Text)
	utils.RespondJSON(w, http.StatusOK, widget.Snapshot())
}

// handleSubmit 提交用户消息，未携带 text 时提交当前草稿。
// 被拒绝的提交不视为错误，响应中 accepted 为 false。
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text *string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	widget, err := h.chatSvc.Widget(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var accepted bool
	if payload.Text != nil {
		accepted = widget.Send(*payload.Text)
	} else {
		accepted = widget.SendDraft()
	}

	status := http.StatusOK
	if accepted {
		status = http.StatusAccepted
	}
	utils.RespondJSON(w, status, submitResponse{Accepted: accepted, State: widget.Snapshot()})
}

// handleUnmount 卸载聊天组件
func (h *Handler) handleUnmount(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Unmount(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrPersonaNotFound):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
