package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-shop/backend/internal/handler/chat"
	"github.com/zhouzirui/z-shop/backend/internal/handler/persona"
	"github.com/zhouzirui/z-shop/backend/internal/handler/stream"
	"github.com/zhouzirui/z-shop/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/z-shop/backend/internal/middleware"
	personaModel "github.com/zhouzirui/z-shop/backend/internal/model/persona"
	chatService "github.com/zhouzirui/z-shop/backend/internal/service/chat"
	"github.com/zhouzirui/z-shop/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(personas).RegisterRoutes(api)
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc, logger).RegisterRoutes(api)
		ws.New(chatSvc, logger).RegisterRoutes(api)
	})

	return r
}
