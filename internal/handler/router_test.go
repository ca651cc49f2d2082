package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-shop/backend/internal/model/persona"
	"github.com/zhouzirui/z-shop/backend/internal/service/ai"
	chatService "github.com/zhouzirui/z-shop/backend/internal/service/chat"
)

type noopCompleter struct{}

func (noopCompleter) Complete(context.Context, *persona.Persona, string) ai.Reply {
	return ai.Reply{Text: "ok"}
}

func TestRouterWiresAPI(t *testing.T) {
	personas := persona.NewMemoryStore(persona.Seed())
	chatSvc := chatService.NewService(personas, noopCompleter{}, nil)
	defer chatSvc.Shutdown()
	router := NewRouter(personas, chatSvc, nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/personas", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/widgets", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusCreated, resp.Code)

	var mounted struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &mounted))

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/widgets/"+mounted.Session.ID, nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
