package chat

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/render"
	chatService "github.com/zhouzirui/copilot-extension/backend/internal/service/chat"
	"github.com/zhouzirui/copilot-extension/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/turns", h.handleTranscript)
		r.Post("/messages", h.handleSubmit)
		r.Get("/view", h.handleView)
	})
}

// SubmitResponse acknowledges a submitted message.
type SubmitResponse struct {
	Status string     `json:"status"`
	Turn   *chat.Turn `json:"turn,omitempty"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty one creates a session without host context.
	var payload chat.HostContext
	if err := utils.DecodeJSON(w, r, &payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chatSvc.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

// handleSubmit 提交用户消息，回复异步追加
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, accepted, err := h.chatSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !accepted {
		utils.RespondJSON(w, http.StatusAccepted, SubmitResponse{Status: "ignored"})
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, SubmitResponse{Status: "queued", Turn: &turn})
}

// handleView renders the whole widget as HTML or, with format=text, as terminal text.
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chatSvc.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	widget := render.Widget(render.WidgetTitle, turns)
	switch r.URL.Query().Get("format") {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(render.HTML(widget)))
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(render.Terminal(widget)))
	default:
		utils.RespondError(w, http.StatusBadRequest, "format must be html or text")
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}
