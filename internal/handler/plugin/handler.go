package plugin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/copilot-extension/backend/internal/host"
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/plugin"
	"github.com/zhouzirui/copilot-extension/backend/internal/render"
	"github.com/zhouzirui/copilot-extension/backend/pkg/utils"
)

// Handler exposes the in-process host and the plugin running inside it.
type Handler struct {
	host   *host.Host
	plugin *plugin.Plugin
}

// New creates a plugin handler.
func New(h *host.Host, p *plugin.Plugin) *Handler {
	return &Handler{host: h, plugin: p}
}

// RegisterRoutes 注册插件相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/manifest", h.handleManifest)
	r.Get("/buttons", h.handleButtons)
	r.Post("/buttons/{index}/click", h.handleClick)
	r.Get("/container", h.handleContainer)
	r.Post("/messages", h.handleSubmit)
	r.Put("/state", h.handleSetState)
}

// WidgetStatus reports the widget state after a header button click.
type WidgetStatus struct {
	Open      bool   `json:"open"`
	SessionID string `json:"sessionId,omitempty"`
}

func (h *Handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, plugin.DefaultManifest())
}

func (h *Handler) handleButtons(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.host.Buttons())
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "button index must be an integer")
		return
	}

	if err := h.host.Click(index); err != nil {
		if errors.Is(err, host.ErrButtonNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, WidgetStatus{
		Open:      h.plugin.IsOpen(),
		SessionID: h.plugin.SessionID(),
	})
}

// handleContainer returns what is currently mounted, 204 when nothing is.
func (h *Handler) handleContainer(w http.ResponseWriter, r *http.Request) {
	root, ok := h.host.Mounted()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(render.Terminal(root)))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(render.HTML(root)))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, accepted, err := h.plugin.Submit(r.Context(), payload.Text)
	if err != nil {
		if errors.Is(err, plugin.ErrWidgetClosed) {
			utils.RespondError(w, http.StatusConflict, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !accepted {
		utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "turn": turn})
}

// handleSetState changes the team, channel and user the host reports.
func (h *Handler) handleSetState(w http.ResponseWriter, r *http.Request) {
	var state chat.HostContext
	if err := utils.DecodeJSON(w, r, &state); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.host.SetState(state)
	utils.RespondJSON(w, http.StatusOK, state)
}
