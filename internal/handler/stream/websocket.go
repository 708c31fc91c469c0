package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage is the payload of an inbound "message" frame.
type TextMessage struct {
	Text string `json:"text"`
}

// handleWebSocket 处理WebSocket连接：回放历史、推送新轮次、接收用户消息
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	f, backlog, err := h.openFeed(r.Context(), sessionID)
	if err != nil {
		respondFollowError(w, err)
		return
	}
	defer f.close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session", sessionID), zap.Error(err))
		return
	}

	h.logger.Info("websocket connected", zap.String("session", sessionID))
	defer h.logger.Info("websocket closed", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	notices := make(chan Event, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		defer conn.Close()
		h.writeLoop(ctx, conn, f, backlog, notices)
	}()

	h.readLoop(ctx, conn, sessionID, notices)
	cancel()
	<-done
}

// writeLoop is the only goroutine writing to conn. It owns f until it returns.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, f *feed, backlog []chat.Turn, notices <-chan Event) {
	sessionID := f.sessionID
	write := func(ev Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("websocket write failed", zap.String("session", sessionID), zap.Error(err))
			return false
		}
		return true
	}

	connected := Event{
		Type:      EventConnected,
		SessionID: sessionID,
		Data:      map[string]any{"turns": len(backlog)},
		Timestamp: time.Now().Unix(),
	}
	if !write(connected) {
		return
	}
	for _, turn := range backlog {
		if !write(h.turnEvent(turn)) {
			return
		}
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case turn, ok := <-f.updates:
			if !ok {
				turns, err := f.subscribe(ctx)
				if err != nil {
					h.logger.Warn("websocket resync failed", zap.String("session", sessionID), zap.Error(err))
					return
				}
				h.logger.Info("websocket client resynced", zap.String("session", sessionID), zap.Int("turns", len(turns)))
				if !write(h.resyncEvent(sessionID, turns)) {
					return
				}
				continue
			}
			if !f.fresh(turn) {
				continue
			}
			if !write(h.turnEvent(turn)) {
				return
			}
		case ev := <-notices:
			if !write(ev) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string, notices chan<- Event) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	notify := func(message string) {
		ev := Event{
			Type:      EventError,
			SessionID: sessionID,
			Data:      map[string]string{"message": message},
			Timestamp: time.Now().Unix(),
		}
		select {
		case notices <- ev:
		case <-ctx.Done():
		}
	}

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "message":
			var text TextMessage
			if err := json.Unmarshal(msg.Data, &text); err != nil {
				notify("invalid message payload")
				continue
			}
			// The reply arrives through the subscription like any other turn.
			if _, _, err := h.chatSvc.Submit(ctx, sessionID, text.Text); err != nil {
				notify(err.Error())
			}
		default:
			notify("unsupported message type: " + msg.Type)
		}
	}
}
