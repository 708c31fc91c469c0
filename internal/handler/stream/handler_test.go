package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/copilot-extension/backend/internal/service/chat"
)

type backendFunc func(ctx context.Context, text string) chat.QueryResult

func (f backendFunc) Query(ctx context.Context, text string) chat.QueryResult { return f(ctx, text) }

func weatherBackend() backendFunc {
	return func(_ context.Context, text string) chat.QueryResult {
		return chat.QueryResult{
			Text: "Here is the weather",
			Component: &chat.Component{Type: chat.ComponentWeather, Data: chat.ComponentData{
				Weather: &chat.WeatherData{Temperature: 72, Location: "Austin, TX", Condition: "Available"},
			}},
		}
	}
}

func setupServer(t *testing.T) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	svc, err := chatservice.NewService(weatherBackend())
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Drain(ctx)
	})
	return srv, svc
}

type wireEvent struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

type wireTurn struct {
	Turn chat.Turn `json:"turn"`
	HTML string    `json:"html"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func readTurn(t *testing.T, conn *websocket.Conn) wireTurn {
	t.Helper()
	ev := readEvent(t, conn)
	require.Equal(t, EventTurn, ev.Type)
	var payload wireTurn
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	return payload
}

func TestWebSocketReplaysAndStreamsTurns(t *testing.T) {
	srv, svc := setupServer(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, chat.HostContext{ChannelID: "town-square"})
	require.NoError(t, err)
	_, _, err = svc.Submit(ctx, session.ID, "earlier question")
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, EventConnected, readEvent(t, conn).Type)

	first := readTurn(t, conn)
	assert.Equal(t, "earlier question", first.Turn.Text)
	second := readTurn(t, conn)
	assert.True(t, second.Turn.IsBot)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "message",
		"data": map[string]string{"text": "weather in Austin?"},
	}))

	user := readTurn(t, conn)
	assert.Equal(t, "weather in Austin?", user.Turn.Text)
	assert.False(t, user.Turn.IsBot)

	bot := readTurn(t, conn)
	assert.True(t, bot.Turn.IsBot)
	assert.Equal(t, user.Turn.ID, bot.Turn.ReplyTo)
	assert.Contains(t, bot.HTML, "Weather in Austin, TX")
	assert.Contains(t, bot.HTML, "72°F")
}

func TestWebSocketRejectsUnknownFrames(t *testing.T) {
	srv, svc := setupServer(t)
	session, err := svc.CreateSession(context.Background(), chat.HostContext{})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, EventConnected, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio"}))
	ev := readEvent(t, conn)
	assert.Equal(t, EventError, ev.Type)
	assert.Contains(t, string(ev.Data), "unsupported message type")
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _ := setupServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSSEReplaysBacklogAndStreams(t *testing.T) {
	srv, svc := setupServer(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, chat.HostContext{})
	require.NoError(t, err)
	_, _, err = svc.Submit(ctx, session.ID, "hello")
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"/stream/"+session.ID, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var events []string
	var turns []wireTurn
	submitted := false
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok && events[len(events)-1] == EventTurn {
			var ev struct {
				Data wireTurn `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(data), &ev))
			turns = append(turns, ev.Data)
		}
		if len(turns) == 2 && !submitted {
			submitted = true
			_, _, err = svc.Submit(ctx, session.ID, "again")
			require.NoError(t, err)
		}
		if len(turns) == 4 {
			break
		}
	}

	require.Len(t, turns, 4)
	assert.Equal(t, EventConnected, events[0])
	assert.Equal(t, "hello", turns[0].Turn.Text)
	assert.Equal(t, "again", turns[2].Turn.Text)
	assert.Equal(t, turns[2].Turn.ID, turns[3].Turn.ReplyTo)
}

func TestSSEUnknownSession(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/stream/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedRecoversAfterEviction(t *testing.T) {
	svc, err := chatservice.NewService(weatherBackend())
	require.NoError(t, err)
	ctx := context.Background()
	session, err := svc.CreateSession(ctx, chat.HostContext{})
	require.NoError(t, err)

	h := New(svc, nil)
	f, backlog, err := h.openFeed(ctx, session.ID)
	require.NoError(t, err)
	defer f.close()
	assert.Empty(t, backlog)

	// Nobody reads while 40 turns are appended, so the subscription is dropped.
	for i := 0; i < 20; i++ {
		_, _, err = svc.Submit(ctx, session.ID, "flood")
		require.NoError(t, err)
	}
	require.NoError(t, svc.Drain(ctx))

	delivered := 0
	for turn := range f.updates {
		if f.fresh(turn) {
			delivered++
		}
	}
	assert.Less(t, delivered, 40)

	turns, err := f.subscribe(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 40)

	ev := h.resyncEvent(session.ID, turns)
	assert.Equal(t, EventResync, ev.Type)
	payload, ok := ev.Data.(ResyncPayload)
	require.True(t, ok)
	require.Len(t, payload.Turns, 40)
	assert.Contains(t, payload.Turns[1].HTML, "Weather in Austin, TX")

	_, _, err = svc.Submit(ctx, session.ID, "after")
	require.NoError(t, err)
	require.NoError(t, svc.Drain(ctx))

	next := <-f.updates
	assert.Equal(t, "after", next.Text)
	assert.True(t, f.fresh(next))
	assert.False(t, f.fresh(next))
}
