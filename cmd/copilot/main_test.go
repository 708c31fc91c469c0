package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/service/backend"
	chatService "github.com/zhouzirui/copilot-extension/backend/internal/service/chat"
)

type backendFunc func(ctx context.Context, text string) chat.QueryResult

func (f backendFunc) Query(ctx context.Context, text string) chat.QueryResult { return f(ctx, text) }

const weatherReply = `{"output":{"result":"Hi","tool_result":{"type":"weather","temperature":72,"city":"Austin","state":"TX"}}}`

func TestAskPrintsTextAndComponent(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:8000")

	var gotURL, gotAuth string
	a := &app{}
	a.transport = backend.TransportFunc(func(_ context.Context, req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		gotAuth = req.Header.Get("Authorization")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(weatherReply))}, nil
	})

	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ask", "--backend-url", "http://bot.local", "--endpoint", "weather", "--api-key", "k", "weather", "in", "Austin"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "http://bot.local/weather/invoke", gotURL)
	assert.Equal(t, "Bearer k", gotAuth)
	assert.Contains(t, out.String(), "Hi")
	assert.Contains(t, out.String(), "Austin, TX")
	assert.Contains(t, out.String(), "72°F")
}

func TestAskRequiresText(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"ask"})
	assert.Error(t, root.Execute())
}

func TestRunChatPrintsRepliesUntilQuit(t *testing.T) {
	svc, err := chatService.NewService(backendFunc(func(_ context.Context, text string) chat.QueryResult {
		return chat.QueryResult{Text: "echo " + text}
	}))
	require.NoError(t, err)

	in := strings.NewReader("hello\n\n/help\n/quit\nignored\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, in, &out))

	text := out.String()
	assert.Contains(t, text, "Mattermost Copilot")
	assert.Contains(t, text, "/quit, /exit")
	assert.Contains(t, text, "echo hello")
	assert.NotContains(t, text, "ignored")
}

func TestRunChatStopsAtEOF(t *testing.T) {
	svc, err := chatService.NewService(backendFunc(func(_ context.Context, text string) chat.QueryResult {
		return chat.QueryResult{Text: "reply to " + text}
	}))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, strings.NewReader("one\ntwo"), &out))
	assert.Contains(t, out.String(), "reply to one")
	assert.Contains(t, out.String(), "reply to two")
}
