package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/render"
	chatService "github.com/zhouzirui/copilot-extension/backend/internal/service/chat"
)

const chatHelp = `Commands:
  /quit, /exit  leave the chat
  /help         show this help`

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the copilot backend",
		Long: `Start an interactive chat session. Type a message and press Enter;
replies are printed as they arrive.

Special commands:
  /quit, /exit  - Exit the chat session
  /help         - Show available commands`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := chatService.NewService(a.client(), chatService.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// lockedWriter serializes writes from the input loop and the turn printer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runChat reads lines from in until EOF or /quit and prints every turn the
// session appends.
func runChat(ctx context.Context, svc *chatService.Service, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w := &lockedWriter{w: out}

	session, err := svc.CreateSession(ctx, chat.HostContext{})
	if err != nil {
		return err
	}

	turns, unsubscribe, err := svc.Subscribe(session.ID)
	if err != nil {
		return err
	}

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for turn := range turns {
			fmt.Fprintln(w, render.Terminal(render.RenderTurn(turn)))
		}
	}()

	fmt.Fprintln(w, render.Terminal(render.Widget(render.WidgetTitle, nil)))
	fmt.Fprintln(w, "Type your message and press Enter. Use /help for commands, /quit to exit.")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return finishChat(ctx, svc, unsubscribe, printed)
		case "/help":
			fmt.Fprintln(w, chatHelp)
			continue
		}

		if _, _, err := svc.Submit(ctx, session.ID, line); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		_ = finishChat(ctx, svc, unsubscribe, printed)
		return fmt.Errorf("read input: %w", err)
	}
	return finishChat(ctx, svc, unsubscribe, printed)
}

// finishChat waits for pending replies, then flushes the printer.
func finishChat(ctx context.Context, svc *chatService.Service, unsubscribe func(), printed <-chan struct{}) error {
	err := svc.Drain(ctx)
	unsubscribe()
	<-printed
	return err
}
