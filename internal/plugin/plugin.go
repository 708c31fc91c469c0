// Package plugin connects the chat session controller to the host
// application's plugin API: it registers the header button and mounts or
// unmounts the chat widget into the container the host provides.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/copilot-extension/backend/internal/logging"
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/render"
)

const (
	// ButtonIcon names the header button icon.
	ButtonIcon = "copilot"
	// ButtonTooltip is shown when hovering the header button.
	ButtonTooltip = "Mattermost Copilot"
)

var (
	ErrAlreadyInitialized = errors.New("plugin already initialized")
	ErrNotInitialized     = errors.New("plugin not initialized")
	ErrWidgetClosed       = errors.New("chat widget is closed")
)

// Registry is the part of the host plugin API the extension uses.
type Registry interface {
	RegisterChannelHeaderButtonAction(icon string, action func(), tooltip string)
}

// StateAccessor exposes the host application's current state.
type StateAccessor interface {
	State() chat.HostContext
}

// Container is the element the widget is mounted into.
type Container interface {
	Mount(root render.Element)
	Unmount()
}

// Conversation is the session controller as seen by the widget.
type Conversation interface {
	CreateSession(ctx context.Context, host chat.HostContext) (chat.Session, error)
	Transcript(ctx context.Context, sessionID string) ([]chat.Turn, error)
	Submit(ctx context.Context, sessionID, text string) (chat.Turn, bool, error)
	Subscribe(sessionID string) (<-chan chat.Turn, func(), error)
}

// Plugin is the extension's entry point.
type Plugin struct {
	conv      Conversation
	container Container
	logger    *zap.Logger

	mu          sync.Mutex
	initialized bool
	state       StateAccessor
	sessionID   string
	open      bool
	stop      chan struct{}
	following chan struct{}
}

// New builds a Plugin that mounts its widget into container.
func New(conv Conversation, container Container, logger *zap.Logger) *Plugin {
	return &Plugin{
		conv:      conv,
		container: container,
		logger:    logging.OrNop(logger).With(zap.String("component", "plugin")),
	}
}

// Initialize registers the header button. The host calls it once at load.
func (p *Plugin) Initialize(_ context.Context, registry Registry, state StateAccessor) error {
	p.mu.Lock()
	if p.initialized {
		p.mu.Unlock()
		return ErrAlreadyInitialized
	}
	p.initialized = true
	p.state = state
	p.mu.Unlock()

	registry.RegisterChannelHeaderButtonAction(ButtonIcon, p.Toggle, ButtonTooltip)
	p.logger.Info("copilot extension plugin initialized", zap.String("id", ID))
	return nil
}

// Toggle opens the widget when closed and closes it when open. It is the
// header button callback, so failures are logged rather than returned.
func (p *Plugin) Toggle() {
	if p.IsOpen() {
		p.Close()
		return
	}
	if err := p.Open(context.Background()); err != nil {
		p.logger.Error("failed to open chat widget", zap.Error(err))
	}
}

// IsOpen reports whether the widget is mounted.
func (p *Plugin) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// SessionID returns the widget's session, empty until first opened.
func (p *Plugin) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID
}

// Open mounts the widget, creating the session on first use, and keeps it
// in sync with every appended turn.
func (p *Plugin) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return ErrNotInitialized
	}
	if p.open {
		return nil
	}

	if p.sessionID == "" {
		var host chat.HostContext
		if p.state != nil {
			host = p.state.State()
		}
		session, err := p.conv.CreateSession(ctx, host)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		p.sessionID = session.ID
	}

	updates, unsubscribe, err := p.conv.Subscribe(p.sessionID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	sessionID := p.sessionID
	if err := p.mount(ctx, sessionID); err != nil {
		unsubscribe()
		return err
	}

	stop := make(chan struct{})
	following := make(chan struct{})
	go p.follow(sessionID, updates, unsubscribe, stop, following)

	p.open = true
	p.stop = stop
	p.following = following
	return nil
}

// Close unmounts the widget. The session and its log are kept for reopening.
func (p *Plugin) Close() {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return
	}
	stop, following := p.stop, p.following
	p.open = false
	p.stop = nil
	p.following = nil
	p.mu.Unlock()

	close(stop)
	<-following
	p.container.Unmount()
}

// Submit sends text from the widget's input field.
func (p *Plugin) Submit(ctx context.Context, text string) (chat.Turn, bool, error) {
	p.mu.Lock()
	sessionID, open := p.sessionID, p.open
	p.mu.Unlock()

	if !open {
		return chat.Turn{}, false, ErrWidgetClosed
	}
	return p.conv.Submit(ctx, sessionID, text)
}

// follow re-mounts the widget after every appended turn so the newest turn
// is always in view. If the session evicts the subscription for lagging, it
// subscribes again and re-mounts from the full transcript.
func (p *Plugin) follow(sessionID string, updates <-chan chat.Turn, unsubscribe func(), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() { unsubscribe() }()

	for {
		select {
		case <-stop:
			return
		case _, ok := <-updates:
			if !ok {
				select {
				case <-stop:
					return
				default:
				}
				var err error
				updates, unsubscribe, err = p.conv.Subscribe(sessionID)
				if err != nil {
					unsubscribe = func() {}
					p.logger.Error("failed to resubscribe chat widget", zap.String("session", sessionID), zap.Error(err))
					return
				}
				p.logger.Info("chat widget resubscribed after falling behind", zap.String("session", sessionID))
			}
			if err := p.mount(context.Background(), sessionID); err != nil {
				p.logger.Warn("failed to refresh chat widget", zap.String("session", sessionID), zap.Error(err))
			}
		}
	}
}

func (p *Plugin) mount(ctx context.Context, sessionID string) error {
	turns, err := p.conv.Transcript(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}
	p.container.Mount(render.Widget(render.WidgetTitle, turns))
	return nil
}
