// Package host is an in-process stand-in for the team-chat application's
// plugin runtime. It records registered header buttons, holds the widget
// container and answers state queries.
package host

import (
	"errors"
	"sync"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
	"github.com/zhouzirui/copilot-extension/backend/internal/render"
)

// ErrButtonNotFound reports a click on a button index that was never registered.
var ErrButtonNotFound = errors.New("button not found")

// Button is a registered channel header action.
type Button struct {
	Icon    string `json:"icon"`
	Tooltip string `json:"tooltip"`
	action  func()
}

// Host implements the registry, state accessor and container the plugin uses.
type Host struct {
	mu      sync.RWMutex
	buttons []Button
	state   chat.HostContext
	mounted *render.Element
}

// New returns a host reporting state as its current team, channel and user.
func New(state chat.HostContext) *Host {
	return &Host{state: state}
}

// RegisterChannelHeaderButtonAction records a header button.
func (h *Host) RegisterChannelHeaderButtonAction(icon string, action func(), tooltip string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buttons = append(h.buttons, Button{Icon: icon, Tooltip: tooltip, action: action})
}

// Buttons lists registered buttons in registration order.
func (h *Host) Buttons() []Button {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Button(nil), h.buttons...)
}

// Click runs the action of the button at index.
func (h *Host) Click(index int) error {
	h.mu.RLock()
	if index < 0 || index >= len(h.buttons) {
		h.mu.RUnlock()
		return ErrButtonNotFound
	}
	action := h.buttons[index].action
	h.mu.RUnlock()

	if action != nil {
		action()
	}
	return nil
}

// State returns the current host context.
func (h *Host) State() chat.HostContext {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// SetState replaces the current host context.
func (h *Host) SetState(state chat.HostContext) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
}

// Mount replaces the container's content with root.
func (h *Host) Mount(root render.Element) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mounted = &root
}

// Unmount empties the container.
func (h *Host) Unmount() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mounted = nil
}

// Mounted returns the container's content, if any.
func (h *Host) Mounted() (render.Element, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.mounted == nil {
		return render.Element{}, false
	}
	return *h.mounted, true
}
