package render

import (
	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

const (
	// WidgetTitle is the chat widget header.
	WidgetTitle = "Mattermost Copilot"
	// WelcomeText opens every conversation.
	WelcomeText = "Hello! How can I help you today?"
	// InputPlaceholder is shown in the empty input field.
	InputPlaceholder = "Type your message..."
)

// RenderTurn renders one turn: its text with the component, if any, beneath it.
func RenderTurn(turn chat.Turn) Element {
	class := "turn turn-user"
	if turn.IsBot {
		class = "turn turn-bot"
	}

	children := []Element{el("div", "turn-text", turn.Text)}
	if component, ok := RenderComponent(turn.Component); ok {
		children = append(children, component)
	}
	if !turn.Timestamp.IsZero() {
		children = append(children, el("div", "turn-time", turn.Timestamp.Format("15:04")))
	}

	return el("div", class, "", children...).with(Attr{Key: "data-turn-id", Value: turn.ID})
}

// Widget renders the floating chat window holding turns in display order.
func Widget(title string, turns []chat.Turn) Element {
	if title == "" {
		title = WidgetTitle
	}

	messages := make([]Element, 0, len(turns)+1)
	messages = append(messages, el("div", "turn turn-bot welcome", WelcomeText))
	for _, turn := range turns {
		messages = append(messages, RenderTurn(turn))
	}

	return el("div", "copilot-widget", "",
		el("div", "widget-header", "",
			el("h3", "widget-title", title),
			el("button", "widget-close", "×"),
		),
		el("div", "widget-messages", "", messages...),
		el("div", "widget-input", "",
			el("input", "", "").with(
				Attr{Key: "type", Value: "text"},
				Attr{Key: "placeholder", Value: InputPlaceholder},
			),
		),
	)
}
