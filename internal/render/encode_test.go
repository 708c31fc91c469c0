package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

func TestHTMLEscapesTextAndAttributes(t *testing.T) {
	e := el("div", "turn-text", `<script>alert("x")</script>`).with(Attr{Key: "data-turn-id", Value: `a"b`})

	assert.Equal(t,
		`<div class="turn-text" data-turn-id="a&#34;b">&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;</div>`,
		HTML(e))
}

func TestHTMLVoidElements(t *testing.T) {
	e := el("input", "", "").with(Attr{Key: "type", Value: "text"})
	assert.Equal(t, `<input type="text">`, HTML(e))
}

func TestHTMLEmptyState(t *testing.T) {
	got := HTML(Render(chat.ComponentExpenses, chat.ComponentData{Expenses: &chat.ExpensesData{}}))
	assert.Equal(t, `<div class="component empty-state" data-component="expenses">No data available</div>`, got)
}

func TestRenderTurnPlacesComponentBeneathText(t *testing.T) {
	turn := chat.Turn{
		ID:        "t-1",
		Text:      "Hi",
		IsBot:     true,
		Timestamp: time.Date(2026, 1, 2, 9, 5, 0, 0, time.UTC),
		Component: &chat.Component{Type: chat.ComponentWeather, Data: chat.ComponentData{
			Weather: &chat.WeatherData{Temperature: 72, Location: "Austin, TX", Condition: "Available"},
		}},
	}

	got := RenderTurn(turn)
	assert.True(t, got.HasClass("turn-bot"))
	assert.Len(t, got.Children, 3)
	assert.Equal(t, "Hi", got.Children[0].Text)
	assert.True(t, got.Children[1].HasClass("weather-card"))
	assert.Equal(t, "09:05", got.Children[2].Text)
}

func TestWidgetListsTurnsInOrder(t *testing.T) {
	turns := []chat.Turn{
		{ID: "1", Text: "what's up"},
		{ID: "2", Text: "not much", IsBot: true},
	}

	w := Widget("", turns)
	messages, ok := w.Find("widget-messages")
	assert.True(t, ok)
	assert.Len(t, messages.Children, 3)
	assert.Equal(t, WelcomeText, messages.Children[0].Text)
	assert.Equal(t, "what's up", messages.Children[1].Children[0].Text)
	assert.Equal(t, "not much", messages.Children[2].Children[0].Text)

	title, _ := w.Find("widget-title")
	assert.Equal(t, WidgetTitle, title.Text)
}

func TestTerminalRendering(t *testing.T) {
	weather := Terminal(Render(chat.ComponentWeather, chat.ComponentData{
		Weather: &chat.WeatherData{Temperature: 72, Location: "Austin, TX", Condition: "Available"},
	}))
	assert.Contains(t, weather, "Weather in Austin, TX")
	assert.Contains(t, weather, "72°F")

	empty := Terminal(Render(chat.ComponentExpenses, chat.ComponentData{}))
	assert.Contains(t, empty, NoDataText)

	appts := Terminal(Render(chat.ComponentAppointments, chat.ComponentData{Appointments: &chat.AppointmentsData{
		Appointments: []chat.Appointment{{Title: "Standup", Time: "09:00"}},
	}}))
	assert.Contains(t, appts, "Title")
	assert.Contains(t, appts, "Standup")

	widget := Terminal(Widget("", []chat.Turn{{ID: "1", Text: "hello"}}))
	assert.Contains(t, widget, "You:")
	assert.Contains(t, widget, "hello")
	assert.Contains(t, widget, InputPlaceholder)
	assert.NotContains(t, widget, "×")
}
