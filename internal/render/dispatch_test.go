package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

func f(v float64) *float64 { return &v }

func TestRenderWeatherCard(t *testing.T) {
	got := Render(chat.ComponentWeather, chat.ComponentData{
		Weather: &chat.WeatherData{Temperature: 72, Location: "Austin, TX", Condition: "Available"},
	})

	assert.True(t, got.HasClass("weather-card"))
	title, ok := got.Find("weather-title")
	require.True(t, ok)
	assert.Equal(t, "Weather in Austin, TX", title.Text)
	temp, ok := got.Find("weather-temperature")
	require.True(t, ok)
	assert.Equal(t, "72°F", temp.Text)
}

func TestRenderUnknownTypeIsInertPlaceholder(t *testing.T) {
	var got Element
	assert.NotPanics(t, func() {
		got = Render(chat.ComponentType("stock-ticker"), chat.ComponentData{})
	})

	assert.True(t, got.HasClass(ClassUnsupported))
	assert.Equal(t, "Unsupported component: stock-ticker", got.Text)
	assert.Empty(t, got.Children)
}

func TestRenderEmptyDataShowsPlaceholder(t *testing.T) {
	cases := map[string]struct {
		t    chat.ComponentType
		data chat.ComponentData
	}{
		"expenses empty array": {chat.ComponentExpenses, chat.ComponentData{Expenses: &chat.ExpensesData{ExpensesData: []chat.Expense{}}}},
		"expenses nil":         {chat.ComponentExpenses, chat.ComponentData{}},
		"forecast empty":       {chat.ComponentSalesForecast, chat.ComponentData{SalesForecast: &chat.SalesForecastData{}}},
		"appointments empty":   {chat.ComponentAppointments, chat.ComponentData{Appointments: &chat.AppointmentsData{}}},
		"weather missing":      {chat.ComponentWeather, chat.ComponentData{}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Render(tc.t, tc.data)
			assert.True(t, got.HasClass(ClassEmptyState))
			assert.Equal(t, NoDataText, got.Text)
			_, hasChart := got.Find("chart-body")
			assert.False(t, hasChart)
		})
	}
}

func TestRenderExpensesChart(t *testing.T) {
	got := Render(chat.ComponentExpenses, chat.ComponentData{Expenses: &chat.ExpensesData{ExpensesData: []chat.Expense{
		{Category: "Travel", Amount: 300},
		{Category: "Meals", Amount: 100},
	}}})

	body, ok := got.Find("chart-body")
	require.True(t, ok)
	require.Len(t, body.Children, 2)

	first := body.Children[0]
	assert.Equal(t, "Travel", first.Children[0].Text)
	assert.Equal(t, "$300.00", first.Children[1].Text)
	width, _ := first.Children[1].Attr("data-width")
	assert.Equal(t, "100", width)
	assert.Equal(t, "75%", first.Children[2].Text)

	total, ok := got.Find("chart-total")
	require.True(t, ok)
	assert.Equal(t, "Total $400.00", total.Text)
}

func TestRenderSalesForecastChart(t *testing.T) {
	got := Render(chat.ComponentSalesForecast, chat.ComponentData{SalesForecast: &chat.SalesForecastData{ForecastData: []chat.ForecastPoint{
		{Month: "Jan", Actual: f(50), Forecast: f(40)},
		{Month: "Feb", Forecast: f(100)},
	}}})

	body, ok := got.Find("chart-body")
	require.True(t, ok)
	require.Len(t, body.Children, 2)

	jan := body.Children[0]
	require.Len(t, jan.Children, 3)
	width, _ := jan.Children[1].Attr("data-width")
	assert.Equal(t, "50", width)

	feb := body.Children[1]
	require.Len(t, feb.Children, 2)
	assert.True(t, feb.Children[1].HasClass("forecast"))
}

func TestRenderAppointmentsTable(t *testing.T) {
	got := Render(chat.ComponentAppointments, chat.ComponentData{Appointments: &chat.AppointmentsData{Appointments: []chat.Appointment{
		{Title: "Standup", Time: "09:00", With: "Team"},
		{Title: "1:1", Time: "14:30", With: "Dana", Location: "Room 4"},
	}}})

	tableEl, ok := got.Find("appointments-table")
	require.True(t, ok)
	require.Len(t, tableEl.Children, 2)
	assert.Len(t, tableEl.Children[1].Children, 2)
	assert.Equal(t, "Room 4", tableEl.Children[1].Children[1].Children[3].Text)
}

func TestRenderIsDeterministic(t *testing.T) {
	components := []chat.Component{
		{Type: chat.ComponentWeather, Data: chat.ComponentData{Weather: &chat.WeatherData{Temperature: 61.5, Location: "Lyon", Condition: "Rain"}}},
		{Type: chat.ComponentExpenses, Data: chat.ComponentData{Expenses: &chat.ExpensesData{ExpensesData: []chat.Expense{{Category: "Ops", Amount: 12}}}}},
		{Type: chat.ComponentSalesForecast, Data: chat.ComponentData{SalesForecast: &chat.SalesForecastData{ForecastData: []chat.ForecastPoint{{Month: "Apr", Actual: f(3)}}}}},
		{Type: chat.ComponentAppointments, Data: chat.ComponentData{Appointments: &chat.AppointmentsData{Appointments: []chat.Appointment{{Title: "Sync", Time: "10:00"}}}}},
		{Type: chat.ComponentType("mystery")},
	}

	for _, c := range components {
		t.Run(string(c.Type), func(t *testing.T) {
			first := Render(c.Type, c.Data)
			second := Render(c.Type, c.Data)
			assert.Equal(t, first, second)
			assert.Equal(t, HTML(first), HTML(second))
			assert.Equal(t, Terminal(first), Terminal(second))
		})
	}
}
