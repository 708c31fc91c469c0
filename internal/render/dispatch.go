package render

import (
	"fmt"
	"strconv"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

const (
	// NoDataText is shown instead of an empty chart or table.
	NoDataText = "No data available"
	// ClassEmptyState marks the no-data placeholder.
	ClassEmptyState = "empty-state"
	// ClassUnsupported marks the placeholder for unknown component types.
	ClassUnsupported = "unsupported"

	barScale = 100
)

// Render dispatches on t and renders data with the matching variant. Unknown
// types produce an inert placeholder; missing data produces NoDataText.
func Render(t chat.ComponentType, data chat.ComponentData) Element {
	switch t {
	case chat.ComponentWeather:
		return weatherCard(data.Weather)
	case chat.ComponentSalesForecast:
		return salesForecastChart(data.SalesForecast)
	case chat.ComponentExpenses:
		return expensesChart(data.Expenses)
	case chat.ComponentAppointments:
		return appointmentsTable(data.Appointments)
	default:
		return unsupported(t)
	}
}

// RenderComponent renders c, reporting false when c is nil.
func RenderComponent(c *chat.Component) (Element, bool) {
	if c == nil {
		return Element{}, false
	}
	return Render(c.Type, c.Data), true
}

func emptyState(variant chat.ComponentType) Element {
	return el("div", "component "+ClassEmptyState, NoDataText).
		with(Attr{Key: "data-component", Value: string(variant)})
}

func unsupported(t chat.ComponentType) Element {
	return el("div", "component "+ClassUnsupported, fmt.Sprintf("Unsupported component: %s", t)).
		with(Attr{Key: "data-component", Value: string(t)})
}

func weatherCard(data *chat.WeatherData) Element {
	if data == nil {
		return emptyState(chat.ComponentWeather)
	}

	title := "Weather"
	if data.Location != "" {
		title = "Weather in " + data.Location
	}

	return el("div", "component weather-card",
		"",
		el("div", "weather-title", title),
		el("div", "weather-temperature", formatNumber(data.Temperature)+"°F"),
		el("div", "weather-condition", data.Condition),
	).with(Attr{Key: "data-component", Value: string(chat.ComponentWeather)})
}

func salesForecastChart(data *chat.SalesForecastData) Element {
	if data == nil || len(data.ForecastData) == 0 {
		return emptyState(chat.ComponentSalesForecast)
	}

	peak := 0.0
	for _, point := range data.ForecastData {
		if point.Actual != nil && *point.Actual > peak {
			peak = *point.Actual
		}
		if point.Forecast != nil && *point.Forecast > peak {
			peak = *point.Forecast
		}
	}

	rows := make([]Element, 0, len(data.ForecastData))
	for _, point := range data.ForecastData {
		cells := []Element{el("span", "chart-label", point.Month)}
		if point.Actual != nil {
			cells = append(cells, bar("actual", *point.Actual, peak, formatNumber(*point.Actual)))
		}
		if point.Forecast != nil {
			cells = append(cells, bar("forecast", *point.Forecast, peak, formatNumber(*point.Forecast)))
		}
		rows = append(rows, el("div", "chart-row", "", cells...))
	}

	return el("div", "component chart sales-forecast",
		"",
		el("div", "chart-title", "Sales Forecast"),
		el("div", "chart-legend", "",
			el("span", "legend actual", "Actual"),
			el("span", "legend forecast", "Forecast"),
		),
		el("div", "chart-body", "", rows...),
	).with(Attr{Key: "data-component", Value: string(chat.ComponentSalesForecast)})
}

func expensesChart(data *chat.ExpensesData) Element {
	if data == nil || len(data.ExpensesData) == 0 {
		return emptyState(chat.ComponentExpenses)
	}

	total, peak := 0.0, 0.0
	for _, expense := range data.ExpensesData {
		total += expense.Amount
		if expense.Amount > peak {
			peak = expense.Amount
		}
	}

	rows := make([]Element, 0, len(data.ExpensesData))
	for _, expense := range data.ExpensesData {
		share := 0.0
		if total > 0 {
			share = expense.Amount / total * 100
		}
		rows = append(rows, el("div", "chart-row", "",
			el("span", "chart-label", expense.Category),
			bar("amount", expense.Amount, peak, formatMoney(expense.Amount)),
			el("span", "chart-share", fmt.Sprintf("%.0f%%", share)),
		))
	}

	return el("div", "component chart expenses",
		"",
		el("div", "chart-title", "Expenses"),
		el("div", "chart-body", "", rows...),
		el("div", "chart-total", "Total "+formatMoney(total)),
	).with(Attr{Key: "data-component", Value: string(chat.ComponentExpenses)})
}

func appointmentsTable(data *chat.AppointmentsData) Element {
	if data == nil || len(data.Appointments) == 0 {
		return emptyState(chat.ComponentAppointments)
	}

	header := el("tr", "", "",
		el("th", "", "Title"),
		el("th", "", "Time"),
		el("th", "", "With"),
		el("th", "", "Location"),
	)

	rows := make([]Element, 0, len(data.Appointments))
	for _, appt := range data.Appointments {
		rows = append(rows, el("tr", "", "",
			el("td", "", appt.Title),
			el("td", "", appt.Time),
			el("td", "", appt.With),
			el("td", "", appt.Location),
		))
	}

	return el("div", "component appointments",
		"",
		el("div", "chart-title", "Appointments"),
		el("table", "appointments-table", "",
			el("thead", "", "", header),
			el("tbody", "", "", rows...),
		),
	).with(Attr{Key: "data-component", Value: string(chat.ComponentAppointments)})
}

// bar is a horizontal bar whose width is value relative to peak, in percent.
func bar(series string, value, peak float64, label string) Element {
	width := 0
	if peak > 0 && value > 0 {
		width = int(value / peak * barScale)
	}
	return el("span", "chart-bar "+series, label).with(
		Attr{Key: "style", Value: fmt.Sprintf("width:%d%%", width)},
		Attr{Key: "data-width", Value: strconv.Itoa(width)},
	)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}
