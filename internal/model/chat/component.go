package chat

// ComponentType is the discriminator of a renderable component.
type ComponentType string

const (
	ComponentWeather       ComponentType = "weather"
	ComponentSalesForecast ComponentType = "sales-forecast"
	ComponentExpenses      ComponentType = "expenses"
	ComponentAppointments  ComponentType = "appointments"
)

// Known reports whether t is one of the component types the dispatcher renders.
func (t ComponentType) Known() bool {
	switch t {
	case ComponentWeather, ComponentSalesForecast, ComponentExpenses, ComponentAppointments:
		return true
	}
	return false
}

// Component is a typed, backend-supplied payload rendered beneath a turn's text.
type Component struct {
	Type ComponentType `json:"type"`
	Data ComponentData `json:"data"`
}

// ComponentData holds the payload of exactly one variant, keyed like the widget expects.
type ComponentData struct {
	Weather       *WeatherData       `json:"weather,omitempty"`
	SalesForecast *SalesForecastData `json:"salesForecast,omitempty"`
	Expenses      *ExpensesData      `json:"expenses,omitempty"`
	Appointments  *AppointmentsData  `json:"appointments,omitempty"`
}

// WeatherData is the flattened weather card payload.
type WeatherData struct {
	Temperature float64 `json:"temperature"`
	Location    string  `json:"location"`
	Condition   string  `json:"condition"`
}

// SalesForecastData feeds the sales forecast chart.
type SalesForecastData struct {
	ForecastData []ForecastPoint `json:"forecastData"`
}

// ForecastPoint is one period of the forecast. Actual is absent for future periods.
type ForecastPoint struct {
	Month    string   `json:"month"`
	Actual   *float64 `json:"actual,omitempty"`
	Forecast *float64 `json:"forecast,omitempty"`
}

// ExpensesData feeds the expenses chart.
type ExpensesData struct {
	ExpensesData []Expense `json:"expensesData"`
}

// Expense is one category total.
type Expense struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// AppointmentsData feeds the appointments table.
type AppointmentsData struct {
	Appointments []Appointment `json:"appointments"`
}

// Appointment is one scheduled meeting.
type Appointment struct {
	Title    string `json:"title"`
	Time     string `json:"time"`
	With     string `json:"with,omitempty"`
	Location string `json:"location,omitempty"`
}
