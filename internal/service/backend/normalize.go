package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zhouzirui/copilot-extension/backend/internal/model/chat"
)

const (
	// ApologyText replaces any reply that could not be obtained or understood.
	ApologyText = "Sorry, I encountered an error processing your request."
	// AcknowledgementText stands in for a reply without result text.
	AcknowledgementText = "I received your message"
	// defaultWeatherCondition is shown when the backend omits the condition.
	defaultWeatherCondition = "Available"
)

// ErrMissingOutput reports a backend reply without an output object.
var ErrMissingOutput = errors.New("backend response missing output")

// Apology is the fallback result for every failure path.
func Apology() chat.QueryResult {
	return chat.QueryResult{Text: ApologyText}
}

// InvokeRequest is the conversation envelope posted to <endpoint>/invoke.
type InvokeRequest struct {
	Input InvokeInput `json:"input"`
}

// InvokeInput holds the new turns and the prior history.
type InvokeInput struct {
	Input       []InvokeMessage `json:"input"`
	ChatHistory []InvokeMessage `json:"chat_history"`
}

// InvokeMessage is a single conversation entry.
type InvokeMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NewInvokeRequest wraps text as a single human turn with empty history.
func NewInvokeRequest(text string) InvokeRequest {
	return InvokeRequest{
		Input: InvokeInput{
			Input:       []InvokeMessage{{Type: "human", Content: text}},
			ChatHistory: []InvokeMessage{},
		},
	}
}

type invokeResponse struct {
	Output *invokeOutput `json:"output"`
}

type invokeOutput struct {
	Result     string          `json:"result"`
	ToolResult json.RawMessage `json:"tool_result"`
}

// Normalize converts a raw backend reply into a QueryResult. Untagged or
// unknown tool results yield no component; only undecodable replies fail.
func Normalize(body []byte) (chat.QueryResult, error) {
	result, _, err := normalize(body)
	return result, err
}

// normalize also returns the tag of a tool result it dropped, if any.
func normalize(body []byte) (chat.QueryResult, string, error) {
	var resp invokeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return chat.QueryResult{}, "", fmt.Errorf("decode backend response: %w", err)
	}
	if resp.Output == nil {
		return chat.QueryResult{}, "", ErrMissingOutput
	}

	result := chat.QueryResult{Text: resp.Output.Result}
	if result.Text == "" {
		result.Text = AcknowledgementText
	}

	raw := bytes.TrimSpace(resp.Output.ToolResult)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return result, "", nil
	}

	component, tag, err := decodeToolResult(raw)
	if err != nil {
		return chat.QueryResult{}, "", err
	}
	if component == nil {
		return result, tag, nil
	}
	result.Component = component
	return result, "", nil
}

func decodeToolResult(raw json.RawMessage) (*chat.Component, string, error) {
	// Only an object with a string "type" can name a component. Anything else
	// is treated like an unknown tag.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, toolResultKind(raw), nil
	}
	var tag string
	if err := json.Unmarshal(fields["type"], &tag); err != nil {
		return nil, string(bytes.TrimSpace(fields["type"])), nil
	}

	componentType := chat.ComponentType(tag)
	var data chat.ComponentData

	switch componentType {
	case chat.ComponentWeather:
		var payload struct {
			Temperature float64 `json:"temperature"`
			City        string  `json:"city"`
			State       string  `json:"state"`
			Condition   string  `json:"condition"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, "", fmt.Errorf("decode %s tool_result: %w", componentType, err)
		}
		condition := strings.TrimSpace(payload.Condition)
		if condition == "" {
			condition = defaultWeatherCondition
		}
		data.Weather = &chat.WeatherData{
			Temperature: payload.Temperature,
			Location:    joinLocation(payload.City, payload.State),
			Condition:   condition,
		}

	case chat.ComponentSalesForecast:
		var payload struct {
			ForecastData []chat.ForecastPoint `json:"forecastData"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, "", fmt.Errorf("decode %s tool_result: %w", componentType, err)
		}
		data.SalesForecast = &chat.SalesForecastData{ForecastData: payload.ForecastData}

	case chat.ComponentExpenses:
		var payload struct {
			ExpensesData []chat.Expense `json:"expensesData"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, "", fmt.Errorf("decode %s tool_result: %w", componentType, err)
		}
		data.Expenses = &chat.ExpensesData{ExpensesData: payload.ExpensesData}

	case chat.ComponentAppointments:
		var payload struct {
			Appointments []chat.Appointment `json:"appointments"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, "", fmt.Errorf("decode %s tool_result: %w", componentType, err)
		}
		data.Appointments = &chat.AppointmentsData{Appointments: payload.Appointments}

	default:
		// Untagged payloads are not guessed from their shape.
		return nil, tag, nil
	}

	return &chat.Component{Type: componentType, Data: data}, "", nil
}

// toolResultKind names a non-object tool result for logging.
func toolResultKind(raw json.RawMessage) string {
	switch raw[0] {
	case '"':
		return "<string>"
	case '[':
		return "<array>"
	case 't', 'f':
		return "<bool>"
	default:
		return "<number>"
	}
}

func joinLocation(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ", ")
}
