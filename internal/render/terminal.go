package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Chart colors.
var (
	colorTitle    = lipgloss.Color("#2196F3")
	colorMuted    = lipgloss.Color("#8a94a6")
	colorUser     = lipgloss.Color("#8BC34A")
	colorActual   = lipgloss.Color("#4db6ac")
	colorForecast = lipgloss.Color("#ffd54f")
	colorAmount   = lipgloss.Color("#e57373")
)

// Styles maps element classes onto terminal styles.
type Styles struct {
	Title       lipgloss.Style
	Emphasis    lipgloss.Style
	Muted       lipgloss.Style
	Placeholder lipgloss.Style
	User        lipgloss.Style
	Bot         lipgloss.Style
	Bars        map[string]lipgloss.Style
	TableBorder lipgloss.Border
}

// DefaultStyles returns the stock terminal palette.
func DefaultStyles() Styles {
	return Styles{
		Title:       lipgloss.NewStyle().Foreground(colorTitle).Bold(true),
		Emphasis:    lipgloss.NewStyle().Bold(true),
		Muted:       lipgloss.NewStyle().Foreground(colorMuted),
		Placeholder: lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		User:        lipgloss.NewStyle().Foreground(colorUser).Bold(true),
		Bot:         lipgloss.NewStyle(),
		Bars: map[string]lipgloss.Style{
			"actual":   lipgloss.NewStyle().Foreground(colorActual),
			"forecast": lipgloss.NewStyle().Foreground(colorForecast),
			"amount":   lipgloss.NewStyle().Foreground(colorAmount),
		},
		TableBorder: lipgloss.NormalBorder(),
	}
}

// Terminal encodes e as styled text using DefaultStyles.
func Terminal(e Element) string {
	return TerminalWith(e, DefaultStyles())
}

// TerminalWith encodes e as styled text using s.
func TerminalWith(e Element, s Styles) string {
	return strings.TrimRight(termBlock(e, s, false), "\n")
}

// barCells is the width of a full bar in terminal cells.
const barCells = 20

func termBlock(e Element, s Styles, user bool) string {
	switch {
	case e.HasClass("widget-close"):
		return ""
	case e.Tag == "input":
		placeholder, _ := e.Attr("placeholder")
		return s.Muted.Render("› " + placeholder)
	case e.Tag == "table":
		return termTable(e, s)
	case e.HasClass("chart-bar"):
		return termBar(e, s)
	}

	if e.HasClass("turn-user") {
		user = true
	}

	text := termText(e, s, user)

	if len(e.Children) > 0 && allInline(e.Children) {
		parts := make([]string, 0, len(e.Children)+1)
		if text != "" {
			parts = append(parts, text)
		}
		for _, child := range e.Children {
			if rendered := termBlock(child, s, user); rendered != "" {
				parts = append(parts, rendered)
			}
		}
		return strings.Join(parts, " ")
	}

	lines := make([]string, 0, len(e.Children)+1)
	if text != "" {
		lines = append(lines, text)
	}
	for _, child := range e.Children {
		if rendered := termBlock(child, s, user); rendered != "" {
			lines = append(lines, rendered)
		}
	}
	return strings.Join(lines, "\n")
}

func termText(e Element, s Styles, user bool) string {
	if e.Text == "" {
		return ""
	}
	switch {
	case e.HasClass("widget-title"), e.HasClass("chart-title"), e.HasClass("weather-title"):
		return s.Title.Render(e.Text)
	case e.HasClass(ClassEmptyState), e.HasClass(ClassUnsupported):
		return s.Placeholder.Render(e.Text)
	case e.HasClass("weather-temperature"), e.HasClass("chart-total"):
		return s.Emphasis.Render(e.Text)
	case e.HasClass("turn-time"), e.HasClass("chart-share"), e.HasClass("legend"):
		return s.Muted.Render(e.Text)
	case e.HasClass("turn-text") && user:
		return s.User.Render("You: ") + e.Text
	case e.HasClass("turn-text"), e.HasClass("welcome"):
		return s.Bot.Render("Copilot: ") + e.Text
	}
	return e.Text
}

func termBar(e Element, s Styles) string {
	width := 0
	if raw, ok := e.Attr("data-width"); ok {
		width, _ = strconv.Atoi(raw)
	}
	cells := width * barCells / barScale
	if cells == 0 && width > 0 {
		cells = 1
	}

	style := s.Muted
	for series, candidate := range s.Bars {
		if e.HasClass(series) {
			style = candidate
			break
		}
	}
	return style.Render(strings.Repeat("█", cells)) + " " + e.Text
}

func termTable(e Element, s Styles) string {
	var headers []string
	var rows [][]string

	for _, section := range e.Children {
		for _, row := range section.Children {
			cells := make([]string, 0, len(row.Children))
			for _, cell := range row.Children {
				cells = append(cells, cell.Text)
			}
			if section.Tag == "thead" {
				headers = cells
			} else {
				rows = append(rows, cells)
			}
		}
	}

	t := table.New().
		Border(s.TableBorder).
		BorderStyle(s.Muted).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func allInline(children []Element) bool {
	for _, child := range children {
		if child.Tag != "span" {
			return false
		}
	}
	return true
}
