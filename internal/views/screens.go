package views

import (
	"fmt"
	"strings"
)

type AgendaPanelData struct {
	Day       string
	Weekday   string
	Count     int
	TableView string
	Loading   bool
}

type LogPanelData struct {
	Entries      int
	ViewportView string
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderAgendaPanel(data AgendaPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("agenda: %s %s\n", data.Weekday, data.Day))
	switch {
	case data.Loading:
		b.WriteString("(loading)")
	case data.Count == 0:
		b.WriteString("(nothing booked)")
	default:
		b.WriteString(fmt.Sprintf("%d appointment(s)\n", data.Count))
		b.WriteString(data.TableView)
	}
	return strings.TrimSpace(b.String())
}

func RenderLogPanel(data LogPanelData) string {
	if data.Entries == 0 {
		return "results:\n(type a request below, e.g. \"schedule dentist tomorrow at 3pm\")"
	}
	return "results:\n" + data.ViewportView
}

func RenderPrompt(busy bool, spinnerView, inputView string) string {
	if busy {
		return spinnerView + " " + inputView
	}
	return inputView
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}
