package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/schedd/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.inputBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	plain = append(plain, "", "examples:",
		"  schedule dentist tomorrow at 3pm",
		"  dance class every monday and wednesday at 6pm",
		"  when am i free tomorrow for 45 minutes",
		"  remind me 30 minutes before the dentist",
	)
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Submit, Action: "send"},
		{Key: m.Keys.PrevDay + "/" + m.Keys.NextDay, Action: "agenda day"},
		{Key: m.Keys.Snooze, Action: "snooze reminder"},
		{Key: m.Keys.Help, Action: "help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) inputBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.HistBack + "/" + m.Keys.HistFwd, Action: "browse history"},
		{Key: m.Keys.Clear, Action: "clear input"},
		{Key: m.Keys.Today, Action: "agenda back to today"},
		{Key: "pgup/pgdown", Action: "scroll results"},
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.inputBindings()))
	for _, kb := range append(m.globalBindings(), m.inputBindings()...) {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
