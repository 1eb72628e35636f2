package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const maxHistory = 100

type historyState struct {
	Queries []string `json:"queries"`
}

func (m *Model) persistHistory() error {
	if strings.TrimSpace(m.historyPath) == "" {
		return nil
	}
	dir := filepath.Dir(m.historyPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	payload, err := json.MarshalIndent(historyState{Queries: m.History.Items}, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.historyPath + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.historyPath)
}

func loadHistory(path string) ([]string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	var state historyState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(state.Queries))
	for _, q := range state.Queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}
	return out, nil
}
