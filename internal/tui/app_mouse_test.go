package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// Tab bar layout with Overview active:
//
//	0-9 Overview | 11-22 Projection | 24-31 Alerts | 33-44 Households | 46-58 Settings[x]
//
// With Settings active the "[x]" hint disappears and Settings ends at 55.
func TestTabAtX(t *testing.T) {
	tests := []struct {
		name   string
		active int
		x      int
		want   int
	}{
		{"first column", tabOverview, 0, tabOverview},
		{"separator after overview", tabOverview, 10, -1},
		{"projection start", tabOverview, 11, tabProjection},
		{"alerts end", tabOverview, 31, tabAlerts},
		{"households start", tabOverview, 33, tabHouseholds},
		{"settings start", tabOverview, 46, tabSettings},
		{"settings key hint", tabOverview, 58, tabSettings},
		{"past last tab", tabOverview, 59, -1},
		{"active settings end", tabSettings, 55, tabSettings},
		{"active settings has no hint", tabSettings, 56, -1},
		{"negative x", tabOverview, -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := App{activeTab: tt.active}
			if got := a.tabAtX(tt.x); got != tt.want {
				t.Fatalf("tabAtX(%d) with tab %d active = %d, want %d", tt.x, tt.active, got, tt.want)
			}
		})
	}
}

func TestMouseClickSwitchesTab(t *testing.T) {
	a := App{loaded: true, activeTab: tabOverview}

	m, _ := a.Update(tea.MouseMsg{X: 50, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	a = m.(App)
	if a.activeTab != tabSettings {
		t.Fatalf("activeTab = %d after clicking Settings, want %d", a.activeTab, tabSettings)
	}

	// Off the end of the bar and below it are both ignored.
	m, _ = a.Update(tea.MouseMsg{X: 70, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m, _ = m.(App).Update(tea.MouseMsg{X: 1, Y: 3, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if got := m.(App).activeTab; got != tabSettings {
		t.Fatalf("activeTab = %d after stray clicks, want %d", got, tabSettings)
	}
}
