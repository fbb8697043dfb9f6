package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsieb/internal/types"
)

var views = []types.ViewName{types.ViewHistory, types.ViewTabs, types.ViewWindows}

var viewTitles = map[types.ViewName]string{
	types.ViewHistory: "History",
	types.ViewTabs:    "Tabs",
	types.ViewWindows: "Windows",
}

func viewIndex(v types.ViewName) int {
	for i, x := range views {
		if x == v {
			return i
		}
	}
	return 0
}

func renderNavbar(active types.ViewName, counts map[types.ViewName]int, connected bool, port int, width int) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	var tabs string
	for i, v := range views {
		if i > 0 {
			tabs += inactiveStyle.Render(" │ ")
		}
		suffix := ""
		if n := counts[v]; n > 0 {
			suffix = fmt.Sprintf(" (%d)", n)
		}
		if v == active {
			tabs += activeStyle.Render(viewTitles[v] + suffix)
		} else {
			tabs += inactiveStyle.Render(viewTitles[v]) + countStyle.Render(suffix)
		}
	}
	left := " " + tabs

	status := fmt.Sprintf("○ waiting on :%d", port)
	if connected {
		status = "● connected"
	}
	right := statusStyle.Render(status)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return left + lipgloss.NewStyle().Width(gap).Render("") + right + " "
}
