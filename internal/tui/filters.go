package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabsieb/internal/filter"
)

// filterRows edits one filter.Store, one text input per predicate.
type filterRows struct {
	store  *filter.Store
	inputs []textinput.Model
	focus  int
}

func newFilterRows(store *filter.Store) filterRows {
	f := filterRows{store: store}
	f.sync()
	return f
}

// sync rebuilds the inputs from the store, keeping focus in range.
func (f *filterRows) sync() {
	preds := f.store.Set().Predicates
	f.inputs = make([]textinput.Model, len(preds))
	for i, p := range preds {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = "filter by " + string(p.Field)
		ti.SetValue(p.Text)
		f.inputs[i] = ti
	}
	if f.focus >= len(f.inputs) {
		f.focus = len(f.inputs) - 1
	}
	if f.focus < 0 {
		f.focus = 0
	}
	f.focusInput()
}

func (f *filterRows) focusInput() {
	for i := range f.inputs {
		if i == f.focus {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (f *filterRows) current() filter.Predicate {
	return f.store.Set().Predicates[f.focus]
}

func (f *filterRows) next() {
	if f.focus < len(f.inputs)-1 {
		f.focus++
		f.focusInput()
	}
}

func (f *filterRows) prev() {
	if f.focus > 0 {
		f.focus--
		f.focusInput()
	}
}

func (f *filterRows) add() {
	f.store.Add()
	f.focus = len(f.store.Set().Predicates) - 1
	f.sync()
}

// remove drops the focused row. The first row stays put.
func (f *filterRows) remove() bool {
	if f.focus == 0 {
		return false
	}
	if !f.store.Remove(f.current().ID) {
		return false
	}
	f.focus--
	f.sync()
	return true
}

// toggleOperator flips include/exclude. The first row has no operator.
func (f *filterRows) toggleOperator() bool {
	if f.focus == 0 {
		return false
	}
	p := f.current()
	op := filter.Exclude
	if p.Operator == filter.Exclude {
		op = filter.Include
	}
	return f.store.Update(p.ID, filter.SetOperator(op))
}

func (f *filterRows) toggleField() bool {
	p := f.current()
	field := filter.FieldTitle
	if p.Field == filter.FieldTitle {
		field = filter.FieldURL
	}
	if !f.store.Update(p.ID, filter.SetField(field)) {
		return false
	}
	f.inputs[f.focus].Placeholder = "filter by " + string(field)
	return true
}

func (f *filterRows) clearable() bool {
	return f.store.Set().HasActive()
}

func (f *filterRows) clear() {
	f.store.Clear()
	f.focus = 0
	f.sync()
}

// update feeds a key to the focused input and reports whether its text
// changed.
func (f *filterRows) update(msg tea.KeyMsg) (bool, tea.Cmd) {
	before := f.inputs[f.focus].Value()
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	after := f.inputs[f.focus].Value()
	if after == before {
		return false, cmd
	}
	f.store.Update(f.current().ID, filter.SetText(after))
	return true, cmd
}

var (
	opIncludeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	opExcludeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	fieldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	rowMarkerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
)

func (f filterRows) view(width int) string {
	preds := f.store.Set().Predicates
	var b strings.Builder
	for i, p := range preds {
		marker := "  "
		if i == f.focus {
			marker = rowMarkerStyle.Render("> ")
		}
		op := "        "
		if i > 0 {
			if p.Operator == filter.Exclude {
				op = opExcludeStyle.Render("exclude ")
			} else {
				op = opIncludeStyle.Render("include ")
			}
		}
		field := fieldStyle.Render("[" + string(p.Field) + "] ")
		in := f.inputs[i]
		in.Width = max(width-lipgloss.Width(marker+op+field)-1, 10)
		b.WriteString(marker + op + field + in.View())
		if i < len(preds)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
