// Package filter holds the chained include/exclude predicates used to narrow
// history and tab collections, and the engine that applies them.
package filter

import "strings"

// Operator says how a predicate combines with the results before it.
type Operator string

const (
	Include Operator = "include"
	Exclude Operator = "exclude"
)

// Field selects which attribute of an item a predicate tests.
type Field string

const (
	FieldURL   Field = "url"
	FieldTitle Field = "title"
)

// Kind is the collection a Set filters. It decides the default field.
type Kind string

const (
	KindHistory Kind = "history"
	KindTabs    Kind = "tabs"
)

// DefaultField returns the field new predicates start with.
func (k Kind) DefaultField() Field {
	if k == KindTabs {
		return FieldTitle
	}
	return FieldURL
}

// Predicate is one row of a filter chain.
type Predicate struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Operator Operator `json:"operator"`
	Field    Field    `json:"field"`
}

// Active reports whether the predicate takes part in filtering.
func (p Predicate) Active() bool {
	return strings.TrimSpace(p.Text) != ""
}

// Set is an ordered predicate chain. The predicate at position 0 is the base
// restriction; its operator is never applied.
type Set struct {
	Kind       Kind        `json:"-"`
	Predicates []Predicate `json:"filters"`
	NextID     int         `json:"nextId"`
}

// NewSet returns a set holding one empty default predicate.
func NewSet(kind Kind) *Set {
	return &Set{
		Kind:       kind,
		Predicates: []Predicate{{ID: 0, Operator: Include, Field: kind.DefaultField()}},
	}
}

// Add appends an empty include predicate with a fresh id.
func (s *Set) Add() Predicate {
	s.NextID++
	p := Predicate{ID: s.NextID, Operator: Include, Field: s.Kind.DefaultField()}
	s.Predicates = append(s.Predicates, p)
	return p
}

// Remove deletes the predicate with id. It is a no-op for unknown ids and
// never removes the base predicate at position 0.
func (s *Set) Remove(id int) bool {
	for i, p := range s.Predicates {
		if p.ID == id {
			if i == 0 {
				return false
			}
			s.Predicates = append(s.Predicates[:i], s.Predicates[i+1:]...)
			return true
		}
	}
	return false
}

// Change lists the attributes Update replaces. Nil fields are left alone.
type Change struct {
	Text     *string
	Operator *Operator
	Field    *Field
}

// SetText, SetOperator and SetField build single-attribute changes.
func SetText(text string) Change     { return Change{Text: &text} }
func SetOperator(op Operator) Change { return Change{Operator: &op} }
func SetField(field Field) Change    { return Change{Field: &field} }

// Update applies c to the predicate with id. Unknown ids are ignored.
func (s *Set) Update(id int, c Change) bool {
	for i := range s.Predicates {
		if s.Predicates[i].ID != id {
			continue
		}
		p := &s.Predicates[i]
		if c.Text != nil {
			p.Text = *c.Text
		}
		if c.Operator != nil {
			p.Operator = *c.Operator
		}
		if c.Field != nil {
			p.Field = *c.Field
		}
		return true
	}
	return false
}

// Clear resets the set to a single default predicate. NextID keeps counting
// so ids issued before the clear are not handed out again.
func (s *Set) Clear() {
	s.Predicates = NewSet(s.Kind).Predicates
}

// Get returns the predicate with id.
func (s *Set) Get(id int) (Predicate, bool) {
	for _, p := range s.Predicates {
		if p.ID == id {
			return p, true
		}
	}
	return Predicate{}, false
}

// Active returns predicates with non-empty text, in chain order.
func (s *Set) Active() []Predicate {
	var active []Predicate
	for _, p := range s.Predicates {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active
}

// Terms returns the trimmed texts of active predicates testing field.
// Highlighting uses them so URL terms only mark URLs and title terms titles.
func (s *Set) Terms(field Field) []string {
	var terms []string
	for _, p := range s.Active() {
		if p.Field == field {
			terms = append(terms, strings.TrimSpace(p.Text))
		}
	}
	return terms
}

// HasActive reports whether there is anything to clear.
func (s *Set) HasActive() bool {
	return len(s.Predicates) > 1 || len(s.Active()) > 0
}
