package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSetDefaults(t *testing.T) {
	h := NewSet(KindHistory)
	require.Len(t, h.Predicates, 1)
	require.Equal(t, FieldURL, h.Predicates[0].Field)
	require.Equal(t, Include, h.Predicates[0].Operator)

	tabs := NewSet(KindTabs)
	require.Equal(t, FieldTitle, tabs.Predicates[0].Field)
	require.Equal(t, FieldTitle, tabs.Add().Field)
}

func TestRemoveThenAddNeverReusesID(t *testing.T) {
	s := NewSet(KindHistory)
	a := s.Add()
	b := s.Add()
	require.True(t, s.Remove(b.ID))
	c := s.Add()
	require.NotEqual(t, b.ID, c.ID)
	require.Greater(t, c.ID, b.ID)

	require.True(t, s.Remove(a.ID))
	require.True(t, s.Remove(c.ID))
	d := s.Add()
	for _, used := range []int{0, a.ID, b.ID, c.ID} {
		require.NotEqual(t, used, d.ID)
	}
}

func TestRemoveUnknownAndLast(t *testing.T) {
	s := NewSet(KindHistory)
	require.False(t, s.Remove(0), "sole predicate must survive")
	s.Add()
	require.False(t, s.Remove(42))
	require.Len(t, s.Predicates, 2)
}

func TestRemoveKeepsBasePredicate(t *testing.T) {
	s := NewSet(KindHistory)
	a := s.Add()
	require.False(t, s.Remove(0), "base predicate stays even with others present")
	require.Len(t, s.Predicates, 2)
	require.Equal(t, 0, s.Predicates[0].ID)

	s.Clear()
	require.Len(t, s.Predicates, 1)
	require.Greater(t, s.Add().ID, a.ID)
}

func TestUpdate(t *testing.T) {
	s := NewSet(KindHistory)
	p := s.Add()

	require.True(t, s.Update(p.ID, SetText("  ")))
	require.True(t, s.Update(p.ID, SetOperator(Exclude)))
	require.True(t, s.Update(p.ID, SetField(FieldTitle)))
	require.False(t, s.Update(99, SetText("x")))

	got, ok := s.Get(p.ID)
	require.True(t, ok)
	require.Equal(t, Predicate{ID: p.ID, Text: "  ", Operator: Exclude, Field: FieldTitle}, got)
	require.Empty(t, s.Active(), "whitespace-only text is inactive")
}

func TestClearKeepsCounter(t *testing.T) {
	s := NewSet(KindHistory)
	s.Add()
	last := s.Add()
	s.Update(0, SetText("github"))
	require.True(t, s.HasActive())

	s.Clear()
	require.Len(t, s.Predicates, 1)
	require.Equal(t, "", s.Predicates[0].Text)
	require.False(t, s.HasActive())
	require.Greater(t, s.Add().ID, last.ID)
}

func TestTermsByField(t *testing.T) {
	s := NewSet(KindHistory)
	s.Update(0, SetText(" github.com "))
	p := s.Add()
	s.Update(p.ID, Change{Text: strPtr("Pull"), Field: fieldPtr(FieldTitle)})
	s.Add()

	require.Equal(t, []string{"github.com"}, s.Terms(FieldURL))
	require.Equal(t, []string{"Pull"}, s.Terms(FieldTitle))
}

func strPtr(s string) *string { return &s }
func fieldPtr(f Field) *Field { return &f }
