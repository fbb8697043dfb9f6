package filter

import (
	"errors"
	"fmt"

	"github.com/lotas/tabsieb/internal/applog"
	"github.com/lotas/tabsieb/internal/kv"
	"github.com/tidwall/gjson"
)

// Key returns the store key for a kind's filter set.
func Key(kind Kind) string {
	return "filters." + string(kind)
}

// Load reads the saved set for kind. Absent, malformed or partial values fall
// back to defaults; Load never fails.
func Load(store kv.Store, kind Kind) *Set {
	raw, err := store.Get(Key(kind))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			applog.Error("filters.load", err, "kind", string(kind))
		}
		return NewSet(kind)
	}
	s, err := Decode(raw, kind)
	if err != nil {
		applog.Error("filters.load", err, "kind", string(kind))
		return NewSet(kind)
	}
	return s
}

// Decode parses a serialized set. Predicates missing a field get the kind's
// default field; the legacy "value" key is accepted for the text.
func Decode(raw []byte, kind Kind) (*Set, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("decode %s filters: invalid JSON", kind)
	}
	doc := gjson.ParseBytes(raw)
	filters := doc.Get("filters")
	if !filters.IsArray() {
		return nil, fmt.Errorf("decode %s filters: missing filters array", kind)
	}

	s := &Set{Kind: kind}
	maxID := 0
	for _, f := range filters.Array() {
		if !f.IsObject() {
			continue
		}
		p := Predicate{
			ID:       int(f.Get("id").Int()),
			Operator: Include,
			Field:    kind.DefaultField(),
		}
		if t := f.Get("text"); t.Exists() {
			p.Text = t.String()
		} else {
			p.Text = f.Get("value").String()
		}
		if Operator(f.Get("operator").String()) == Exclude {
			p.Operator = Exclude
		}
		switch Field(f.Get("field").String()) {
		case FieldURL:
			p.Field = FieldURL
		case FieldTitle:
			p.Field = FieldTitle
		}
		if p.ID > maxID {
			maxID = p.ID
		}
		s.Predicates = append(s.Predicates, p)
	}
	if len(s.Predicates) == 0 {
		return nil, fmt.Errorf("decode %s filters: empty filter list", kind)
	}

	s.NextID = int(doc.Get("nextId").Int())
	if s.NextID < maxID {
		s.NextID = maxID
	}
	return s, nil
}

// Save writes the set under its kind's key.
func Save(store kv.Store, s *Set) error {
	return kv.SetJSON(store, Key(s.Kind), s)
}

// Store keeps a Set in sync with the key-value store: every mutation is
// persisted immediately. Persistence failures are logged and the in-memory
// set stays authoritative.
type Store struct {
	kv  kv.Store
	set *Set
}

// Open loads the set for kind from store.
func Open(store kv.Store, kind Kind) *Store {
	return &Store{kv: store, set: Load(store, kind)}
}

// Set returns the live set. Callers must not mutate it directly.
func (s *Store) Set() *Set {
	return s.set
}

func (s *Store) Add() Predicate {
	p := s.set.Add()
	s.persist()
	return p
}

func (s *Store) Remove(id int) bool {
	if !s.set.Remove(id) {
		return false
	}
	s.persist()
	return true
}

func (s *Store) Update(id int, c Change) bool {
	if !s.set.Update(id, c) {
		return false
	}
	s.persist()
	return true
}

// Clear resets the set and deletes its saved state.
func (s *Store) Clear() {
	s.set.Clear()
	if err := s.kv.Delete(Key(s.set.Kind)); err != nil {
		applog.Error("filters.clear", err, "kind", string(s.set.Kind))
	}
}

func (s *Store) persist() {
	if err := Save(s.kv, s.set); err != nil {
		applog.Error("filters.save", err, "kind", string(s.set.Kind))
	}
}
