package windows

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lotas/tabsieb/internal/applog"
	"github.com/lotas/tabsieb/internal/kv"
	"github.com/lotas/tabsieb/internal/types"
)

const (
	SavedKey     = "windows.saved"
	PreservedKey = "windows.preserved"

	// MaxSaved caps the self-tracked list.
	MaxSaved = 50
	// MaxNative caps records that come from the browser's session history.
	MaxNative = 25
)

// ErrNotFound is returned for an id that is not in the saved list.
var ErrNotFound = errors.New("windows: record not found")

// Store holds the self-tracked list of closed windows and the preserved copy
// of the browser's session history. Every mutation is persisted; persistence
// failures are logged and memory stays authoritative.
type Store struct {
	kv  kv.Store
	now func() time.Time

	mu        sync.Mutex
	saved     []types.WindowRecord
	preserved []types.WindowRecord
	lastID    int64
}

// OpenStore loads both lists. Missing or corrupt values start empty.
func OpenStore(store kv.Store) *Store {
	s := &Store{kv: store, now: time.Now}
	s.saved = load(store, SavedKey)
	s.preserved = load(store, PreservedKey)
	for _, r := range s.saved {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}
	return s
}

func load(store kv.Store, key string) []types.WindowRecord {
	var recs []types.WindowRecord
	if err := kv.GetJSON(store, key, &recs); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			applog.Error("windows.load", err, "key", key)
		}
		return nil
	}
	return recs
}

// SetClock replaces the time source used for ids and close times.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Saved returns a copy of the self-tracked list, newest first.
func (s *Store) Saved() []types.WindowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.WindowRecord(nil), s.saved...)
}

// Preserved returns a copy of the preserved native list.
func (s *Store) Preserved() []types.WindowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.WindowRecord(nil), s.preserved...)
}

// Get finds a saved record by id.
func (s *Store) Get(id int64) (types.WindowRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.saved {
		if r.ID == id {
			return r, true
		}
	}
	return types.WindowRecord{}, false
}

// nextID returns a millisecond timestamp, bumped past the last issued id.
// Caller holds mu.
func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// RecordClose turns a cache entry into a saved record closed now and
// prepends it to the saved list.
func (s *Store) RecordClose(e Entry) types.WindowRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := types.WindowRecord{
		ID:         s.nextID(),
		WindowID:   e.WindowID,
		ClosedAt:   s.now(),
		TabCount:   e.TabCount,
		Domains:    e.Domains,
		Tabs:       e.Tabs,
		Provenance: types.ProvenanceSaved,
	}
	s.prependSaved(rec)
	return rec
}

// Caller holds mu.
func (s *Store) prependSaved(rec types.WindowRecord) {
	s.saved = append([]types.WindowRecord{rec}, s.saved...)
	if len(s.saved) > MaxSaved {
		s.saved = s.saved[:MaxSaved]
	}
	s.persist(SavedKey, s.saved)
}

// Remove deletes a saved record.
func (s *Store) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.saved {
		if r.ID == id {
			s.saved = append(s.saved[:i:i], s.saved[i+1:]...)
			s.persist(SavedKey, s.saved)
			return nil
		}
	}
	return ErrNotFound
}

// Preserve folds freshly fetched native records into the preserved list so
// they outlive the browser's own retention. Fresh copies replace older ones;
// sessions already promoted are skipped. The list keeps the MaxNative most
// recent records.
func (s *Store) Preserve(fresh []types.WindowRecord) {
	if len(fresh) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	promoted := s.promotedSessions()
	byID := make(map[string]int, len(s.preserved))
	for i, r := range s.preserved {
		byID[r.SessionID] = i
	}
	changed := false
	for _, r := range fresh {
		if r.SessionID == "" || promoted[r.SessionID] {
			continue
		}
		r.Provenance = types.ProvenancePreserved
		if i, ok := byID[r.SessionID]; ok {
			s.preserved[i] = r
		} else {
			byID[r.SessionID] = len(s.preserved)
			s.preserved = append(s.preserved, r)
		}
		changed = true
	}
	if !changed {
		return
	}
	sortClosed(s.preserved)
	if len(s.preserved) > MaxNative {
		s.preserved = s.preserved[:MaxNative]
	}
	s.persist(PreservedKey, s.preserved)
}

// RemovePreserved drops a preserved record by session id.
func (s *Store) RemovePreserved(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removePreserved(sessionID)
}

// Caller holds mu.
func (s *Store) removePreserved(sessionID string) bool {
	for i, r := range s.preserved {
		if r.SessionID == sessionID {
			s.preserved = append(s.preserved[:i:i], s.preserved[i+1:]...)
			s.persist(PreservedKey, s.preserved)
			return true
		}
	}
	return false
}

// promotedSessions returns the session ids carried by promoted saved
// records. Caller holds mu.
func (s *Store) promotedSessions() map[string]bool {
	ids := make(map[string]bool)
	for _, r := range s.saved {
		if r.Promoted && r.SessionID != "" {
			ids[r.SessionID] = true
		}
	}
	return ids
}

// Caller holds mu.
func (s *Store) persist(key string, recs []types.WindowRecord) {
	if recs == nil {
		recs = []types.WindowRecord{}
	}
	if err := kv.SetJSON(s.kv, key, recs); err != nil {
		applog.Error("windows.save", err, "key", key)
	}
}

// sortClosed orders records by ClosedAt, newest first.
func sortClosed(recs []types.WindowRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ClosedAt.After(recs[j].ClosedAt)
	})
}
