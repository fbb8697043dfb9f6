package windows

import (
	"fmt"

	"github.com/lotas/tabsieb/internal/types"
)

// OpenRecords describes currently open windows as records.
func OpenRecords(windows []types.Window) []types.WindowRecord {
	recs := make([]types.WindowRecord, 0, len(windows))
	for _, w := range windows {
		refs := make([]types.TabRef, 0, len(w.Tabs))
		for _, t := range w.Tabs {
			refs = append(refs, types.TabRef{URL: t.URL, Title: t.Title})
		}
		recs = append(recs, types.WindowRecord{
			WindowID:   w.ID,
			TabCount:   len(refs),
			Domains:    types.Domains(refs),
			Tabs:       refs,
			Provenance: types.ProvenanceOpen,
		})
	}
	return recs
}

// Merge builds the window list: open windows first in the order given, then
// closed windows newest first. Native records are de-duplicated by session id
// with fresh records winning over preserved ones, and only the MaxNative most
// recent survive. Native records for sessions already promoted into the saved
// list are dropped.
func Merge(open, saved, fresh, preserved []types.WindowRecord) []types.WindowRecord {
	promoted := make(map[string]bool)
	for _, r := range saved {
		if r.Promoted && r.SessionID != "" {
			promoted[r.SessionID] = true
		}
	}

	seen := make(map[string]bool, len(fresh))
	var native []types.WindowRecord
	for _, r := range fresh {
		if seen[r.SessionID] || promoted[r.SessionID] {
			continue
		}
		seen[r.SessionID] = true
		r.Provenance = types.ProvenanceSession
		native = append(native, r)
	}
	for _, r := range preserved {
		if seen[r.SessionID] || promoted[r.SessionID] {
			continue
		}
		seen[r.SessionID] = true
		r.Provenance = types.ProvenancePreserved
		native = append(native, r)
	}
	sortClosed(native)
	if len(native) > MaxNative {
		native = native[:MaxNative]
	}

	closed := make([]types.WindowRecord, 0, len(saved)+len(native))
	closed = append(closed, saved...)
	closed = append(closed, native...)
	sortClosed(closed)

	out := make([]types.WindowRecord, 0, len(open)+len(closed))
	out = append(out, open...)
	return append(out, closed...)
}

// Promote copies a native record into the saved list under a new id, keeping
// its close time and tabs. A preserved source is removed from the preserved
// list. Callers drop the source from their in-memory native list.
func (s *Store) Promote(rec types.WindowRecord) (types.WindowRecord, error) {
	if !rec.IsNative() {
		return types.WindowRecord{}, fmt.Errorf("promote %q: not a session record", rec.SessionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := rec
	out.ID = s.nextID()
	out.Provenance = types.ProvenanceSaved
	out.Promoted = true
	s.prependSaved(out)
	// Fresh records may also have a preserved copy.
	s.removePreserved(rec.SessionID)
	return out, nil
}
