package firefox

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/lotas/tabsieb/internal/types"
	"github.com/pierrec/lz4/v4"
)

var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses Mozilla's mozlz4 container: an 8-byte magic,
// a little-endian uint32 uncompressed size, then one raw lz4 block.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(mozLz4Magic)], mozLz4Magic) {
		return nil, fmt.Errorf("mozlz4: invalid header magic")
	}

	size := binary.LittleEndian.Uint32(data[8:12])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Image        string     `json:"image"`
}

// current returns the entry the tab is showing. index is 1-based.
func (rt rawTab) current() (rawEntry, bool) {
	if len(rt.Entries) == 0 {
		return rawEntry{}, false
	}
	i := rt.Index - 1
	if i < 0 || i >= len(rt.Entries) {
		i = len(rt.Entries) - 1
	}
	return rt.Entries[i], true
}

type rawWindow struct {
	Tabs     []rawTab `json:"tabs"`
	ClosedAt int64    `json:"closedAt"` // unix millis, closed windows only
	ClosedID int64    `json:"closedId"`
}

type rawSession struct {
	Windows       []rawWindow `json:"windows"`
	ClosedWindows []rawWindow `json:"_closedWindows"`
}

// Session is what tabsieb reads from a session file: the open windows and
// the browser's list of recently closed windows.
type Session struct {
	Windows []types.Window
	Closed  []types.WindowRecord
}

// ParseSession parses decompressed session JSON. Open windows get 1-based
// synthetic ids; closed windows become session records with SessionID
// "ff-<closedId>", newest first.
func ParseSession(data []byte) (*Session, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	s := &Session{}
	tabID := 0
	for winIdx, rw := range raw.Windows {
		w := types.Window{ID: winIdx + 1}
		name := "Window " + strconv.Itoa(winIdx+1)
		for _, rt := range rw.Tabs {
			e, ok := rt.current()
			if !ok {
				continue
			}
			tabID++
			w.Tabs = append(w.Tabs, types.Tab{
				ID:           tabID,
				URL:          e.URL,
				Title:        e.Title,
				WindowID:     w.ID,
				WindowName:   name,
				Favicon:      rt.Image,
				LastAccessed: time.UnixMilli(rt.LastAccessed),
			})
		}
		s.Windows = append(s.Windows, w)
	}

	for _, rw := range raw.ClosedWindows {
		var tabs []types.TabRef
		for _, rt := range rw.Tabs {
			if e, ok := rt.current(); ok {
				tabs = append(tabs, types.TabRef{URL: e.URL, Title: e.Title})
			}
		}
		if len(tabs) == 0 {
			continue
		}
		s.Closed = append(s.Closed, types.WindowRecord{
			SessionID:  "ff-" + strconv.FormatInt(rw.ClosedID, 10),
			ClosedAt:   time.UnixMilli(rw.ClosedAt),
			TabCount:   len(tabs),
			Domains:    types.Domains(tabs),
			Tabs:       tabs,
			Provenance: types.ProvenanceSession,
		})
	}
	sort.SliceStable(s.Closed, func(i, j int) bool {
		return s.Closed[i].ClosedAt.After(s.Closed[j].ClosedAt)
	})
	return s, nil
}

// ReadSessionFile reads the session file of a profile directory, trying
// recovery.jsonlz4 (running browser) before previous.jsonlz4.
func ReadSessionFile(profileDir string) (*Session, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	var data []byte
	var err error
	for _, name := range []string{"recovery.jsonlz4", "previous.jsonlz4"} {
		data, err = os.ReadFile(filepath.Join(backupDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no session file found in %s", backupDir)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSession(decompressed)
}

// ReadClosedWindows returns the recently closed windows of a profile.
func ReadClosedWindows(profileDir string) ([]types.WindowRecord, error) {
	s, err := ReadSessionFile(profileDir)
	if err != nil {
		return nil, err
	}
	return s.Closed, nil
}

// SessionFile serves closed windows from a profile's session file. It is the
// offline stand-in for the extension's session API.
type SessionFile struct {
	ProfileDir string
}

// RecentlyClosed re-reads the session file on each call.
func (f SessionFile) RecentlyClosed(_ context.Context, maxResults int) ([]types.WindowRecord, error) {
	closed, err := ReadClosedWindows(f.ProfileDir)
	if err != nil {
		return nil, err
	}
	if maxResults > 0 && len(closed) > maxResults {
		closed = closed[:maxResults]
	}
	return closed, nil
}
