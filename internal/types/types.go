package types

import (
	"net/url"
	"time"
)

// HistoryItem is a single entry returned by a history search.
type HistoryItem struct {
	URL           string
	Title         string
	LastVisitTime time.Time
}

// Tab represents a single open browser tab.
type Tab struct {
	ID           int
	URL          string
	Title        string
	WindowID     int
	WindowName   string
	Active       bool
	Favicon      string
	LastAccessed time.Time
}

// Window is an open browser window with its tabs.
type Window struct {
	ID   int
	Tabs []Tab
}

// TabRef is the part of a tab kept once its window is gone.
type TabRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Provenance says where a window record came from.
type Provenance string

const (
	ProvenanceOpen      Provenance = "open"
	ProvenanceSaved     Provenance = "saved"     // self-tracked or promoted
	ProvenanceSession   Provenance = "session"   // fresh from the browser's session history
	ProvenancePreserved Provenance = "preserved" // session record kept past browser retention
)

// WindowRecord describes a window that is open or was closed.
// Saved records are identified by ID, session records by SessionID.
type WindowRecord struct {
	ID         int64      `json:"id"`
	SessionID  string     `json:"sessionId,omitempty"`
	WindowID   int        `json:"windowId,omitempty"`
	ClosedAt   time.Time  `json:"closedAt"`
	TabCount   int        `json:"tabCount"`
	Domains    []string   `json:"domains"`
	Tabs       []TabRef   `json:"tabs"`
	Provenance Provenance `json:"provenance"`
	// Promoted marks a saved record that came from the browser's session
	// history; it can no longer be restored through the session API.
	Promoted bool `json:"promoted,omitempty"`
}

// IsOpen reports whether the record describes a currently open window.
func (r WindowRecord) IsOpen() bool {
	return r.Provenance == ProvenanceOpen
}

// IsNative reports whether the record came from the browser's session history.
func (r WindowRecord) IsNative() bool {
	return r.Provenance == ProvenanceSession || r.Provenance == ProvenancePreserved
}

// Domains returns the unique hostnames of tabs in first-seen order.
// Tabs whose URL has no host are skipped.
func Domains(tabs []TabRef) []string {
	seen := make(map[string]bool, len(tabs))
	domains := make([]string, 0, len(tabs))
	for _, t := range tabs {
		host := Hostname(t.URL)
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		domains = append(domains, host)
	}
	return domains
}

// Hostname returns the host part of rawURL, or "" if it cannot be parsed.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// ViewName names the active top-level view.
type ViewName string

const (
	ViewHistory ViewName = "history"
	ViewTabs    ViewName = "tabs"
	ViewWindows ViewName = "windows"
)

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}
