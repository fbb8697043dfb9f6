package firefox

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/tabsieb/internal/types"
)

// FindFirefoxDir returns the platform-specific Firefox profile directory.
func FindFirefoxDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "linux":
		return filepath.Join(home, ".mozilla", "firefox")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Firefox")
	default:
		return ""
	}
}

// hasSessionFile reports whether dir holds a readable session backup.
func hasSessionFile(dir string) bool {
	backupDir := filepath.Join(dir, "sessionstore-backups")
	for _, name := range []string{"recovery.jsonlz4", "previous.jsonlz4"} {
		if _, err := os.Stat(filepath.Join(backupDir, name)); err == nil {
			return true
		}
	}
	return false
}

// ParseProfilesINI reads profiles.ini and returns the profiles that have a
// session file. Relative paths are resolved against firefoxDir.
func ParseProfilesINI(iniPath, firefoxDir string) ([]types.Profile, error) {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	var all []types.Profile
	var cur *types.Profile
	flush := func() {
		if cur != nil {
			all = append(all, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if section, ok := strings.CutPrefix(line, "["); ok && strings.HasSuffix(section, "]") {
			flush()
			if strings.HasPrefix(section, "Profile") {
				cur = &types.Profile{}
			}
			continue
		}
		if cur == nil {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "Name":
			cur.Name = value
		case "Path":
			cur.Path = value
		case "IsRelative":
			cur.IsRelative = value == "1"
		case "Default":
			cur.IsDefault = value == "1"
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan profiles.ini: %w", err)
	}

	var usable []types.Profile
	for _, p := range all {
		if p.IsRelative {
			p.Path = filepath.Join(firefoxDir, p.Path)
		}
		if hasSessionFile(p.Path) {
			usable = append(usable, p)
		}
	}
	return usable, nil
}

// DiscoverProfiles finds and parses Firefox profiles on this system.
func DiscoverProfiles() ([]types.Profile, error) {
	dir := FindFirefoxDir()
	if dir == "" {
		return nil, fmt.Errorf("could not find Firefox directory for %s", runtime.GOOS)
	}
	return ParseProfilesINI(filepath.Join(dir, "profiles.ini"), dir)
}

// SelectProfile picks the profile directory for want: an existing directory
// path is used as is, otherwise want is matched against profile names. An
// empty want selects the default profile, or the first one.
func SelectProfile(profiles []types.Profile, want string) (string, error) {
	if want != "" {
		if fi, err := os.Stat(want); err == nil && fi.IsDir() {
			return want, nil
		}
		for _, p := range profiles {
			if p.Name == want {
				return p.Path, nil
			}
		}
		return "", fmt.Errorf("firefox profile %q not found", want)
	}
	if len(profiles) == 0 {
		return "", fmt.Errorf("no Firefox profile with a session file")
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p.Path, nil
		}
	}
	return profiles[0].Path, nil
}
