package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/tabsieb/internal/app"
	"github.com/lotas/tabsieb/internal/applog"
	"github.com/lotas/tabsieb/internal/browser"
	"github.com/lotas/tabsieb/internal/export"
	"github.com/lotas/tabsieb/internal/filter"
	"github.com/lotas/tabsieb/internal/firefox"
	"github.com/lotas/tabsieb/internal/server"
	"github.com/lotas/tabsieb/internal/storage"
	"github.com/lotas/tabsieb/internal/tui"
	"github.com/lotas/tabsieb/internal/windows"
)

const defaultPort = 19192

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "history":
			runHistory(os.Args[2:])
			return
		case "windows":
			runWindows(os.Args[2:])
			return
		case "tabs":
			runTabs(os.Args[2:])
			return
		case "filters":
			runFilters(os.Args[2:])
			return
		case "profiles":
			runProfiles()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}
	runTUI(os.Args[1:])
}

func printHelp() {
	fmt.Print(`tabsieb: filter browser history, switch tabs, bring back closed windows

Usage:
  tabsieb                                  Start the TUI (default)
    --port <n>             WebSocket port for the extension (default: 19192)
    --devtools <url>       List tabs from a Chromium DevTools endpoint instead

  tabsieb history                          Export filtered history
    --range <r>            48hours, week, month or year (default: saved preference)
    --format <md|json>     Output format (default: md)
    --out <file>           Output file path (default: stdout)
    --port <n>             WebSocket port for the extension

  tabsieb windows                          Export open and recently closed windows
    --live                 Ask the extension instead of reading the session file
    --profile <name>       Firefox profile (name or directory)
    --format <md|json>     Output format (default: md)
    --out <file>           Output file path (default: stdout)
    --port <n>             WebSocket port for the extension

  tabsieb tabs                             Export filtered open tabs
    --devtools <url>       Chromium DevTools endpoint, e.g. http://127.0.0.1:9222
    --format <md|json>     Output format (default: md)
    --out <file>           Output file path (default: stdout)
    --port <n>             WebSocket port for the extension

  tabsieb filters [show|clear]             Show or clear saved filters
    --kind <history|tabs|all>  Which filter set (default: all)

  tabsieb profiles                         List Firefox profiles

Environment:
  TABSIEB_PORT       WebSocket port (overridden by --port)
  TABSIEB_DB         Database path (default: ~/.local/share/tabsieb/tabsieb.db)
  TABSIEB_LOG_DIR    Log directory (default: ~/.local/share/tabsieb/logs)
  TABSIEB_PROFILE    Firefox profile for offline closed windows
  TABSIEB_DEVTOOLS   DevTools endpoint (overridden by --devtools)
`)
}

// --- TUI ---

func runTUI(args []string) {
	fs := flag.NewFlagSet("tabsieb", flag.ExitOnError)
	port := fs.Int("port", envPort(), "WebSocket port for the extension")
	devtools := fs.String("devtools", os.Getenv("TABSIEB_DEVTOOLS"), "Chromium DevTools endpoint")
	fs.Parse(reorderArgs(args))

	closeLog := initLog()
	defer closeLog()

	db, store := mustOpenStore()
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := server.New(*port)
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			applog.Error("server.listen", err, "port", *port)
		}
	}()
	bridge := browser.NewBridge(srv)
	go bridge.Run(ctx)

	winStore := windows.OpenStore(store)
	tracker := windows.NewTracker(bridge, bridge.Events(), windows.NewTable(), winStore)
	go tracker.Run(ctx)

	cfg := app.Config{KV: store, Browser: bridge, Windows: winStore}
	if *devtools != "" {
		cfg.Tabs = browser.NewDevTools(*devtools)
	}
	state := app.New(cfg)

	model := tui.NewModel(tui.Options{
		State:     state,
		Connected: srv.Connected,
		Changed:   tracker.Changed(),
		Port:      *port,
		Context:   ctx,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// --- Exports ---

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	rangeFlag := fs.String("range", "", "Time range: 48hours, week, month or year")
	format := fs.String("format", "md", "Output format: md or json")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	port := fs.Int("port", envPort(), "WebSocket port for the extension")
	fs.Parse(reorderArgs(args))

	closeLog := initLog()
	defer closeLog()
	db, store := mustOpenStore()
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	bridge, err := connectLive(ctx, *port)
	if err != nil {
		fatal(err)
	}

	state := app.New(app.Config{KV: store, Browser: bridge})
	if *rangeFlag != "" {
		err = state.SetTimeRange(ctx, browser.TimeRange(*rangeFlag))
	} else {
		err = state.LoadHistory(ctx)
	}
	if err != nil {
		fatal(err)
	}

	prefs := state.Prefs()
	v := state.History()
	now := time.Now()
	var output string
	switch *format {
	case "json":
		output, err = export.HistoryJSON(v, prefs.TimeRange, now)
	default:
		output = export.HistoryMarkdown(v, prefs.TimeRange, prefs.ShowTitles, now)
	}
	if err != nil {
		fatal(err)
	}
	writeOutput(*outFile, output)
}

func runWindows(args []string) {
	fs := flag.NewFlagSet("windows", flag.ExitOnError)
	live := fs.Bool("live", false, "Ask the extension instead of reading the session file")
	profile := fs.String("profile", os.Getenv("TABSIEB_PROFILE"), "Firefox profile name or directory")
	format := fs.String("format", "md", "Output format: md or json")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	port := fs.Int("port", envPort(), "WebSocket port for the extension")
	fs.Parse(reorderArgs(args))

	closeLog := initLog()
	defer closeLog()
	db, store := mustOpenStore()
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := app.Config{KV: store}
	if *live {
		bridge, err := connectLive(ctx, *port)
		if err != nil {
			fatal(err)
		}
		cfg.Browser = bridge
	} else {
		profiles, err := firefox.DiscoverProfiles()
		if err != nil {
			fatal(fmt.Errorf("discover profiles: %w", err))
		}
		dir, err := firefox.SelectProfile(profiles, *profile)
		if err != nil {
			fatal(err)
		}
		cfg.Sessions = firefox.SessionFile{ProfileDir: dir}
	}
	state := app.New(cfg)
	if err := state.LoadWindows(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	recs := state.WindowList()
	now := time.Now()
	var output string
	var err error
	switch *format {
	case "json":
		output, err = export.WindowsJSON(recs, now)
	default:
		output = export.WindowsMarkdown(recs, now)
	}
	if err != nil {
		fatal(err)
	}
	writeOutput(*outFile, output)
}

func runTabs(args []string) {
	fs := flag.NewFlagSet("tabs", flag.ExitOnError)
	devtools := fs.String("devtools", os.Getenv("TABSIEB_DEVTOOLS"), "Chromium DevTools endpoint")
	format := fs.String("format", "md", "Output format: md or json")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	port := fs.Int("port", envPort(), "WebSocket port for the extension")
	fs.Parse(reorderArgs(args))

	closeLog := initLog()
	defer closeLog()
	db, store := mustOpenStore()
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg := app.Config{KV: store}
	if *devtools != "" {
		cfg.Tabs = browser.NewDevTools(*devtools)
	} else {
		bridge, err := connectLive(ctx, *port)
		if err != nil {
			fatal(err)
		}
		cfg.Browser = bridge
	}
	state := app.New(cfg)
	if err := state.LoadTabs(ctx); err != nil {
		fatal(err)
	}

	v := state.Tabs()
	now := time.Now()
	var output string
	var err error
	switch *format {
	case "json":
		output, err = export.TabsJSON(v, now)
	default:
		output = export.TabsMarkdown(v, now)
	}
	if err != nil {
		fatal(err)
	}
	writeOutput(*outFile, output)
}

// --- Filters ---

func runFilters(args []string) {
	fs := flag.NewFlagSet("filters", flag.ExitOnError)
	kind := fs.String("kind", "all", "Filter set: history, tabs or all")
	fs.Parse(reorderArgs(args))

	action := "show"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	var kinds []filter.Kind
	switch *kind {
	case "history":
		kinds = []filter.Kind{filter.KindHistory}
	case "tabs":
		kinds = []filter.Kind{filter.KindTabs}
	case "all":
		kinds = []filter.Kind{filter.KindHistory, filter.KindTabs}
	default:
		fatal(fmt.Errorf("unknown filter kind %q", *kind))
	}

	closeLog := initLog()
	defer closeLog()
	db, store := mustOpenStore()
	defer db.Close()

	for _, k := range kinds {
		fstore := filter.Open(store, k)
		switch action {
		case "show":
			data, err := json.MarshalIndent(fstore.Set(), "", "  ")
			if err != nil {
				fatal(err)
			}
			fmt.Printf("%s:\n%s\n", k, data)
		case "clear":
			fstore.Clear()
			fmt.Printf("Cleared %s filters.\n", k)
		default:
			fatal(fmt.Errorf("unknown filters action %q (want show or clear)", action))
		}
	}
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal(fmt.Errorf("discover profiles: %w", err))
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles found.")
		os.Exit(1)
	}
	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

// --- Helpers ---

// connectLive starts the extension server and waits for the extension to
// attach.
func connectLive(ctx context.Context, port int) (*browser.Bridge, error) {
	srv := server.New(port)
	go srv.ListenAndServe(ctx)
	bridge := browser.NewBridge(srv)
	go bridge.Run(ctx)

	fmt.Fprintf(os.Stderr, "Waiting for browser extension on port %d...\n", port)
	timeout := time.After(10 * time.Second)
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case <-poll.C:
			if srv.Connected() {
				return bridge, nil
			}
		case <-timeout:
			return nil, fmt.Errorf("timed out waiting for extension (10s)")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func mustOpenStore() (*sql.DB, *storage.KV) {
	path := os.Getenv("TABSIEB_DB")
	if path == "" {
		var err error
		path, err = storage.DefaultDBPath()
		if err != nil {
			fatal(err)
		}
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		fatal(fmt.Errorf("open database: %w", err))
	}
	return db, storage.NewKV(db)
}

// initLog starts file logging. Failure to open the log is not fatal.
func initLog() func() {
	dir := os.Getenv("TABSIEB_LOG_DIR")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share", "tabsieb", "logs")
	}
	if err := applog.Init(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	return applog.Close
}

func envPort() int {
	if s := os.Getenv("TABSIEB_PORT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return defaultPort
}

func writeOutput(path, output string) {
	if path == "" {
		fmt.Print(output)
		return
	}
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		fatal(fmt.Errorf("write %s: %w", path, err))
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !strings.Contains(args[i], "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !isBoolFlag(args[i]) {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// isBoolFlag lists the flags that take no value.
func isBoolFlag(arg string) bool {
	return strings.TrimLeft(arg, "-") == "live"
}
