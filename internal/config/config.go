// Package config holds the process-scoped defaults for backtrace capture
// and rendering. There are no package-level globals: a Store is created
// explicitly (usually one per session) and handed to the entry points that
// need it, which keeps the core testable without process-wide side effects.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"fern/internal/trace"
)

// Options are the format and capture defaults consulted when a caller does
// not override them explicitly.
type Options struct {
	// Simplify is the default simplification mode for printed backtraces.
	Simplify trace.Mode

	// SrcRefs controls whether rendered frames show source references.
	SrcRefs bool

	// Unicode selects box-drawing output; false falls back to ASCII.
	Unicode bool

	// FrameNumbers prefixes rendered frames with their trace position.
	FrameNumbers bool

	// MaxFrames is the default branch truncation limit; 0 disables.
	MaxFrames int

	// TopEnvName names the function whose environment bounds captures in
	// embedding scenarios: frames at or below it never appear. Empty
	// disables the boundary.
	TopEnvName string
}

// fileOptions is the TOML shape of a fern.toml [backtrace] section.
type fileOptions struct {
	Backtrace struct {
		Simplify     string `toml:"simplify"`
		SrcRefs      *bool  `toml:"srcrefs"`
		Unicode      *bool  `toml:"unicode"`
		FrameNumbers *bool  `toml:"frame_numbers"`
		MaxFrames    int    `toml:"max_frames"`
		TopEnvName   string `toml:"top_env"`
	} `toml:"backtrace"`
}

// Default returns the built-in options: collapse simplification, source
// references on, and Unicode output when the locale advertises UTF-8.
func Default() Options {
	return Options{
		Simplify: trace.ModeCollapse,
		SrcRefs:  true,
		Unicode:  localeIsUTF8(),
	}
}

func localeIsUTF8() bool {
	for _, k := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := os.Getenv(k); v != "" {
			return strings.Contains(strings.ToUpper(v), "UTF-8") ||
				strings.Contains(strings.ToUpper(v), "UTF8")
		}
	}
	return false
}

// Load reads a fern.toml file and applies its [backtrace] section on top
// of the given base options.
func Load(path string, base Options) (Options, error) {
	var cfg fileOptions
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return base, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	out := base
	if cfg.Backtrace.Simplify != "" {
		mode, err := trace.ParseMode(cfg.Backtrace.Simplify)
		if err != nil {
			return base, fmt.Errorf("%s: %w", path, err)
		}
		out.Simplify = mode
	}
	if cfg.Backtrace.SrcRefs != nil {
		out.SrcRefs = *cfg.Backtrace.SrcRefs
	}
	if cfg.Backtrace.Unicode != nil {
		out.Unicode = *cfg.Backtrace.Unicode
	}
	if cfg.Backtrace.FrameNumbers != nil {
		out.FrameNumbers = *cfg.Backtrace.FrameNumbers
	}
	if meta.IsDefined("backtrace", "max_frames") {
		out.MaxFrames = cfg.Backtrace.MaxFrames
	}
	if cfg.Backtrace.TopEnvName != "" {
		out.TopEnvName = cfg.Backtrace.TopEnvName
	}
	return out, nil
}

// Store is the mutable home of the current options. It is read-mostly and
// assumes a single logical thread of control, matching the host runtime's
// evaluation model.
type Store struct {
	current Options
}

// NewStore creates a store seeded with opts.
func NewStore(opts Options) *Store {
	return &Store{current: opts}
}

// Get returns the current options.
func (s *Store) Get() Options {
	return s.current
}

// Set replaces the current options.
func (s *Store) Set(opts Options) {
	s.current = opts
}

// Scoped runs fn with opts in effect and restores the previous options on
// exit, including on panic.
func (s *Store) Scoped(opts Options, fn func()) {
	prev := s.current
	s.current = opts
	defer func() { s.current = prev }()
	fn()
}
