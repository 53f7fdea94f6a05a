// Package tracefmt renders captured backtraces as deterministic text.
package tracefmt

// Opts configures backtrace rendering. The zero value renders plain ASCII
// with no source references; callers normally start from config defaults.
type Opts struct {
	// SrcRefs appends "at path:line:col" to frames that carry a source
	// reference.
	SrcRefs bool

	// FrameNumbers prefixes each frame line with its trace position.
	FrameNumbers bool

	// Dir is the base used to shorten absolute source paths to relative
	// form, keeping output reproducible between machines. Empty means the
	// FileSet's base directory.
	Dir string

	// Unicode selects box-drawing connectors; when false the plain ASCII
	// fallback set is used.
	Unicode bool

	// Width truncates lines longer than this many cells; 0 disables.
	Width int
}

// glyphs is one connector set. Connectors are sized so that tee/corner and
// bar/blank align vertically.
type glyphs struct {
	root   string
	tee    string
	corner string
	bar    string
	blank  string
	tail   string // truncation marker for over-wide lines
}

var (
	unicodeGlyphs = glyphs{
		root:   "▆",
		tee:    "├─",
		corner: "└─",
		bar:    "│ ",
		blank:  "  ",
		tail:   "…",
	}
	asciiGlyphs = glyphs{
		root:   "x",
		tee:    "+-",
		corner: "`-",
		bar:    "| ",
		blank:  "  ",
		tail:   "..",
	}
)

func (o Opts) glyphs() glyphs {
	if o.Unicode {
		return unicodeGlyphs
	}
	return asciiGlyphs
}
