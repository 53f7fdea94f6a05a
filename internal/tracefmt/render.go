package tracefmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"fern/internal/source"
	"fern/internal/trace"
)

// Lines renders a (possibly simplified) call tree into one text line per
// node. Output is byte-stable for identical input: rendering never consults
// anything but the tree, the file set, and the options.
func Lines(tr *trace.Tree, fs *source.FileSet, opts Opts) []string {
	r := renderer{tree: tr, fs: fs, opts: opts, g: opts.glyphs()}
	r.gutterWidth = numberWidth(tr)

	if tr.Linear {
		r.linear()
	} else {
		r.treeArt()
	}

	if opts.Width > 0 {
		for i, line := range r.lines {
			if runewidth.StringWidth(line) > opts.Width {
				r.lines[i] = runewidth.Truncate(line, opts.Width, r.g.tail)
			}
		}
	}
	return r.lines
}

// Write renders the tree and writes it to w, one line per node with a
// trailing newline each.
func Write(w io.Writer, tr *trace.Tree, fs *source.FileSet, opts Opts) error {
	for _, line := range Lines(tr, fs, opts) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

type renderer struct {
	tree        *trace.Tree
	fs          *source.FileSet
	opts        Opts
	g           glyphs
	gutterWidth int
	lines       []string
}

// linear emits a branch-simplified path as a flat list, no connectors.
func (r *renderer) linear() {
	for id := 1; id < len(r.tree.Nodes); id++ {
		r.emit(trace.NodeID(id), "")
	}
}

// treeArt emits the root placeholder followed by a depth-first walk with
// box-drawing connectors.
func (r *renderer) treeArt() {
	r.lines = append(r.lines, r.gutter(0)+r.g.root)
	children := r.tree.Nodes[0].Children
	for i, c := range children {
		r.walk(c, "", i == len(children)-1)
	}
}

func (r *renderer) walk(id trace.NodeID, prefix string, last bool) {
	connector := r.g.tee
	childPrefix := prefix + r.g.bar
	if last {
		connector = r.g.corner
		childPrefix = prefix + r.g.blank
	}
	r.emit(id, prefix+connector)

	children := r.tree.Nodes[id].Children
	for i, c := range children {
		r.walk(c, childPrefix, i == len(children)-1)
	}
}

func (r *renderer) emit(id trace.NodeID, art string) {
	n := r.tree.Node(id)
	line := r.gutter(n.Pos) + art + r.tree.LabelOf(id)
	if ref := r.srcRef(id); ref != "" {
		line += " at " + ref
	}
	r.lines = append(r.lines, line)
}

// gutter formats the frame-number column. Nodes without a trace position
// (root, placeholders, truncation markers) get blank padding so the art
// stays aligned.
func (r *renderer) gutter(pos int) string {
	if !r.opts.FrameNumbers {
		return ""
	}
	if pos == 0 {
		return strings.Repeat(" ", r.gutterWidth+2)
	}
	return fmt.Sprintf("%*d. ", r.gutterWidth, pos)
}

func (r *renderer) srcRef(id trace.NodeID) string {
	if !r.opts.SrcRefs || r.fs == nil {
		return ""
	}
	n := r.tree.Node(id)
	if !n.HasSrcRef || n.Call == nil {
		return ""
	}
	span := n.Call.Span()
	if !span.Valid() {
		return ""
	}
	file := r.fs.Get(span.File)
	if file == nil {
		return ""
	}
	start, _ := r.fs.Resolve(span)
	dir := r.opts.Dir
	if dir == "" {
		dir = r.fs.BaseDir()
	}
	return fmt.Sprintf("%s:%d:%d", file.FormatPath(dir), start.Line, start.Col)
}

// numberWidth returns the digit width of the largest trace position in the
// tree, for right-aligned frame numbers.
func numberWidth(tr *trace.Tree) int {
	maxPos := 0
	for i := range tr.Nodes {
		if tr.Nodes[i].Pos > maxPos {
			maxPos = tr.Nodes[i].Pos
		}
	}
	width := 1
	for maxPos >= 10 {
		maxPos /= 10
		width++
	}
	return width
}
