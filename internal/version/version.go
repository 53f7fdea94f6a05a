// Package version records the fern build fingerprint. The release number
// lives here; commit and date arrive through -ldflags or, when those are
// absent, from the VCS stamps the Go toolchain embeds in the binary.
package version

import (
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
)

// Number is the plain semantic version of this build.
var Number = "0.1.0-dev"

// Overridable at build time:
//
//	-ldflags "-X fern/internal/version.GitCommit=$(git rev-parse HEAD)"
var (
	GitCommit  = ""
	GitMessage = ""
	BuildDate  = ""
)

// Version is Number with its major, minor, and patch components tinted
// for banner output. Tinting degrades to plain text when color is off.
var Version = Colorize(Number)

var componentColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colorize tints up to three dot-separated version components. Anything
// past the patch component (pre-release tags, build metadata) rides along
// with the patch.
func Colorize(v string) string {
	parts := strings.SplitN(v, ".", len(componentColors))
	for i := range parts {
		parts[i] = componentColors[i].Sprint(parts[i])
	}
	return strings.Join(parts, ".")
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == "" {
				GitCommit = s.Value
			}
		case "vcs.time":
			if BuildDate == "" {
				BuildDate = s.Value
			}
		}
	}
}
