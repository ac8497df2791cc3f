// Package ansi holds the terminal color table used by the text
// formatter. Lookups are by color name; unknown names resolve to no
// color rather than an error.
package ansi

import "github.com/agusgarcia3007/bun-logs/internal/core"

// Reset clears all terminal attributes.
const Reset = "\033[0m"

var codes = map[string]string{
	"black":   "\033[30m",
	"red":     "\033[31m",
	"green":   "\033[32m",
	"yellow":  "\033[33m",
	"blue":    "\033[34m",
	"magenta": "\033[35m",
	"cyan":    "\033[36m",
	"white":   "\033[37m",
	"gray":    "\033[90m",
	"grey":    "\033[90m",
	"none":    "",
}

// Code returns the escape sequence for a color name, or the empty
// string when the name is unknown.
func Code(name string) string {
	return codes[name]
}

// Known reports whether name maps to a color in the table.
func Known(name string) bool {
	_, ok := codes[name]
	return ok
}

// defaultColors is the built-in per-level color assignment.
var defaultColors = map[core.Level]string{
	core.LevelDebug: "gray",
	core.LevelInfo:  "green",
	core.LevelWarn:  "yellow",
	core.LevelError: "red",
}

// LevelColors merges user overrides onto the built-in defaults and
// resolves the result to escape sequences. Merging happens once at
// initialization, never per-call. Overrides keyed by an unknown level
// name or naming an unknown color fall back to the default.
func LevelColors(overrides map[string]string) map[core.Level]string {
	resolved := make(map[core.Level]string, len(defaultColors))
	for lvl, name := range defaultColors {
		resolved[lvl] = Code(name)
	}
	for levelName, colorName := range overrides {
		lvl, err := core.ParseLevel(levelName)
		if err != nil || !Known(colorName) {
			continue
		}
		resolved[lvl] = Code(colorName)
	}
	return resolved
}
