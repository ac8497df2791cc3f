package ansi

import (
	"testing"

	"github.com/agusgarcia3007/bun-logs/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	assert.Equal(t, "\033[31m", Code("red"))
	assert.Equal(t, "", Code("none"))
	assert.Equal(t, "", Code("ultraviolet"), "unknown names fall back to no color")
}

func TestLevelColors_Defaults(t *testing.T) {
	colors := LevelColors(nil)
	assert.Equal(t, Code("gray"), colors[core.LevelDebug])
	assert.Equal(t, Code("green"), colors[core.LevelInfo])
	assert.Equal(t, Code("yellow"), colors[core.LevelWarn])
	assert.Equal(t, Code("red"), colors[core.LevelError])
}

func TestLevelColors_Overrides(t *testing.T) {
	colors := LevelColors(map[string]string{
		"info":     "cyan",
		"error":    "ultraviolet", // unknown color: keep the default
		"critical": "blue",        // unknown level: ignored
	})
	assert.Equal(t, Code("cyan"), colors[core.LevelInfo])
	assert.Equal(t, Code("red"), colors[core.LevelError])
	assert.Equal(t, Code("yellow"), colors[core.LevelWarn])
}
