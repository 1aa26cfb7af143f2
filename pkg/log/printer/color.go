// SPDX-License-Identifier: GPL-3.0-only
package printer

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// InitColorState decides whether output gets colored. Priority: explicit
// user setting, NO_COLOR environment variable, TTY detection, off.
func InitColorState(explicitSetting *bool, writer io.Writer) {
	if explicitSetting != nil {
		color.NoColor = !*explicitSetting
		return
	}
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
		return
	}
	if f, ok := writer.(*os.File); ok {
		color.NoColor = !isatty.IsTerminal(f.Fd())
		return
	}
	color.NoColor = true
}

var levelColors = map[string]*color.Color{
	"FATAL":    color.New(color.FgRed, color.Bold),
	"CRITICAL": color.New(color.FgRed, color.Bold),
	"ERROR":    color.New(color.FgRed),
	"WARN":     color.New(color.FgYellow),
	"WARNING":  color.New(color.FgYellow),
	"INFO":     color.New(color.FgGreen),
	"DEBUG":    color.New(color.FgCyan),
	"TRACE":    color.New(color.FgBlue),
}

func levelColor(level string) *color.Color {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return color.New(color.FgWhite)
}
