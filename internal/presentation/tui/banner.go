package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chatflow banner followed by version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Subtle gradient (Teal/Cyan)
	lines := []struct{ text, color string }{
		{"       _           _    __ _               ", "#2dd4bf"},
		{"   ___| |__   __ _| |_ / _| | _____      __", "#22d3ee"},
		{"  / __| '_ \\ / _` | __| |_| |/ _ \\ \\ /\\ / /", "#38bdf8"},
		{" | (__| | | | (_| | |_|  _| | (_) \\ V  V / ", "#60a5fa"},
		{"  \\___|_| |_|\\__,_|\\__|_| |_|\\___/ \\_/\\_/  ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+version).Faint())
	fmt.Fprintln(w)
}
