package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the PolicyLab banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text, color string
	}{
		{`  ___     _ _            _         _    `, "#34d399"},
		{` | _ \___| (_)__ _  _  | |   __ _| |__ `, "#2dd4bf"},
		{` |  _/ _ \ | / _| || | | |__/ _' | '_ \`, "#22d3ee"},
		{` |_| \___/_|_\__|\_, | |____\__,_|_.__/`, "#38bdf8"},
		{`                 |__/                  `, "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
