package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _        _ _       ", "#34d399"},
	{" | |_ __ _| | |_  _  ", "#2dd4bf"},
	{" |  _/ _` | | | || | ", "#22d3ee"},
	{"  \\__\\__,_|_|_|\\_, | ", "#38bdf8"},
	{"               |__/  ", "#60a5fa"},
}

// PrintBanner writes the tally logo to w using the colors w supports.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version+"  type an expression, 'history' or 'exit'").Faint())
	fmt.Fprintln(w)
}
