package record

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Progress draws a single-line bar on a terminal.
type Progress struct {
	w     io.Writer
	width int
	last  int
}

// NewProgress returns a bar drawn on f, or nil when f is not a terminal.
func NewProgress(f *os.File) *Progress {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = 80
	}
	return &Progress{w: f, width: width, last: -1}
}

// Update redraws the bar when the visible state changes.
func (p *Progress) Update(done, total int) {
	if total <= 0 {
		return
	}
	label := fmt.Sprintf(" %d/%d", done, total)
	bar := p.width - len(label) - 3
	if bar < 10 {
		bar = 10
	}
	filled := done * bar / total
	if filled == p.last && done != total {
		return
	}
	p.last = filled
	fmt.Fprintf(p.w, "\r[%s%s]%s", strings.Repeat("#", filled), strings.Repeat(".", bar-filled), label)
}

// Done ends the bar's line.
func (p *Progress) Done() {
	fmt.Fprintln(p.w)
}
