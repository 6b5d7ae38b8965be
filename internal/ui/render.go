package ui

import (
	"fmt"
	"io"
	"strings"
)

// surface is the drawing target: the live terminal in production.
type surface interface {
	Size() (width, height int)
	WriteString(s string)
	Flush()
}

// Renderer draws frames. It keeps only the list scroll position between
// frames; everything else arrives in the model.
type Renderer struct {
	surf   surface
	offset int
}

func NewRenderer(t *Terminal) *Renderer {
	return &Renderer{surf: t}
}

// Render draws a full frame, sized to the terminal as it is now rather
// than as it was at startup.
func (r *Renderer) Render(m Model) {
	width, height := r.surf.Size()

	visible := listHeight(height)
	r.offset = scrollOffset(r.offset, m.Cursor, len(m.Items), visible)

	r.surf.WriteString(renderFrame(m, width, height, r.offset))
	r.surf.Flush()
}

// listHeight is the number of list rows: everything except the heading
// and the three bottom bars.
func listHeight(height int) int {
	h := height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// scrollOffset keeps the cursor inside the visible window.
func scrollOffset(offset, cursor, total, visible int) int {
	if total <= visible {
		return 0
	}
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+visible {
		offset = cursor - visible + 1
	}
	if offset > total-visible {
		offset = total - visible
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

func renderFrame(m Model, width, height, offset int) string {
	var b strings.Builder

	// Home the cursor rather than clearing, to avoid flicker; every
	// row is erased as it is rewritten.
	b.WriteString("\x1b[H")

	heading := m.View.Title()
	if m.Heading != "" {
		heading += ": " + m.Heading
	}
	writeRow(&b, 1, "\x1b[1m"+clip(heading, width)+"\x1b[0m")

	visible := listHeight(height)
	for i := 0; i < visible; i++ {
		idx := offset + i
		row := 2 + i
		if idx >= len(m.Items) {
			writeRow(&b, row, "")
			continue
		}
		line := clip(m.Items[idx], width-2)
		if idx == m.Cursor {
			writeRow(&b, row, "\x1b[7m> "+line+"\x1b[0m")
		} else {
			writeRow(&b, row, "  "+line)
		}
	}

	writeRow(&b, height-2, nowPlayingBar(m, width))
	writeRow(&b, height-1, clip(m.Status, width))
	writeRow(&b, height, "\x1b[2m"+clip(m.KeyHints, width)+"\x1b[0m")

	return b.String()
}

func nowPlayingBar(m Model, width int) string {
	if m.NowPlaying == "" {
		return "\x1b[2m-- nothing playing --\x1b[0m"
	}
	bar := "Now playing: " + m.NowPlaying
	if m.Paused {
		bar += " [PAUSED]"
	}
	return clip(bar, width)
}

func writeRow(b *strings.Builder, row int, content string) {
	writeMoveTo(b, row, 1)
	b.WriteString("\x1b[2K")
	b.WriteString(content)
}

func writeMoveTo(w io.Writer, row, col int) {
	fmt.Fprintf(w, "\x1b[%d;%dH", row, col)
}

// clip truncates to the display width, leaving room for an ellipsis
// marker when something was cut.
func clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
