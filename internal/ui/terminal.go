package ui

import (
	"bufio"
	"os"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

// Terminal puts the controlling terminal into raw mode and decodes key
// presses onto a channel, so the event loop can poll input alongside
// player events.
type Terminal struct {
	in       *os.File
	out      *bufio.Writer
	oldState *term.State
	keys     chan Key
	width    int
	height   int
}

// OpenTerminal switches to the alternate screen in raw mode and starts
// the key reader.
func OpenTerminal() (*Terminal, error) {
	in := os.Stdin
	fd := int(in.Fd())

	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enter raw mode")
	}

	width, height, err := term.GetSize(fd)
	if err != nil {
		_ = term.Restore(fd, oldState)
		return nil, errors.Wrap(err, "failed to read terminal size")
	}

	t := &Terminal{
		in:       in,
		out:      bufio.NewWriter(os.Stdout),
		oldState: oldState,
		keys:     make(chan Key, 16),
		width:    width,
		height:   height,
	}

	// Alternate screen, hidden cursor.
	t.out.WriteString("\x1b[?1049h\x1b[?25l")
	t.out.Flush()

	go t.readKeys()

	return t, nil
}

// Close restores the terminal. Safe to call once after OpenTerminal
// succeeded.
func (t *Terminal) Close() {
	t.out.WriteString("\x1b[?25h\x1b[?1049l")
	t.out.Flush()
	_ = term.Restore(int(t.in.Fd()), t.oldState)
}

// Keys returns the decoded key stream. The channel closes when stdin
// does.
func (t *Terminal) Keys() <-chan Key {
	return t.keys
}

// Size re-measures the terminal on every call, so a resize takes effect
// on the next frame. The last known dimensions are kept as a fallback.
func (t *Terminal) Size() (width, height int) {
	if w, h, err := term.GetSize(int(t.in.Fd())); err == nil {
		t.width, t.height = w, h
	}
	return t.width, t.height
}

// WriteString buffers output for the next Flush.
func (t *Terminal) WriteString(s string) {
	t.out.WriteString(s)
}

func (t *Terminal) Flush() {
	t.out.Flush()
}

// escapeTimeout separates a bare Escape press from the sequence a
// terminal sends for a navigation key. The sequence can arrive split
// across reads on a slow connection, so an empty read buffer right
// after the escape byte proves nothing; a short wait does.
const escapeTimeout = 50 * time.Millisecond

func (t *Terminal) readKeys() {
	defer close(t.keys)

	input := make(chan byte, 64)
	go func() {
		defer close(input)
		buf := make([]byte, 64)
		for {
			n, err := t.in.Read(buf)
			for i := 0; i < n; i++ {
				input <- buf[i]
			}
			if err != nil {
				return
			}
		}
	}()

	d := &keyDecoder{input: input}
	for {
		key, ok := d.next()
		if !ok {
			return
		}
		t.keys <- key
	}
}

// keyDecoder turns a raw byte stream into key presses, translating the
// escape sequences terminals send for navigation keys.
type keyDecoder struct {
	input <-chan byte
}

func (d *keyDecoder) next() (Key, bool) {
	b, ok := <-d.input
	if !ok {
		return Key{}, false
	}

	switch b {
	case '\r', '\n':
		return Key{Kind: KeyEnter}, true
	case 0x7f, '\b':
		return Key{Kind: KeyBackspace}, true
	case 0x1b:
		return d.escape(), true
	}

	if b < utf8.RuneSelf {
		return Key{Kind: KeyRune, Rune: rune(b)}, true
	}
	return d.multibyte(b), true
}

// nextWithin reads the next byte unless the timeout elapses first.
func (d *keyDecoder) nextWithin(timeout time.Duration) (byte, bool) {
	select {
	case b, ok := <-d.input:
		return b, ok
	case <-time.After(timeout):
		return 0, false
	}
}

func (d *keyDecoder) escape() Key {
	b, ok := d.nextWithin(escapeTimeout)
	if !ok || b != '[' {
		return Key{Kind: KeyEscape}
	}

	b, ok = d.nextWithin(escapeTimeout)
	if !ok {
		return Key{Kind: KeyEscape}
	}

	switch b {
	case 'A':
		return Key{Kind: KeyUp}
	case 'B':
		return Key{Kind: KeyDown}
	case 'H':
		return Key{Kind: KeyHome}
	case 'F':
		return Key{Kind: KeyEnd}
	case '5', '6':
		// Page keys end with a tilde.
		if tail, ok := d.nextWithin(escapeTimeout); !ok || tail != '~' {
			return Key{Kind: KeyEscape}
		}
		if b == '5' {
			return Key{Kind: KeyPageUp}
		}
		return Key{Kind: KeyPageDown}
	case '1', '4':
		// Some terminals send home and end in this form.
		if tail, ok := d.nextWithin(escapeTimeout); !ok || tail != '~' {
			return Key{Kind: KeyEscape}
		}
		if b == '1' {
			return Key{Kind: KeyHome}
		}
		return Key{Kind: KeyEnd}
	}

	return Key{Kind: KeyEscape}
}

// multibyte assembles a UTF-8 rune whose first byte has already been
// read.
func (d *keyDecoder) multibyte(b byte) Key {
	buf := []byte{b}
	for !utf8.FullRune(buf) && len(buf) < utf8.UTFMax {
		nb, ok := d.nextWithin(escapeTimeout)
		if !ok {
			break
		}
		buf = append(buf, nb)
	}
	r, _ := utf8.DecodeRune(buf)
	return Key{Kind: KeyRune, Rune: r}
}

// Prompt draws an input line at the bottom of the screen and collects a
// line of text. Enter confirms and Escape cancels, reported by ok. The
// caller repaints on the next frame either way.
func (t *Terminal) Prompt(label string) (text string, ok bool) {
	input := []rune{}

	redraw := func() {
		// Bottom row: label, current input, cursor cell.
		_, height := t.Size()
		t.moveTo(height, 1)
		t.out.WriteString("\x1b[2K")
		t.out.WriteString(label)
		t.out.WriteString(string(input))
		t.out.WriteString("\x1b[7m \x1b[0m")
		t.out.Flush()
	}
	redraw()

	for key := range t.keys {
		switch key.Kind {
		case KeyEnter:
			return string(input), true
		case KeyEscape:
			return "", false
		case KeyBackspace:
			if len(input) > 0 {
				input = input[:len(input)-1]
			}
		case KeyRune:
			input = append(input, key.Rune)
		}
		redraw()
	}

	return "", false
}

// Confirm draws a yes/no question at the bottom of the screen and waits
// for the answer. Only 'y' confirms.
func (t *Terminal) Confirm(question string) bool {
	_, height := t.Size()
	t.moveTo(height, 1)
	t.out.WriteString("\x1b[2K")
	t.out.WriteString(question)
	t.out.WriteString(" [y/N] ")
	t.out.Flush()

	for key := range t.keys {
		switch {
		case key.Is('y') || key.Is('Y'):
			return true
		case key.Kind == KeyRune || key.Kind == KeyEnter || key.Kind == KeyEscape:
			return false
		}
	}
	return false
}

func (t *Terminal) moveTo(row, col int) {
	writeMoveTo(t.out, row, col)
}
