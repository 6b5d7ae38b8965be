// Package ui owns the terminal: raw mode, key decoding, and drawing.
package ui

// KeyKind classifies a decoded key press.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyUp
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyEnter
	KeyEscape
	KeyBackspace
)

// Key is a single decoded key press.
type Key struct {
	Kind KeyKind
	Rune rune // set when Kind is KeyRune
}

// Is reports whether the key is the given printable rune.
func (k Key) Is(r rune) bool {
	return k.Kind == KeyRune && k.Rune == r
}
