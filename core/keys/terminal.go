package keys

import (
	"bufio"
	"io"
	"unicode"
)

// CodeInterrupt is reported for Ctrl-C, which raw mode no longer turns into a signal.
const CodeInterrupt = "Interrupt"

const (
	keyEsc    = 0x1b
	keyCtrlC  = 0x03
	keyCtrlD  = 0x04
	csiPrefix = '['
)

// Decoder turns raw terminal input into key codes.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder reads key presses from r, normally a terminal in raw mode.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next blocks for the next key press. Unknown sequences yield an empty code.
func (d *Decoder) Next() (string, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return "", err
	}
	switch {
	case b == ' ':
		return CodeSpace, nil
	case b == keyCtrlC || b == keyCtrlD:
		return CodeInterrupt, nil
	case b == keyEsc:
		return d.escape()
	case b < unicode.MaxASCII && unicode.IsLetter(rune(b)):
		return "Key" + string(unicode.ToUpper(rune(b))), nil
	case b >= '0' && b <= '9':
		return "Digit" + string(rune(b)), nil
	}
	return "", nil
}

// escape decodes CSI arrow sequences. A lone ESC is returned as "Escape".
func (d *Decoder) escape() (string, error) {
	if d.r.Buffered() == 0 {
		return "Escape", nil
	}
	next, err := d.r.Peek(1)
	if err != nil || next[0] != csiPrefix {
		return "Escape", nil
	}
	d.r.ReadByte()
	final, err := d.r.ReadByte()
	if err != nil {
		return "", err
	}
	switch final {
	case 'A':
		return CodeArrowUp, nil
	case 'B':
		return CodeArrowDown, nil
	case 'C':
		return CodeArrowRight, nil
	case 'D':
		return CodeArrowLeft, nil
	}
	return "", nil
}
