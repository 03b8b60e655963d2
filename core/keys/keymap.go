package keys

import (
	"strings"
	"time"
)

// Key codes, named after KeyboardEvent.code.
const (
	CodeSpace      = "Space"
	CodeArrowLeft  = "ArrowLeft"
	CodeArrowRight = "ArrowRight"
	CodeArrowUp    = "ArrowUp"
	CodeArrowDown  = "ArrowDown"
	CodeKeyN       = "KeyN"
	CodeKeyP       = "KeyP"
)

const (
	SeekStep   = 5 * time.Second
	VolumeStep = 0.1
)

// Transport is the set of operations the shortcuts drive.
type Transport interface {
	TogglePlay()
	Next()
	Prev()
	SeekBy(d time.Duration)
	AdjustVolume(delta float64)
}

// Event is a key press as reported by the UI.
type Event struct {
	Code string `json:"code"`
	// Target is the tag name of the focused element, if any.
	Target string `json:"target,omitempty"`
}

// TextInputFocused reports whether the event was typed into a text field.
func (e Event) TextInputFocused() bool {
	switch strings.ToUpper(e.Target) {
	case "INPUT", "TEXTAREA":
		return true
	}
	return false
}

// Handle runs the operation bound to ev and reports whether one was bound.
// Events typed into a text field are ignored.
func Handle(t Transport, ev Event) bool {
	if ev.TextInputFocused() {
		return false
	}
	switch ev.Code {
	case CodeSpace:
		t.TogglePlay()
	case CodeArrowRight:
		t.SeekBy(SeekStep)
	case CodeArrowLeft:
		t.SeekBy(-SeekStep)
	case CodeArrowUp:
		t.AdjustVolume(VolumeStep)
	case CodeArrowDown:
		t.AdjustVolume(-VolumeStep)
	case CodeKeyN:
		t.Next()
	case CodeKeyP:
		t.Prev()
	default:
		return false
	}
	return true
}
