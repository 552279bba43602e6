package trace

import (
	"fmt"

	"autotrace/pkg/geometry"
)

// EventKind identifies an input event delivered to a Session.
type EventKind int

const (
	EventPointerMove EventKind = iota
	EventModifierDown
	EventModifierUp
	EventReverseDown
	EventReverseUp
	EventPrimaryClick
	EventSecondaryClick
	EventBackspace
	EventCancel
)

var eventNames = map[EventKind]string{
	EventPointerMove:    "move",
	EventModifierDown:   "modifier_down",
	EventModifierUp:     "modifier_up",
	EventReverseDown:    "reverse_down",
	EventReverseUp:      "reverse_up",
	EventPrimaryClick:   "click",
	EventSecondaryClick: "rclick",
	EventBackspace:      "backspace",
	EventCancel:         "cancel",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind returns the kind named by s.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModTrace   Modifiers = 1 << iota // Traces along the snapped boundary
	ModReverse                       // Forces the longer ring arc
)

// Event is one pointer or keyboard input. Pos is in screen pixels and is
// only meaningful for pointer events. Mods is read by pointer moves, which
// carry the modifier state observed by the host at the time of the move.
type Event struct {
	Kind EventKind
	Pos  geometry.Point2D
	Mods Modifiers
}

// PointerMove builds a pointer move event.
func PointerMove(pos geometry.Point2D, mods Modifiers) Event {
	return Event{Kind: EventPointerMove, Pos: pos, Mods: mods}
}

// PrimaryClick builds a primary button click event.
func PrimaryClick(pos geometry.Point2D) Event {
	return Event{Kind: EventPrimaryClick, Pos: pos}
}

// SecondaryClick builds a secondary button click event.
func SecondaryClick(pos geometry.Point2D) Event {
	return Event{Kind: EventSecondaryClick, Pos: pos}
}

// Key builds a keyboard event of the given kind.
func Key(kind EventKind) Event {
	return Event{Kind: kind}
}
