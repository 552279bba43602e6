package canvas

import (
	"strings"

	"autotrace/internal/trace"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Modifier key names accepted in preferences.
const (
	ModShift   = "shift"
	ModControl = "control"
	ModAlt     = "alt"
	ModSuper   = "super"
)

// Bindings maps modifier keys onto the trace and reverse modifiers.
type Bindings struct {
	Trace   string
	Reverse string
}

// DefaultBindings returns shift to trace and control to reverse.
func DefaultBindings() Bindings {
	return Bindings{Trace: ModShift, Reverse: ModControl}
}

func modifierMask(name string) fyne.KeyModifier {
	switch strings.ToLower(name) {
	case ModShift:
		return fyne.KeyModifierShift
	case ModControl:
		return fyne.KeyModifierControl
	case ModAlt:
		return fyne.KeyModifierAlt
	case ModSuper:
		return fyne.KeyModifierSuper
	}
	return 0
}

func modifierKeys(name string) []fyne.KeyName {
	switch strings.ToLower(name) {
	case ModShift:
		return []fyne.KeyName{desktop.KeyShiftLeft, desktop.KeyShiftRight}
	case ModControl:
		return []fyne.KeyName{desktop.KeyControlLeft, desktop.KeyControlRight}
	case ModAlt:
		return []fyne.KeyName{desktop.KeyAltLeft, desktop.KeyAltRight}
	case ModSuper:
		return []fyne.KeyName{desktop.KeySuperLeft, desktop.KeySuperRight}
	}
	return nil
}

// Mods converts the modifier state of a pointer event.
func (b Bindings) Mods(m fyne.KeyModifier) trace.Modifiers {
	var mods trace.Modifiers
	if mask := modifierMask(b.Trace); mask != 0 && m&mask != 0 {
		mods |= trace.ModTrace
	}
	if mask := modifierMask(b.Reverse); mask != 0 && m&mask != 0 {
		mods |= trace.ModReverse
	}
	return mods
}

// KeyEvent returns the session event for a modifier key press or release.
func (b Bindings) KeyEvent(key fyne.KeyName, down bool) (trace.EventKind, bool) {
	for _, k := range modifierKeys(b.Trace) {
		if k == key {
			if down {
				return trace.EventModifierDown, true
			}
			return trace.EventModifierUp, true
		}
	}
	for _, k := range modifierKeys(b.Reverse) {
		if k == key {
			if down {
				return trace.EventReverseDown, true
			}
			return trace.EventReverseUp, true
		}
	}
	return 0, false
}

// CommandKey returns the session event for a typed key.
func CommandKey(key fyne.KeyName) (trace.EventKind, bool) {
	switch key {
	case fyne.KeyBackspace, fyne.KeyDelete:
		return trace.EventBackspace, true
	case fyne.KeyEscape:
		return trace.EventCancel, true
	}
	return 0, false
}
