// Package replay runs recorded input scripts against a tracing session
// without a display.
package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"autotrace/internal/app"
	"autotrace/internal/trace"
	"autotrace/pkg/geometry"
)

// Step is one recorded input. X and Y are screen pixels; Mods lists the
// modifiers held during a pointer move ("trace", "reverse"). A move without
// Mods keeps the modifiers pressed by earlier key steps.
type Step struct {
	Kind string   `json:"kind"`
	X    float64  `json:"x,omitempty"`
	Y    float64  `json:"y,omitempty"`
	Mods []string `json:"mods,omitempty"`
}

// Event converts the step into a session event. held is the modifier state
// left by the previous steps and is used by moves that list no Mods.
func (s Step) Event(held trace.Modifiers) (trace.Event, error) {
	kind, err := trace.ParseEventKind(s.Kind)
	if err != nil {
		return trace.Event{}, err
	}
	mods := held
	if s.Mods != nil {
		mods = 0
	}
	for _, m := range s.Mods {
		switch strings.ToLower(m) {
		case "trace":
			mods |= trace.ModTrace
		case "reverse":
			mods |= trace.ModReverse
		default:
			return trace.Event{}, fmt.Errorf("unknown modifier %q", m)
		}
	}
	return trace.Event{Kind: kind, Pos: geometry.NewPoint2D(s.X, s.Y), Mods: mods}, nil
}

// hold returns the modifier state after ev.
func hold(held trace.Modifiers, ev trace.Event) trace.Modifiers {
	switch ev.Kind {
	case trace.EventPointerMove:
		return ev.Mods
	case trace.EventModifierDown:
		return held | trace.ModTrace
	case trace.EventModifierUp:
		return held &^ trace.ModTrace
	case trace.EventReverseDown:
		return held | trace.ModReverse
	case trace.EventReverseUp:
		return held &^ trace.ModReverse
	}
	return held
}

// Parse decodes a script: a JSON array of steps.
func Parse(data []byte) ([]trace.Event, error) {
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, err
	}
	events := make([]trace.Event, 0, len(steps))
	var held trace.Modifiers
	for i, s := range steps {
		ev, err := s.Event(held)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		held = hold(held, ev)
		events = append(events, ev)
	}
	return events, nil
}

// Load reads and parses a script file.
func Load(path string) ([]trace.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	events, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return events, nil
}

// Result summarizes a replay.
type Result struct {
	Events   int
	Finished []string // Ids of the features added
	Errors   []error  // Errors returned while finishing traces
}

// Run activates the trace tool and feeds events to the session in order.
// Errors from finishing a trace are collected and do not stop the replay.
func Run(state *app.State, events []trace.Event) (Result, error) {
	var res Result
	if err := state.ActivateTool(); err != nil {
		return res, err
	}
	defer state.DeactivateTool()

	state.On(app.EventTraceFinished, func(data interface{}) {
		if id, ok := data.(string); ok {
			res.Finished = append(res.Finished, id)
		}
	})
	for i, ev := range events {
		if err := state.HandleEvent(ev); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("event %d (%v): %w", i, ev.Kind, err))
		}
		res.Events++
	}
	return res, nil
}
