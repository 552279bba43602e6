package features

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/twpayne/go-geom"
)

var (
	// ErrInvalidGeometry is returned when a trace has validity problems and
	// nobody can be asked whether to keep it.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrNoEditLayer is returned when a trace finishes with no edit layer set.
	ErrNoEditLayer = errors.New("no edit layer")
)

// Decider asks whether a geometry with validity problems should be kept.
// Confirm may answer asynchronously by calling done later, from any goroutine.
type Decider interface {
	Confirm(problems []Problem, done func(keep bool))
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(problems []Problem, done func(keep bool))

// Confirm calls f.
func (f DeciderFunc) Confirm(problems []Problem, done func(keep bool)) {
	f(problems, done)
}

// Always returns a decider that answers keep without asking.
func Always(keep bool) Decider {
	return DeciderFunc(func(_ []Problem, done func(bool)) { done(keep) })
}

// Sink validates finished traces and adds them to the edit layer.
type Sink struct {
	store   *Store
	decider Decider
	logger  *log.Logger

	mu      sync.Mutex
	layerID string
	onAdded func(layerID, featureID string)
}

// NewSink creates a sink writing into store. A nil decider rejects every
// geometry with problems.
func NewSink(store *Store, decider Decider, logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{store: store, decider: decider, logger: logger}
}

// SetLayer selects the edit layer.
func (s *Sink) SetLayer(id string) {
	s.mu.Lock()
	s.layerID = id
	s.mu.Unlock()
}

// OnAdded sets a callback invoked after a feature was added.
func (s *Sink) OnAdded(fn func(layerID, featureID string)) {
	s.mu.Lock()
	s.onAdded = fn
	s.mu.Unlock()
}

// TraceFinished validates g and stores it. When g has problems the decider
// is asked and the feature is added once it answers keep; a nil error then
// only means the question was asked.
func (s *Sink) TraceFinished(g geom.T) error {
	s.mu.Lock()
	layerID := s.layerID
	s.mu.Unlock()
	if layerID == "" {
		return ErrNoEditLayer
	}
	layer, err := s.store.Layer(layerID)
	if err != nil {
		return fmt.Errorf("store trace: %w", err)
	}

	problems := Validate(g)
	if len(problems) == 0 {
		return s.add(layer, g)
	}
	s.logger.Printf("Sink: trace has %d problem(s): %s", len(problems), summarize(problems))
	if s.decider == nil {
		return fmt.Errorf("%s: %w", summarize(problems), ErrInvalidGeometry)
	}
	s.decider.Confirm(problems, func(keep bool) {
		if !keep {
			s.logger.Printf("Sink: invalid trace discarded")
			return
		}
		if err := s.add(layer, g); err != nil {
			s.logger.Printf("Sink: %v", err)
		}
	})
	return nil
}

func (s *Sink) add(layer *Layer, g geom.T) error {
	id, err := layer.Add(&Feature{Geometry: g, Properties: map[string]interface{}{}})
	if err != nil {
		return fmt.Errorf("store trace: %w", err)
	}
	s.logger.Printf("Sink: added feature %s to layer %s", id, layer.ID)

	s.mu.Lock()
	fn := s.onAdded
	s.mu.Unlock()
	if fn != nil {
		fn(layer.ID, id)
	}
	return nil
}

func summarize(problems []Problem) string {
	parts := make([]string, len(problems))
	for i, p := range problems {
		parts[i] = p.String()
	}
	return strings.Join(parts, "; ")
}
