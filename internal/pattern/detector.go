package pattern

import (
	"sync"

	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// Detector scans a trailing window of bars and returns at most one
// candidate formation. The window is everything the detector may see;
// implementations must not reach past its last bar.
type Detector interface {
	// Kind returns the formation kind this detector produces.
	Kind() types.FormationKind
	// MinWindow returns the minimum number of bars Detect needs.
	MinWindow() int
	// Detect returns the candidate formation found in the window, or
	// None when the window does not form the detector's shape.
	Detect(window []types.Bar) (optional.Option[types.Formation], error)
}

// Registry manages all available detectors.
type Registry interface {
	Register(detector Detector) error
	Get(kind types.FormationKind) (Detector, error)
	List() []types.FormationKind
	Remove(kind types.FormationKind) error
}

type registry struct {
	detectors map[types.FormationKind]Detector
	mu        sync.RWMutex
}

// NewRegistry creates an empty detector registry.
func NewRegistry() Registry {
	return &registry{
		detectors: make(map[types.FormationKind]Detector),
	}
}

// NewDefaultRegistry creates a registry with all built-in detectors
// registered.
func NewDefaultRegistry(windowSize int) Registry {
	r := NewRegistry()

	// Registration of built-ins cannot collide.
	_ = r.Register(NewCupWithHandleDetector(windowSize))
	_ = r.Register(NewRoundedBottomDetector(windowSize))
	_ = r.Register(NewGoldenCrossDetector())

	return r
}

// Register adds a detector to the registry.
func (r *registry) Register(detector Detector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := detector.Kind()
	if _, exists := r.detectors[kind]; exists {
		return errors.Newf(errors.ErrCodeDetectorExists, "detector for kind %s already registered", kind)
	}

	r.detectors[kind] = detector

	return nil
}

// Get retrieves a detector by formation kind.
func (r *registry) Get(kind types.FormationKind) (Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	detector, exists := r.detectors[kind]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnknownFormation, "no detector registered for kind %s", kind)
	}

	return detector, nil
}

// List returns all registered formation kinds.
func (r *registry) List() []types.FormationKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]types.FormationKind, 0, len(r.detectors))
	for kind := range r.detectors {
		kinds = append(kinds, kind)
	}

	return kinds
}

// Remove removes a detector from the registry.
func (r *registry) Remove(kind types.FormationKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.detectors[kind]; !exists {
		return errors.Newf(errors.ErrCodeUnknownFormation, "no detector registered for kind %s", kind)
	}

	delete(r.detectors, kind)

	return nil
}
