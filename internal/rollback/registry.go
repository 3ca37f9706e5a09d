package rollback

import (
	"github.com/roach88/rewind/internal/sim"
)

// Kind classifies a registered component type.
type Kind uint8

const (
	// KindAuthoritative marks state whose source of truth is the server.
	// Corrections overwrite it directly.
	KindAuthoritative Kind = iota + 1

	// KindPredicted marks state computed locally by simulation. Corrections
	// never hand it down; resimulation recomputes it.
	KindPredicted
)

func (k Kind) String() string {
	switch k {
	case KindAuthoritative:
		return "authoritative"
	case KindPredicted:
		return "predicted"
	default:
		return "unknown"
	}
}

// CaptureFunc reads the live value of one component for one entity. It must
// return a copy the caller can own; the second return is false if the
// entity does not have the component.
type CaptureFunc func(e sim.EntityID) (any, bool)

// RestoreFunc writes a previously captured value back into the live
// simulation state for one entity.
type RestoreFunc func(e sim.EntityID, value any)

// Registration is one capability-tagged registry entry: a classification
// plus the pair of operations the reconciler invokes generically, so the
// engine never branches on concrete component types.
type Registration struct {
	Name    string
	Kind    Kind
	Capture CaptureFunc
	Restore RestoreFunc
}

// Registry maps component type names to their classification and snapshot
// operations.
//
// The registry is built once at startup and sealed when handed to a
// Reconciler; it is read on every reconciliation pass but never mutated
// afterwards. There is deliberately no package-level instance: callers
// construct one and pass it by reference.
type Registry struct {
	order   []string // declaration order, preserved for deterministic capture/restore
	entries map[string]Registration
	sealed  bool
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Registration),
	}
}

// RegisterAuthoritative registers a component type whose value the server
// owns. Fails with DuplicateRegistration if the name was already registered
// under either kind.
func (r *Registry) RegisterAuthoritative(name string, capture CaptureFunc, restore RestoreFunc) error {
	return r.register(Registration{Name: name, Kind: KindAuthoritative, Capture: capture, Restore: restore})
}

// RegisterPredicted registers a component type that resimulation recomputes.
// Fails with DuplicateRegistration if the name was already registered under
// either kind.
func (r *Registry) RegisterPredicted(name string, capture CaptureFunc, restore RestoreFunc) error {
	return r.register(Registration{Name: name, Kind: KindPredicted, Capture: capture, Restore: restore})
}

func (r *Registry) register(reg Registration) error {
	if r.sealed {
		return NewRegistrySealedError(reg.Name)
	}
	if _, ok := r.entries[reg.Name]; ok {
		return NewDuplicateRegistrationError(reg.Name)
	}
	r.entries[reg.Name] = reg
	r.order = append(r.order, reg.Name)
	return nil
}

// KindOf returns the classification of a registered component type. Fails
// with UnregisteredComponent for unknown names; that is a programming
// error, not a runtime condition.
func (r *Registry) KindOf(name string) (Kind, error) {
	reg, ok := r.entries[name]
	if !ok {
		return 0, NewUnregisteredComponentError(name)
	}
	return reg.Kind, nil
}

// Lookup returns the full registration for a component type.
func (r *Registry) Lookup(name string) (Registration, bool) {
	reg, ok := r.entries[name]
	return reg, ok
}

// Components returns registered component names in declaration order.
// The order never changes after construction, which keeps capture and
// restore deterministic.
func (r *Registry) Components() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered component types.
func (r *Registry) Len() int {
	return len(r.order)
}

// seal makes the registry immutable. Called when a Reconciler takes
// ownership; later registrations fail.
func (r *Registry) seal() {
	r.sealed = true
}
