package usertable

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxViews caps live views when no limit is configured.
const DefaultMaxViews = 64

// ViewObserver is told the number of live views after every change.
type ViewObserver interface {
	SetActiveViews(n int)
}

// Registry holds one controller per opened page. A reload opens a new view,
// which starts empty and fetches again. When full, the oldest view is evicted.
type Registry struct {
	deps     Dependencies
	maxViews int
	observer ViewObserver
	onEvict  func(viewID string)

	mu    sync.Mutex
	views map[string]*Controller
	order []string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxViews sets the live view cap.
func WithMaxViews(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxViews = n
		}
	}
}

// WithViewObserver reports live view counts.
func WithViewObserver(observer ViewObserver) RegistryOption {
	return func(r *Registry) {
		r.observer = observer
	}
}

// WithEvictHook is called with the id of every evicted view.
func WithEvictHook(hook func(viewID string)) RegistryOption {
	return func(r *Registry) {
		r.onEvict = hook
	}
}

// NewRegistry creates a registry whose controllers share deps.
func NewRegistry(deps Dependencies, opts ...RegistryOption) *Registry {
	r := &Registry{
		deps:     deps,
		maxViews: DefaultMaxViews,
		views:    make(map[string]*Controller),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create opens a new view in PhaseIdle.
func (r *Registry) Create() *Controller {
	id := uuid.NewString()
	ctrl := NewController(id, r.deps)

	r.mu.Lock()
	var evicted []string
	for len(r.order) >= r.maxViews {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.views, oldest)
		evicted = append(evicted, oldest)
	}
	r.views[id] = ctrl
	r.order = append(r.order, id)
	n := len(r.views)
	r.mu.Unlock()

	for _, viewID := range evicted {
		if r.deps.Logger != nil {
			r.deps.Logger.Debug("view evicted", slog.String("view_id", viewID))
		}
		if r.onEvict != nil {
			r.onEvict(viewID)
		}
	}
	if r.observer != nil {
		r.observer.SetActiveViews(n)
	}

	return ctrl
}

// Get returns the controller of view id.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctrl, ok := r.views[id]
	if !ok {
		return nil, fmt.Errorf("view %q: %w", id, ErrViewNotFound)
	}
	return ctrl, nil
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
