package usertable_test

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/lllypuk/useradmin/internal/domain/user"
)

var errRemote = errors.New("remote failure")

// fakeAPI is a scriptable users API. A non-nil gate blocks each call until it
// receives a value or the gate is closed.
type fakeAPI struct {
	mu          sync.Mutex
	users       []user.User
	listErr     error
	deleteErr   map[int]error
	listGate    chan struct{}
	deleteGate  chan struct{}
	listCalls   int
	deleteCalls []int
}

func newFakeAPI(users ...user.User) *fakeAPI {
	return &fakeAPI{users: users, deleteErr: make(map[int]error)}
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]user.User, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.users), nil
}

func (f *fakeAPI) DeleteUser(ctx context.Context, id int) error {
	f.mu.Lock()
	f.deleteCalls = append(f.deleteCalls, id)
	gate := f.deleteGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr[id]
}

func (f *fakeAPI) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeAPI) DeleteCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deleteCalls)
}

type toast struct {
	viewID      string
	kind        string
	message     string
	description string
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []toast
}

func (n *recordingNotifier) Success(_ context.Context, viewID, message, description string) {
	n.add(toast{viewID: viewID, kind: "success", message: message, description: description})
}

func (n *recordingNotifier) Error(_ context.Context, viewID, message, description string) {
	n.add(toast{viewID: viewID, kind: "error", message: message, description: description})
}

func (n *recordingNotifier) add(t toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, t)
}

func (n *recordingNotifier) All() []toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.toasts)
}

func (n *recordingNotifier) Last() (toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return toast{}, false
	}
	return n.toasts[len(n.toasts)-1], true
}

type recordingObserver struct {
	mu      sync.Mutex
	results map[string][]error
	views   int
}

func (o *recordingObserver) ObserveOperation(operation string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[string][]error)
	}
	o.results[operation] = append(o.results[operation], err)
}

func (o *recordingObserver) SetActiveViews(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.views = n
}

func sampleUsers() []user.User {
	return []user.User{
		{ID: 1, Email: "a@x.com", FirstName: "Ann", LastName: "Lee"},
		{ID: 2, Email: "bob@x.com", FirstName: "Bob", LastName: "Marley"},
		{ID: 3, Email: "carl@x.com", FirstName: "Carl", LastName: "Sagan"},
	}
}
