package reqres

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/lllypuk/useradmin/internal/domain/errs"
	"github.com/lllypuk/useradmin/internal/domain/user"
)

// DemoUsers is the first page of the public reqres.in users collection.
func DemoUsers() []user.User {
	return []user.User{
		{ID: 1, Email: "george.bluth@reqres.in", FirstName: "George", LastName: "Bluth"},
		{ID: 2, Email: "janet.weaver@reqres.in", FirstName: "Janet", LastName: "Weaver"},
		{ID: 3, Email: "emma.wong@reqres.in", FirstName: "Emma", LastName: "Wong"},
		{ID: 4, Email: "eve.holt@reqres.in", FirstName: "Eve", LastName: "Holt"},
		{ID: 5, Email: "charles.morris@reqres.in", FirstName: "Charles", LastName: "Morris"},
		{ID: 6, Email: "tracey.ramos@reqres.in", FirstName: "Tracey", LastName: "Ramos"},
	}
}

// FixtureClient serves a fixed user list in-process. Used in mock mode.
//
// Like the demo API it does not persist deletes: every list returns the
// fixture again, and deleting an unknown id still succeeds.
type FixtureClient struct {
	mu        sync.Mutex
	users     []user.User
	failList  bool
	failIDs   map[int]bool
	listCalls int
	deletes   []int
}

// NewFixtureClient creates a client serving users.
func NewFixtureClient(users []user.User) *FixtureClient {
	return &FixtureClient{
		users:   slices.Clone(users),
		failIDs: make(map[int]bool),
	}
}

// FailList makes subsequent ListUsers calls fail.
func (f *FixtureClient) FailList(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList = fail
}

// FailDelete makes DeleteUser fail for id.
func (f *FixtureClient) FailDelete(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIDs[id] = true
}

// ListUsers returns a copy of the fixture.
func (f *FixtureClient) ListUsers(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.failList {
		return nil, &StatusError{Method: http.MethodGet, URL: "fixture://users", StatusCode: http.StatusServiceUnavailable}
	}
	return slices.Clone(f.users), nil
}

// DeleteUser records the call.
func (f *FixtureClient) DeleteUser(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes = append(f.deletes, id)
	if f.failIDs[id] {
		return errs.ErrDeleteFailed
	}
	return nil
}

// ListCalls returns how many times ListUsers was called.
func (f *FixtureClient) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// Deletes returns the ids passed to DeleteUser in call order.
func (f *FixtureClient) Deletes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deletes)
}
