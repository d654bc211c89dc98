// Package usertable owns the state of one user table view and every operation
// the operator can run on it.
package usertable

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/lllypuk/useradmin/internal/domain/errs"
	"github.com/lllypuk/useradmin/internal/domain/user"
)

// Operation names reported to the observer.
const (
	OperationLoad   = "load"
	OperationDelete = "delete"
	OperationEdit   = "edit"
)

// UsersAPI is the remote user collection.
// Declared on the consumer side per project guidelines.
type UsersAPI interface {
	ListUsers(ctx context.Context) ([]user.User, error)
	DeleteUser(ctx context.Context, id int) error
}

// Notifier shows toasts in the browser tab of a view.
type Notifier interface {
	Success(ctx context.Context, viewID, message, description string)
	Error(ctx context.Context, viewID, message, description string)
}

// OperationObserver records operation outcomes.
type OperationObserver interface {
	ObserveOperation(operation string, err error)
}

// Dependencies are shared by every controller of a process.
type Dependencies struct {
	API      UsersAPI
	Notifier Notifier
	Logger   *slog.Logger
	Observer OperationObserver
}

// Controller serialises the operations of one view.
//
// The mutex guards state only and is never held across a remote call, so
// overlapping deletes each apply their own transition when they settle.
type Controller struct {
	id        string
	deps      Dependencies
	logger    *slog.Logger
	createdAt time.Time

	mu    sync.Mutex
	state State

	activate sync.Once
	settled  chan struct{}
	loadErr  error // written once before settled is closed
}

// NewController creates a controller for view id in PhaseIdle.
func NewController(id string, deps Dependencies) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		id:        id,
		deps:      deps,
		logger:    logger.With(slog.String("view_id", id)),
		createdAt: time.Now(),
		state:     State{Users: []user.User{}},
		settled:   make(chan struct{}),
	}
}

// ID returns the view id.
func (c *Controller) ID() string {
	return c.id
}

// CreatedAt returns when the view was opened.
func (c *Controller) CreatedAt() time.Time {
	return c.createdAt
}

// Activate starts the initial load in the background. Only the first call
// has an effect. The load does not inherit ctx cancellation, so a closed page
// request cannot leave the loading flag set; the API client timeout bounds it.
func (c *Controller) Activate(ctx context.Context) {
	c.activate.Do(func() {
		c.mu.Lock()
		c.state = startLoad(c.state)
		c.mu.Unlock()

		loadCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(c.settled)
			c.loadErr = c.load(loadCtx)
		}()
	})
}

// Wait activates the view if needed and blocks until the initial load settles.
func (c *Controller) Wait(ctx context.Context) error {
	c.Activate(ctx)

	select {
	case <-c.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadUsers runs the initial load if it has not started yet and returns its
// outcome. The list is fetched once per view: later calls, like Activate,
// never fetch again, so local edits are never overwritten.
// On failure the list stays empty. Either way a toast is sent and the
// loading flag is cleared.
func (c *Controller) LoadUsers(ctx context.Context) error {
	if err := c.Wait(ctx); err != nil {
		return err
	}
	return c.loadErr
}

func (c *Controller) load(ctx context.Context) error {
	users, err := c.deps.API.ListUsers(ctx)

	c.mu.Lock()
	if err != nil {
		c.state = loadFailed(c.state)
	} else {
		c.state = loadSucceeded(c.state, users)
	}
	count := len(c.state.Users)
	c.mu.Unlock()

	c.observe(OperationLoad, err)

	if err != nil {
		c.logger.WarnContext(ctx, "failed to load users", slog.String("error", err.Error()))
		c.deps.Notifier.Error(ctx, c.id, msgLoadErrorTitle, msgLoadError)
		return fmt.Errorf("%w: %w", errs.ErrFetchFailed, err)
	}

	c.logger.DebugContext(ctx, "users loaded", slog.Int("count", count))
	c.deps.Notifier.Success(ctx, c.id, msgLoadTitle, msgLoadSuccess)
	return nil
}

// DeleteUser removes id remotely and, only once that succeeds, from the list.
// An id already gone from the list is still sent to the API; filtering it is a no-op.
func (c *Controller) DeleteUser(ctx context.Context, id int) error {
	c.mu.Lock()
	target, found := c.state.Find(id)
	c.state = addPending(c.state, id)
	c.mu.Unlock()

	err := c.deps.API.DeleteUser(ctx, id)

	c.mu.Lock()
	c.state = donePending(c.state, id)
	if err == nil {
		c.state = removeUser(c.state, id)
	}
	c.mu.Unlock()

	c.observe(OperationDelete, err)

	if err != nil {
		c.logger.WarnContext(ctx, "failed to delete user",
			slog.Int("user_id", id),
			slog.String("error", err.Error()),
		)
		c.deps.Notifier.Error(ctx, c.id, msgDeleteErrorTitle, msgDeleteError)
		return fmt.Errorf("%w: %w", errs.ErrDeleteFailed, err)
	}

	name := "#" + strconv.Itoa(id)
	if found {
		name = target.FullName()
	}
	c.logger.InfoContext(ctx, "user deleted", slog.Int("user_id", id))
	c.deps.Notifier.Success(ctx, c.id, msgDeleteTitle, deletedDescription(name))
	return nil
}

// EditUser merges the name fields into the entry with id. Nothing is sent to
// the API: edits live only as long as the view.
//
// Invalid fields return a *ValidationError, keep the edit dialog open and send
// no toast. An id no longer in the list returns ErrUserNotFound.
func (c *Controller) EditUser(ctx context.Context, id int, fields user.NameFields) error {
	fields = user.NewNameFields(fields.FirstName, fields.LastName)

	if problems := fields.Validate(); len(problems) > 0 {
		c.mu.Lock()
		if c.state.Modal.Targets(ModalEdit, id) {
			c.state = rejectForm(c.state, fields, problems)
		}
		c.mu.Unlock()

		err := &ValidationError{Fields: problems}
		c.observe(OperationEdit, err)
		return err
	}

	c.mu.Lock()
	next, ok := renameUser(c.state, id, fields)
	if c.state.Modal.Targets(ModalEdit, id) {
		next = closeModal(next)
	}
	c.state = next
	updated, _ := c.state.Find(id)
	c.mu.Unlock()

	if !ok {
		c.observe(OperationEdit, ErrUserNotFound)
		c.deps.Notifier.Error(ctx, c.id, msgEditErrorTitle, msgEditNotFound)
		return fmt.Errorf("edit user %d: %w", id, ErrUserNotFound)
	}

	c.observe(OperationEdit, nil)
	c.logger.InfoContext(ctx, "user edited locally", slog.Int("user_id", id))
	c.deps.Notifier.Success(ctx, c.id, msgEditTitle, updatedDescription(updated.FullName()))
	return nil
}

// Select puts id in the single selection slot. The last call wins.
func (c *Controller) Select(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.Find(id); !ok {
		return fmt.Errorf("select user %d: %w", id, ErrUserNotFound)
	}
	c.state = selectUser(c.state, id)
	return nil
}

// Dispatch runs a row menu action on the selected user. Edit opens the edit
// dialog pre-filled from the row; Delete opens the confirmation gate.
// Opening a dialog replaces any other open dialog.
func (c *Controller) Dispatch(kind ActionKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.HasSelection {
		return ErrNoSelection
	}

	target, ok := c.state.Find(c.state.Selected)
	if !ok {
		c.state = closeModal(c.state)
		return fmt.Errorf("dispatch %s: %w", kind, ErrUserNotFound)
	}

	switch kind {
	case ActionEdit:
		c.state = openModal(c.state, Modal{
			Kind:   ModalEdit,
			UserID: target.ID,
			Form:   user.FieldsOf(target),
		})
	case ActionDelete:
		c.state = openModal(c.state, Modal{
			Kind:   ModalConfirmDelete,
			UserID: target.ID,
		})
	default:
		return fmt.Errorf("%w: unknown action %s", errs.ErrInvalidInput, kind)
	}

	return nil
}

// ConfirmDelete passes the confirmation gate for id. It fails with
// ErrNoPendingAction unless the open confirmation targets exactly id.
func (c *Controller) ConfirmDelete(ctx context.Context, id int) error {
	c.mu.Lock()
	if !c.state.Modal.Targets(ModalConfirmDelete, id) {
		c.mu.Unlock()
		return fmt.Errorf("confirm delete %d: %w", id, ErrNoPendingAction)
	}
	c.state = closeModal(c.state)
	c.mu.Unlock()

	return c.DeleteUser(ctx, id)
}

// SubmitEdit submits the edit dialog for id. It fails with ErrNoPendingAction
// unless the open edit dialog targets exactly id.
func (c *Controller) SubmitEdit(ctx context.Context, id int, fields user.NameFields) error {
	c.mu.Lock()
	open := c.state.Modal.Targets(ModalEdit, id)
	c.mu.Unlock()

	if !open {
		return fmt.Errorf("submit edit %d: %w", id, ErrNoPendingAction)
	}
	return c.EditUser(ctx, id, fields)
}

// Cancel closes any dialog and clears the selection.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = closeModal(c.state)
}

// Snapshot returns a copy of the state safe to read without the lock.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) observe(operation string, err error) {
	if c.deps.Observer != nil {
		c.deps.Observer.ObserveOperation(operation, err)
	}
}
