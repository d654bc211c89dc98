package usertable

import (
	"maps"
	"slices"

	"github.com/lllypuk/useradmin/internal/domain/user"
)

// Phase is the top-level lifecycle of a view.
type Phase int

// View phases. Idle -> Loading -> Loaded | LoadFailed.
const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseLoadFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// ModalKind tells which dialog is open. At most one is open at a time.
type ModalKind int

// Dialogs.
const (
	ModalNone ModalKind = iota
	ModalEdit
	ModalConfirmDelete
)

// Modal is the open dialog and the row it targets.
type Modal struct {
	Kind   ModalKind
	UserID int

	// Form and Errors are only set for ModalEdit.
	Form   user.NameFields
	Errors map[string]string
}

// Targets reports whether the modal is of kind and targets id.
func (m Modal) Targets(kind ModalKind, id int) bool {
	return m.Kind == kind && m.UserID == id
}

// State is everything a view holds. Transitions below return a new State and
// never modify the one they were given.
type State struct {
	Phase Phase

	// Users is kept in the order the API returned it.
	Users []user.User

	Selected     int
	HasSelection bool

	Modal Modal

	// Pending counts remove requests in flight per id.
	Pending map[int]int
}

// Loading is true exactly while the initial fetch is in flight.
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}

// Find returns the user with id.
func (s State) Find(id int) (user.User, bool) {
	i := slices.IndexFunc(s.Users, func(u user.User) bool { return u.ID == id })
	if i < 0 {
		return user.User{}, false
	}
	return s.Users[i], true
}

// IsPending reports whether a remove request for id is in flight.
func (s State) IsPending(id int) bool {
	return s.Pending[id] > 0
}

// clone deep-copies the mutable parts of s.
func (s State) clone() State {
	s.Users = slices.Clone(s.Users)
	s.Pending = maps.Clone(s.Pending)
	s.Modal.Errors = maps.Clone(s.Modal.Errors)
	return s
}

func startLoad(s State) State {
	s = s.clone()
	s.Phase = PhaseLoading
	return s
}

// loadSucceeded replaces the list wholesale. Duplicate ids keep their first entry.
func loadSucceeded(s State, users []user.User) State {
	s = s.clone()
	seen := make(map[int]bool, len(users))
	list := make([]user.User, 0, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		list = append(list, u)
	}
	s.Users = list
	s.Phase = PhaseLoaded
	return s
}

func loadFailed(s State) State {
	s = s.clone()
	s.Users = []user.User{}
	s.Phase = PhaseLoadFailed
	return s
}

// removeUser drops id from the list. An absent id leaves the list as is.
// Selection and dialogs pointing at id are cleared with it.
func removeUser(s State, id int) State {
	s = s.clone()
	s.Users = slices.DeleteFunc(s.Users, func(u user.User) bool { return u.ID == id })
	if s.HasSelection && s.Selected == id {
		s.Selected, s.HasSelection = 0, false
	}
	if s.Modal.Kind != ModalNone && s.Modal.UserID == id {
		s.Modal = Modal{}
	}
	return s
}

// renameUser merges fields into the entry with id. ok is false when id is absent.
func renameUser(s State, id int, fields user.NameFields) (State, bool) {
	i := slices.IndexFunc(s.Users, func(u user.User) bool { return u.ID == id })
	if i < 0 {
		return s, false
	}
	s = s.clone()
	s.Users[i] = s.Users[i].WithName(fields)
	return s, true
}

func selectUser(s State, id int) State {
	s = s.clone()
	s.Selected, s.HasSelection = id, true
	return s
}

func openModal(s State, m Modal) State {
	s = s.clone()
	s.Modal = m
	return s
}

func rejectForm(s State, fields user.NameFields, problems map[string]string) State {
	s = s.clone()
	s.Modal.Form = fields
	s.Modal.Errors = maps.Clone(problems)
	return s
}

// closeModal closes the dialog and forgets the selection.
func closeModal(s State) State {
	s = s.clone()
	s.Modal = Modal{}
	s.Selected, s.HasSelection = 0, false
	return s
}

func addPending(s State, id int) State {
	s = s.clone()
	if s.Pending == nil {
		s.Pending = make(map[int]int)
	}
	s.Pending[id]++
	return s
}

// donePending settles one request for id; the id stays pending while others are in flight.
func donePending(s State, id int) State {
	s = s.clone()
	if s.Pending[id] <= 1 {
		delete(s.Pending, id)
	} else {
		s.Pending[id]--
	}
	return s
}
