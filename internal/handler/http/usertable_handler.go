package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/useradmin/internal/application/usertable"
	"github.com/lllypuk/useradmin/internal/domain/errs"
	"github.com/lllypuk/useradmin/internal/domain/user"
	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
	"github.com/lllypuk/useradmin/internal/middleware"
)

// Сообщения, которые видит оператор.
const (
	pageTitle       = "Управление пользователями"
	msgViewNotFound = "Страница устарела. Обновите её, чтобы продолжить."
	msgBadRequest   = "Некорректный запрос."
	msgLoadAborted  = "Загрузка прервана. Обновите страницу."
)

// ViewRegistry creates and finds the controllers of open pages.
// Declared on the consumer side.
type ViewRegistry interface {
	Create() *usertable.Controller
	Get(viewID string) (*usertable.Controller, error)
}

// UserTableHandlerConfig configures UserTableHandler.
type UserTableHandlerConfig struct {
	Logger *slog.Logger

	// PageSize is the number of rows per table page.
	PageSize int
}

// UserTableHandler serves the admin page and the htmx partials of its table.
type UserTableHandler struct {
	views    ViewRegistry
	logger   *slog.Logger
	pageSize int
}

// NewUserTableHandler creates a handler over views.
func NewUserTableHandler(views ViewRegistry, cfg UserTableHandlerConfig) *UserTableHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = usertable.DefaultPageSize
	}
	return &UserTableHandler{
		views:    views,
		logger:   cfg.Logger,
		pageSize: cfg.PageSize,
	}
}

// RegisterRoutes implements httpserver.RouteRegistrar.
func (h *UserTableHandler) RegisterRoutes(r *httpserver.Router) {
	pages := r.Pages()
	pages.GET("/", h.Index)
	pages.GET("/views/:view/table", h.Table)

	mutations := r.Mutations()
	mutations.POST("/views/:view/users/:id/select", h.Select)
	mutations.POST("/views/:view/actions", h.Action)
	mutations.POST("/views/:view/users/:id/delete", h.ConfirmDelete)
	mutations.POST("/views/:view/users/:id/edit", h.SubmitEdit)
	mutations.POST("/views/:view/cancel", h.Cancel)

	r.API().GET("/views/:view", h.Snapshot)
}

// Index opens a new view and starts its first load. Every reload is a new view.
func (h *UserTableHandler) Index(c echo.Context) error {
	ctrl := h.views.Create()
	ctrl.Activate(c.Request().Context())

	h.logger.DebugContext(c.Request().Context(), "view opened",
		slog.String("view_id", ctrl.ID()),
		slog.String("request_id", middleware.GetRequestID(c)),
	)

	return c.Render(http.StatusOK, templatePage, PageData{
		Title:  pageTitle,
		ViewID: ctrl.ID(),
	})
}

// Table renders the table region once the initial load has settled.
func (h *UserTableHandler) Table(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return h.renderError(c, err)
	}

	if waitErr := ctrl.Wait(c.Request().Context()); waitErr != nil {
		h.logger.DebugContext(c.Request().Context(), "table request ended before load",
			slog.String("view_id", ctrl.ID()),
			slog.String("error", waitErr.Error()),
		)
		return c.HTML(http.StatusServiceUnavailable, msgLoadAborted)
	}

	return h.renderTable(c, http.StatusOK, ctrl)
}

// Select puts a row in the selection slot and opens its menu.
func (h *UserTableHandler) Select(c echo.Context) error {
	ctrl, id, err := h.controllerAndUser(c)
	if err != nil {
		return h.renderError(c, err)
	}
	return h.respond(c, ctrl, ctrl.Select(id))
}

// Action runs a row menu item on the selected row.
func (h *UserTableHandler) Action(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return h.renderError(c, err)
	}

	kind, err := usertable.ParseAction(c.FormValue("action"))
	if err != nil {
		return h.renderError(c, err)
	}

	return h.respond(c, ctrl, ctrl.Dispatch(kind))
}

// ConfirmDelete passes the delete confirmation for a row.
func (h *UserTableHandler) ConfirmDelete(c echo.Context) error {
	ctrl, id, err := h.controllerAndUser(c)
	if err != nil {
		return h.renderError(c, err)
	}
	return h.respond(c, ctrl, ctrl.ConfirmDelete(c.Request().Context(), id))
}

// SubmitEdit applies the edit form of a row.
func (h *UserTableHandler) SubmitEdit(c echo.Context) error {
	ctrl, id, err := h.controllerAndUser(c)
	if err != nil {
		return h.renderError(c, err)
	}

	fields := user.NewNameFields(c.FormValue(user.FieldFirstName), c.FormValue(user.FieldLastName))
	return h.respond(c, ctrl, ctrl.SubmitEdit(c.Request().Context(), id, fields))
}

// Cancel closes the dialog and clears the selection.
func (h *UserTableHandler) Cancel(c echo.Context) error {
	ctrl, err := h.controller(c)
	if err != nil {
		return h.renderError(c, err)
	}
	ctrl.Cancel()
	return h.renderTable(c, http.StatusOK, ctrl)
}

// ViewSnapshot is the JSON form of a view.
type ViewSnapshot struct {
	ViewID    string      `json:"view_id"`
	Phase     string      `json:"phase"`
	Users     []user.User `json:"users"`
	Selected  *int        `json:"selected,omitempty"`
	Modal     string      `json:"modal,omitempty"`
	ModalUser int         `json:"modal_user,omitempty"`
	Pending   []int       `json:"pending,omitempty"`
}

// Snapshot returns the stored state of a view as JSON, in API order.
func (h *UserTableHandler) Snapshot(c echo.Context) error {
	ctrl, err := h.views.Get(c.Param(middleware.ViewParam))
	if err != nil {
		return httpserver.RespondError(c, err)
	}

	state := ctrl.Snapshot()
	resp := ViewSnapshot{
		ViewID: ctrl.ID(),
		Phase:  state.Phase.String(),
		Users:  state.Users,
	}
	if resp.Users == nil {
		resp.Users = []user.User{}
	}
	if state.HasSelection {
		selected := state.Selected
		resp.Selected = &selected
	}
	switch state.Modal.Kind {
	case usertable.ModalEdit:
		resp.Modal, resp.ModalUser = "edit", state.Modal.UserID
	case usertable.ModalConfirmDelete:
		resp.Modal, resp.ModalUser = "confirm_delete", state.Modal.UserID
	}
	for _, u := range state.Users {
		if state.IsPending(u.ID) {
			resp.Pending = append(resp.Pending, u.ID)
		}
	}

	return httpserver.RespondOK(c, resp)
}

func (h *UserTableHandler) controller(c echo.Context) (*usertable.Controller, error) {
	return h.views.Get(c.Param(middleware.ViewParam))
}

func (h *UserTableHandler) controllerAndUser(c echo.Context) (*usertable.Controller, int, error) {
	ctrl, err := h.controller(c)
	if err != nil {
		return nil, 0, err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return nil, 0, errs.ErrInvalidInput
	}
	return ctrl, id, nil
}

func (h *UserTableHandler) query(c echo.Context) usertable.Query {
	return usertable.ParseQuery(
		c.FormValue("sort"),
		c.FormValue("order"),
		c.FormValue("page"),
		c.FormValue("q"),
		h.pageSize,
	)
}

// respond re-renders the table after an operation. Failures already reported
// by a toast still render the current state; stale clicks (no selection, no
// open dialog) are bad requests.
func (h *UserTableHandler) respond(c echo.Context, ctrl *usertable.Controller, opErr error) error {
	switch {
	case opErr == nil:
		return h.renderTable(c, http.StatusOK, ctrl)
	case errors.Is(opErr, errs.ErrValidationFailed):
		return h.renderTable(c, http.StatusUnprocessableEntity, ctrl)
	case errors.Is(opErr, errs.ErrInvalidInput), errors.Is(opErr, errs.ErrInvalidState):
		return h.renderError(c, opErr)
	default:
		h.logger.DebugContext(c.Request().Context(), "operation did not apply",
			slog.String("view_id", ctrl.ID()),
			slog.String("error", opErr.Error()),
		)
		return h.renderTable(c, http.StatusOK, ctrl)
	}
}

func (h *UserTableHandler) renderTable(c echo.Context, status int, ctrl *usertable.Controller) error {
	return c.Render(status, templateTable, newTableData(ctrl.ID(), ctrl.Snapshot(), h.query(c)))
}

// ErrorData renders users/error.html.
type ErrorData struct {
	Message string
	Reload  bool
}

func (h *UserTableHandler) renderError(c echo.Context, err error) error {
	if errors.Is(err, usertable.ErrViewNotFound) {
		return c.Render(http.StatusNotFound, templateError, ErrorData{Message: msgViewNotFound, Reload: true})
	}

	status := httpserver.StatusOf(err)
	if errors.Is(err, errs.ErrInvalidState) {
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request().Context(), "request failed", slog.String("error", err.Error()))
	}
	return c.Render(status, templateError, ErrorData{Message: msgBadRequest})
}
