package httphandler

import (
	"net/url"
	"strconv"

	"github.com/lllypuk/useradmin/internal/application/usertable"
	"github.com/lllypuk/useradmin/internal/domain/user"
)

// Template names.
const (
	templatePage  = "users/page.html"
	templateTable = "users/table.html"
	templateError = "users/error.html"
)

// PageData is passed to the full page layout.
type PageData struct {
	Title  string
	ViewID string
}

// Column is a sortable table header.
type Column struct {
	Label  string
	Href   string
	Active bool
	Desc   bool
}

// ModalData is the open dialog as the templates see it.
type ModalData struct {
	Edit    bool
	Confirm bool
	User    user.User
	Form    user.NameFields
	Errors  map[string]string
}

// TableData renders users/table.html: the table region with its dialog.
type TableData struct {
	ViewID  string
	Loading bool
	Failed  bool
	Page    usertable.Page
	Columns []Column
	Modal   *ModalData

	// Query values echoed back as hidden inputs so mutations keep the presentation.
	Sort  string
	Order string
}

var tableColumns = []struct {
	column usertable.SortColumn
	label  string
}{
	{usertable.SortByID, "ID"},
	{usertable.SortByEmail, "Email"},
	{usertable.SortByFirstName, "Имя"},
	{usertable.SortByLastName, "Фамилия"},
}

func newTableData(viewID string, state usertable.State, q usertable.Query) TableData {
	page := usertable.View(state, q)

	data := TableData{
		ViewID:  viewID,
		Loading: state.Loading(),
		Failed:  state.Phase == usertable.PhaseLoadFailed,
		Page:    page,
		Sort:    string(page.Query.Sort),
		Order:   string(page.Query.Order),
	}

	for _, col := range tableColumns {
		next := page.Query.Toggle(col.column)
		data.Columns = append(data.Columns, Column{
			Label:  col.label,
			Href:   tableURL(viewID, next),
			Active: page.Query.Sort == col.column,
			Desc:   page.Query.Sort == col.column && page.Query.Order == usertable.OrderDesc,
		})
	}

	if state.Modal.Kind != usertable.ModalNone {
		target, ok := state.Find(state.Modal.UserID)
		if ok {
			data.Modal = &ModalData{
				Edit:    state.Modal.Kind == usertable.ModalEdit,
				Confirm: state.Modal.Kind == usertable.ModalConfirmDelete,
				User:    target,
				Form:    state.Modal.Form,
				Errors:  state.Modal.Errors,
			}
		}
	}

	return data
}

// PageURL links to page n keeping the current sort. The filter travels with hx-include.
func (d TableData) PageURL(n int) string {
	q := d.Page.Query
	q.Page = n
	return tableURL(d.ViewID, q)
}

// ViewPath returns the base path of the view routes.
func (d TableData) ViewPath() string {
	return viewPath(d.ViewID)
}

func viewPath(viewID string) string {
	return "/views/" + url.PathEscape(viewID)
}

func tableURL(viewID string, q usertable.Query) string {
	values := url.Values{}
	if q.Sort != usertable.SortNone {
		values.Set("sort", string(q.Sort))
		values.Set("order", string(q.Order))
	}
	if q.Page > 1 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	u := viewPath(viewID) + "/table"
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	return u
}
