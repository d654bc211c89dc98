package usertable

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/lllypuk/useradmin/internal/domain/user"
)

// DefaultPageSize is the number of rows per page when none is configured.
const DefaultPageSize = 3

// SortColumn is a sortable table column.
type SortColumn string

// Sortable columns. The empty column keeps the stored order.
const (
	SortNone        SortColumn = ""
	SortByID        SortColumn = "id"
	SortByEmail     SortColumn = "email"
	SortByFirstName SortColumn = "first_name"
	SortByLastName  SortColumn = "last_name"
)

// SortOrder is the sort direction.
type SortOrder string

// Sort directions.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Query describes how a view is presented. It never changes the stored list.
type Query struct {
	Sort     SortColumn
	Order    SortOrder
	Page     int
	PageSize int
	Filter   string
}

// ParseQuery builds a Query from request parameters. Unknown values fall back
// to the defaults instead of failing.
func ParseQuery(sort, order, page, filter string, pageSize int) Query {
	q := Query{
		Order:    OrderAsc,
		Page:     1,
		PageSize: pageSize,
		Filter:   strings.TrimSpace(filter),
	}

	switch col := SortColumn(sort); col {
	case SortByID, SortByEmail, SortByFirstName, SortByLastName:
		q.Sort = col
	}

	if SortOrder(order) == OrderDesc {
		q.Order = OrderDesc
	}

	if n, err := strconv.Atoi(page); err == nil && n > 0 {
		q.Page = n
	}

	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	return q
}

// Toggle returns the query after a click on the header of col:
// a new column sorts ascending, the active column flips direction.
func (q Query) Toggle(col SortColumn) Query {
	if q.Sort == col {
		if q.Order == OrderAsc {
			q.Order = OrderDesc
		} else {
			q.Order = OrderAsc
		}
	} else {
		q.Sort, q.Order = col, OrderAsc
	}
	q.Page = 1
	return q
}

// Row is a rendered table row.
type Row struct {
	User     user.User
	Selected bool
	Pending  bool
}

// Page is the presentable slice of a view.
type Page struct {
	Rows      []Row
	Query     Query
	Page      int
	PageCount int
	Total     int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page) HasNext() bool { return p.Page < p.PageCount }

// View filters, sorts and pages the users of s. It is pure: s.Users keeps its order.
func View(s State, q Query) Page {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	rows := filterUsers(s.Users, q.Filter)
	sortUsers(rows, q.Sort, q.Order)

	total := len(rows)
	pageCount := max(1, (total+q.PageSize-1)/q.PageSize)
	page := min(max(q.Page, 1), pageCount)
	q.Page = page

	start := min((page-1)*q.PageSize, total)
	end := min(start+q.PageSize, total)

	out := make([]Row, 0, end-start)
	for _, u := range rows[start:end] {
		out = append(out, Row{
			User:     u,
			Selected: s.HasSelection && s.Selected == u.ID,
			Pending:  s.IsPending(u.ID),
		})
	}

	return Page{
		Rows:      out,
		Query:     q,
		Page:      page,
		PageCount: pageCount,
		Total:     total,
	}
}

// filterUsers returns a fresh slice of the users matching query, in stored order.
func filterUsers(users []user.User, query string) []user.User {
	if query == "" {
		return slices.Clone(users)
	}

	out := make([]user.User, 0, len(users))
	for _, u := range users {
		if matches(query, u) {
			out = append(out, u)
		}
	}
	return out
}

func matches(query string, u user.User) bool {
	for _, field := range []string{u.Email, u.FirstName, u.LastName, u.FullName()} {
		if fuzzy.RankMatchFold(query, field) >= 0 {
			return true
		}
	}
	return false
}

// sortUsers sorts in place and is stable, so equal keys keep their stored order.
func sortUsers(users []user.User, col SortColumn, order SortOrder) {
	if col == SortNone {
		return
	}

	// A Collator is not safe for concurrent use; one per call.
	coll := collate.New(language.Russian, collate.IgnoreCase)

	var compare func(a, b user.User) int
	switch col {
	case SortByID:
		compare = func(a, b user.User) int { return cmp.Compare(a.ID, b.ID) }
	case SortByEmail:
		compare = func(a, b user.User) int { return coll.CompareString(a.Email, b.Email) }
	case SortByFirstName:
		compare = func(a, b user.User) int { return coll.CompareString(a.FirstName, b.FirstName) }
	case SortByLastName:
		compare = func(a, b user.User) int { return coll.CompareString(a.LastName, b.LastName) }
	default:
		return
	}

	if order == OrderDesc {
		asc := compare
		compare = func(a, b user.User) int { return asc(b, a) }
	}

	slices.SortStableFunc(users, compare)
}
