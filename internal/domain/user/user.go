// Package user holds the user entity shown in the admin table.
package user

import "strings"

// Editable field names, shared by validation errors and form inputs.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
)

// User is a row of the remote user collection. The shape is fixed by the API.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName returns "first last" trimmed.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// WithName returns a copy of u with the name fields replaced. ID and email never change.
func (u User) WithName(fields NameFields) User {
	u.FirstName = fields.FirstName
	u.LastName = fields.LastName
	return u
}

// NameFields are the two editable fields of a user.
type NameFields struct {
	FirstName string
	LastName  string
}

// NewNameFields trims both values.
func NewNameFields(firstName, lastName string) NameFields {
	return NameFields{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	}
}

// FieldsOf returns the editable fields of u, used to pre-fill the edit form.
func FieldsOf(u User) NameFields {
	return NameFields{FirstName: u.FirstName, LastName: u.LastName}
}

// Validate reports a message per invalid field. An empty map means valid.
func (f NameFields) Validate() map[string]string {
	problems := make(map[string]string)
	if strings.TrimSpace(f.FirstName) == "" {
		problems[FieldFirstName] = "Введите имя"
	}
	if strings.TrimSpace(f.LastName) == "" {
		problems[FieldLastName] = "Введите фамилию"
	}
	return problems
}
