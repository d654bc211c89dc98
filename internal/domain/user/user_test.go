package user_test

import (
	"testing"

	"github.com/lllypuk/useradmin/internal/domain/user"
	"github.com/stretchr/testify/assert"
)

func TestUser_WithName(t *testing.T) {
	original := user.User{ID: 2, Email: "bob@x.com", FirstName: "Bob", LastName: "Marley"}

	updated := original.WithName(user.NameFields{FirstName: "Robert", LastName: "Lee"})

	assert.Equal(t, 2, updated.ID)
	assert.Equal(t, "bob@x.com", updated.Email)
	assert.Equal(t, "Robert", updated.FirstName)
	assert.Equal(t, "Lee", updated.LastName)
	assert.Equal(t, "Bob", original.FirstName, "original must stay untouched")
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "Ann Lee", user.User{FirstName: "Ann", LastName: "Lee"}.FullName())
	assert.Equal(t, "Ann", user.User{FirstName: "Ann"}.FullName())
	assert.Empty(t, user.User{}.FullName())
}

func TestNameFields_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fields  user.NameFields
		invalid []string
	}{
		{"both present", user.NewNameFields("Ann", "Lee"), nil},
		{"empty first name", user.NewNameFields("", "Lee"), []string{user.FieldFirstName}},
		{"blank last name", user.NewNameFields("Ann", "   "), []string{user.FieldLastName}},
		{"both empty", user.NameFields{}, []string{user.FieldFirstName, user.FieldLastName}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := tt.fields.Validate()
			assert.Len(t, problems, len(tt.invalid))
			for _, field := range tt.invalid {
				assert.Contains(t, problems, field)
			}
		})
	}
}

func TestNewNameFields_Trims(t *testing.T) {
	fields := user.NewNameFields("  Ann ", "\tLee\n")
	assert.Equal(t, "Ann", fields.FirstName)
	assert.Equal(t, "Lee", fields.LastName)
}
