package httphandler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, "пользователей"},
		{1, "пользователь"},
		{2, "пользователя"},
		{4, "пользователя"},
		{5, "пользователей"},
		{11, "пользователей"},
		{14, "пользователей"},
		{21, "пользователь"},
		{22, "пользователя"},
		{111, "пользователей"},
		{-1, "пользователь"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pluralize(tt.count, "пользователь", "пользователя", "пользователей"), "count %d", tt.count)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate(10, "short"))
	assert.Equal(t, "abcd…", truncate(5, "abcdefgh"))
	assert.Equal(t, "Ёлки…", truncate(5, "Ёлки-палки"))
	assert.Equal(t, "a", truncate(1, "abc"))
	assert.Empty(t, truncate(0, "abc"))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "GB", initials("George Bluth"))
	assert.Equal(t, "АП", initials("анна мария петрова"))
	assert.Equal(t, "E", initials("Emma"))
	assert.Empty(t, initials("   "))
}

func TestCollectionHelpers(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, seq(1, 3))
	assert.Nil(t, seq(3, 1))

	d := dict("a", 1, "b", "two", 3, "skipped", "odd")
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, d)

	assert.Equal(t, 3, add(1, 2))
	assert.Equal(t, -1, sub(1, 2))
}
