package httphandler

import (
	"html/template"
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "…"

// TemplateFuncs returns the custom template functions for HTML templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// String helpers
		"truncate":  truncate,
		"initials":  initials,
		"pluralize": pluralize,
		"lower":     strings.ToLower,

		// Collection helpers
		"seq":  seq,
		"dict": dict,

		// Math helpers
		"add": add,
		"sub": sub,
	}
}

// truncate shortens s to n runes, ending with an ellipsis when cut.
// Arguments are (n int, s string) to work with template pipes: {{.Email | truncate 24}}
func truncate(n int, s string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 1 {
		return string([]rune(s)[:max(n, 0)])
	}
	return string([]rune(s)[:n-1]) + ellipsis
}

// pluralize picks the Russian form for count: one, few (2-4) or many.
// {{pluralize .Total "пользователь" "пользователя" "пользователей"}}
func pluralize(count int, one, few, many string) string {
	n := count % 100
	if n < 0 {
		n = -n
	}
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

// initials returns the upper-cased first letters of the first and last word.
func initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}

	firstRune := func(s string) string {
		r, _ := utf8.DecodeRuneInString(s)
		return string(unicode.ToUpper(r))
	}

	if len(parts) == 1 {
		return firstRune(parts[0])
	}
	return firstRune(parts[0]) + firstRune(parts[len(parts)-1])
}

func seq(start, end int) []int {
	if end < start {
		return nil
	}
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}

func dict(pairs ...any) map[string]any {
	result := make(map[string]any)
	for i := 0; i < len(pairs)-1; i += 2 {
		key, ok := pairs[i].(string)
		if ok {
			result[key] = pairs[i+1]
		}
	}
	return result
}

func add(a, b int) int {
	return a + b
}

func sub(a, b int) int {
	return a - b
}
