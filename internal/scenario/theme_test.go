package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemeOf(t *testing.T) {
	tests := []struct {
		line     string
		theme    string
		hasTheme bool
	}{
		{"Login: must succeed", "login", true},
		{"No separator here", "", false},
		{"  Validation : email required", "validation", true},
		{"Audit -> entry written", "audit", true},
		{"Audit => entry written", "audit", true},
		{"Audit → entry written", "audit", true},
		{"Audit – entry written", "audit", true},
		{"Audit — entry written", "audit", true},
		{"Audit - entry written", "audit", true},
		{"- Login: ok", "login", true},
		{"- Login: bullet prefix is stripped", "login", true},
		{"-- Login - dash after bullet", "login", true},
		{"* • Session: nested markers", "session", true},
		{": leading separator", "", false},
		{"UPPER Case: lowered", "upper case", true},
		{"Time: 10:30 is shown", "time", true},
	}

	for _, tt := range tests {
		theme, ok := ThemeOf(tt.line)
		assert.Equal(t, tt.hasTheme, ok, "line %q", tt.line)
		assert.Equal(t, tt.theme, theme, "line %q", tt.line)
	}
}

func TestGroupByTheme(t *testing.T) {
	lines := []string{
		"Audit: login recorded",
		"Validation: email required",
		"free text criterion",
		"Validation: password required",
		"Audit: logout recorded",
		"Validation: lockout after 3 attempts",
	}

	groups := GroupByTheme(lines)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"audit", "validation", MiscTheme}, groups.Labels())
	assert.Equal(t, []string{"Audit: login recorded", "Audit: logout recorded"}, groups[0].Lines)
	assert.Equal(t, []string{"free text criterion"}, groups[2].Lines)

	sorted := groups.SortedBySize()
	assert.Equal(t, []string{"validation", "audit", MiscTheme}, sorted.Labels())
	// 原分组不受排序影响
	assert.Equal(t, "audit", groups[0].Label)
}

func TestGroupByTheme_StableTies(t *testing.T) {
	lines := []string{"b: 1", "a: 1", "c: 1", "a: 2", "b: 2"}

	sorted := GroupByTheme(lines).SortedBySize()
	assert.Equal(t, []string{"b", "a", "c"}, sorted.Labels())
}

func TestStripBullets(t *testing.T) {
	assert.Equal(t, "item", StripBullets("  - item"))
	assert.Equal(t, "item", StripBullets("•• item"))
	assert.Equal(t, "item - x", StripBullets("* item - x"))
}

func TestInferActor(t *testing.T) {
	text := "As an account administrator, I want to reset passwords."

	assert.Equal(t, DefaultActor, InferActor(text, false))
	assert.Equal(t, "account administrator", InferActor(text, true))
	assert.Equal(t, "customer", InferActor("as a customer I want to pay", true))
	assert.Equal(t, DefaultActor, InferActor("The system shall log in users.", true))
	assert.Equal(t, DefaultActor, InferActor("It has a timeout.", true))
}
