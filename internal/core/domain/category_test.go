package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCategory_ValidatesInput tests Category creation with various inputs
func TestNewCategory_ValidatesInput(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
		description string
	}{
		{
			name:        "KnownCategory_ShouldSucceed",
			input:       "tool",
			expected:    "tool",
			expectError: false,
			description: "Known marketplace category is accepted",
		},
		{
			name:        "HyphenatedCategory_ShouldSucceed",
			input:       "agent-strategy",
			expected:    "agent-strategy",
			expectError: false,
			description: "Hyphenated category is accepted",
		},
		{
			name:        "SurroundingWhitespace_ShouldTrim",
			input:       "  model  ",
			expected:    "model",
			expectError: false,
			description: "Whitespace around the name is trimmed",
		},
		{
			name:        "EmptyCategory_ShouldFail",
			input:       "",
			expectError: true,
			description: "Empty category is rejected",
		},
		{
			name:        "WhitespaceOnly_ShouldFail",
			input:       "   ",
			expectError: true,
			description: "Whitespace-only category is rejected",
		},
		{
			name:        "ForwardSlash_ShouldFail",
			input:       "tool/extra",
			expectError: true,
			description: "Category with a path separator is rejected",
		},
		{
			name:        "Backslash_ShouldFail",
			input:       `tool\extra`,
			expectError: true,
			description: "Category with a backslash is rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, err := NewCategory(tt.input)

			if tt.expectError {
				assert.Error(t, err, tt.description)
				assert.Empty(t, category.Value(), "Invalid category should have empty value")
			} else {
				assert.NoError(t, err, tt.description)
				assert.Equal(t, tt.expected, category.Value(), "Category should preserve trimmed input")
				assert.Equal(t, tt.expected, category.String(), "String() should match Value()")
			}
		})
	}
}

// TestParseCategories_FailsFast tests that one invalid entry rejects the slice
func TestParseCategories_FailsFast(t *testing.T) {
	categories, err := ParseCategories([]string{"tool", "model"})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "tool", categories[0].Value())
	assert.Equal(t, "model", categories[1].Value())

	_, err = ParseCategories([]string{"tool", ""})
	assert.Error(t, err, "Invalid entry should fail the whole parse")
}

// TestDefaultCategories_CoversMarketplace tests the built-in category set
func TestDefaultCategories_CoversMarketplace(t *testing.T) {
	categories := DefaultCategories()

	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, category.Value())
	}

	assert.Equal(t, []string{"agent-strategy", "extension", "model", "tool", "bundle"}, names,
		"Default set should cover every marketplace partition")
}
