package domain

import (
	"fmt"
	"strings"
)

// Category is a value object representing a marketplace partition tag
type Category struct {
	value string
}

// Well-known marketplace categories. The set is configurable; these are the
// partitions the marketplace exposes today.
var (
	CategoryAgentStrategy = Category{value: "agent-strategy"}
	CategoryExtension     = Category{value: "extension"}
	CategoryModel         = Category{value: "model"}
	CategoryTool          = Category{value: "tool"}
	CategoryBundle        = Category{value: "bundle"}
)

// DefaultCategories returns the full set of marketplace categories mirrored
// when no explicit selection is configured
func DefaultCategories() []Category {
	return []Category{
		CategoryAgentStrategy,
		CategoryExtension,
		CategoryModel,
		CategoryTool,
		CategoryBundle,
	}
}

// NewCategory creates a Category with validation. Category names become
// directory names, so path separators are rejected.
func NewCategory(value string) (Category, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Category{}, fmt.Errorf("category cannot be empty")
	}
	if strings.ContainsAny(trimmed, "/\\") {
		return Category{}, fmt.Errorf("category cannot contain path separators: %s", value)
	}
	return Category{value: trimmed}, nil
}

// ParseCategories creates a Category slice from raw names, failing on the
// first invalid entry
func ParseCategories(values []string) ([]Category, error) {
	categories := make([]Category, 0, len(values))
	for _, value := range values {
		category, err := NewCategory(value)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

// Value returns the string value of the Category
func (c Category) Value() string {
	return c.value
}

// String implements the Stringer interface
func (c Category) String() string {
	return c.value
}
