package core

import (
	"errors"
	"strings"
	"time"
)

// DefaultCategories are available to every family.
var DefaultCategories = []string{
	"Food",
	"Transport",
	"Housing",
	"Health",
	"Education",
	"Leisure",
	"Other",
}

var ErrCategoryExists = errors.New("category already exists")

// Category is a family-defined expense category.
type Category struct {
	ID        string
	FamilyID  string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// CategoryKey is the form category names are compared in: trimmed and
// lower case.
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ContainsCategory reports whether name is in names, ignoring case and
// surrounding spaces.
func ContainsCategory(names []string, name string) bool {
	key := CategoryKey(name)
	for _, n := range names {
		if CategoryKey(n) == key {
			return true
		}
	}
	return false
}
