package core

import (
	"errors"
	"testing"
)

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		limits  map[string]Money
		wantErr error
	}{
		{"distinct names", map[string]Money{"Food": {Cents: 100}, "Leisure": {Cents: 100}}, nil},
		{"blank name", map[string]Money{"  ": {Cents: 100}}, ErrEmptyCategory},
		{"negative limit", map[string]Money{"Food": {Cents: -1}}, ErrInvalidAmount},
		{"same name in another case", map[string]Money{"Food": {Cents: 100}, "FOOD": {Cents: 200}}, ErrCategoryExists},
		{"same name with spaces", map[string]Money{"Food": {Cents: 100}, "food ": {Cents: 100}}, ErrCategoryExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Thresholds{CategoryLimits: tt.limits}.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCategoryAlertKey(t *testing.T) {
	for _, name := range []string{"Food", "food", " FOOD "} {
		if got := CategoryAlertKey(name, "2024-03"); got != "category:food:2024-03" {
			t.Errorf("CategoryAlertKey(%q) = %q", name, got)
		}
	}
}
