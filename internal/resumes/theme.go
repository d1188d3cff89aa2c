package resumes

import (
	"context"
	"fmt"
	"strings"

	"resume-builder/internal/shared/storage/kv"
)

// Theme is the persisted display theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(raw string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("%w: theme %q", ErrInvalidInput, raw)
}

// ThemeStore reads and writes KeyTheme.
type ThemeStore struct {
	kv kv.Store
}

// NewThemeStore wraps a namespaced key-value backend.
func NewThemeStore(backend kv.Store) *ThemeStore {
	return &ThemeStore{kv: backend}
}

// Get returns the stored theme, defaulting to light.
func (t *ThemeStore) Get(ctx context.Context) (Theme, error) {
	raw, ok, err := t.kv.Get(ctx, KeyTheme)
	if err != nil {
		return ThemeLight, fmt.Errorf("load theme: %w", err)
	}
	if !ok {
		return ThemeLight, nil
	}
	theme, err := ParseTheme(raw)
	if err != nil {
		return ThemeLight, nil
	}
	return theme, nil
}

// Set persists theme.
func (t *ThemeStore) Set(ctx context.Context, theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: theme %q", ErrInvalidInput, theme)
	}
	if err := t.kv.Set(ctx, KeyTheme, string(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// Toggle flips between light and dark and returns the new theme.
func (t *ThemeStore) Toggle(ctx context.Context) (Theme, error) {
	current, err := t.Get(ctx)
	if err != nil {
		return current, err
	}
	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}
	return next, t.Set(ctx, next)
}
