package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"familybudget/internal/cache"
	"familybudget/internal/core"
	"familybudget/internal/gateway"
	applog "familybudget/internal/log"
)

// SettingsService manages per-family alert thresholds and categories.
// Thresholds are read through an LRU cache with TTL.
type SettingsService struct {
	settings   gateway.SettingsStore
	categories gateway.CategoryStore
	publisher  gateway.ChangePublisher
	cache      *cache.LRUCache[core.Thresholds]
	logger     *applog.Logger
	now        func() time.Time
}

// NewSettingsService creates a settings service. publisher may be nil.
func NewSettingsService(settings gateway.SettingsStore, categories gateway.CategoryStore, publisher gateway.ChangePublisher, cacheSize int, cacheTTL time.Duration) *SettingsService {
	return &SettingsService{
		settings:   settings,
		categories: categories,
		publisher:  publisher,
		cache:      cache.NewLRUCache[core.Thresholds](cacheSize, cacheTTL),
		logger:     applog.Default(applog.ComponentSettings),
		now:        time.Now,
	}
}

// Cache exposes the thresholds cache so it can be registered with a
// cache.Manager.
func (s *SettingsService) Cache() *cache.LRUCache[core.Thresholds] {
	return s.cache
}

// Thresholds returns the family's alert thresholds.
func (s *SettingsService) Thresholds(ctx context.Context, familyID string) (core.Thresholds, error) {
	if t, ok := s.cache.Get(familyID); ok {
		return t, nil
	}
	t, err := s.settings.GetThresholds(ctx, familyID)
	if err != nil {
		return core.Thresholds{}, fmt.Errorf("get thresholds: %w", err)
	}
	s.cache.Set(familyID, t)
	return t, nil
}

// Invalidate drops the cached thresholds of a family, e.g. after another
// session changed them.
func (s *SettingsService) Invalidate(familyID string) {
	s.cache.Delete(familyID)
}

// SaveThresholds validates and stores the family's thresholds.
func (s *SettingsService) SaveThresholds(ctx context.Context, familyID string, t core.Thresholds) error {
	if strings.TrimSpace(familyID) == "" {
		return core.ErrEmptyFamily
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.settings.SaveThresholds(ctx, familyID, t); err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	s.cache.Delete(familyID)

	s.logger.InfoContext(ctx, "Thresholds saved",
		applog.FieldFamilyID, familyID,
		"monthly_limit_cents", t.MonthlyLimit.Cents,
		"daily_limit_cents", t.DailyLimit.Cents,
		"single_limit_cents", t.SingleExpenseLimit.Cents,
		"category_limits", len(t.CategoryLimits))
	s.publish(ctx, gateway.NewChangeEvent(familyID, gateway.CollectionSettings, familyID, gateway.OpUpdate))
	return nil
}

// Categories returns the default categories followed by the family's
// custom ones, sorted by name.
func (s *SettingsService) Categories(ctx context.Context, familyID string) ([]string, error) {
	custom, err := s.categories.ListCategories(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := append([]string(nil), core.DefaultCategories...)
	extra := make([]string, 0, len(custom))
	for _, c := range custom {
		extra = append(extra, c.Name)
	}
	sort.Slice(extra, func(i, j int) bool { return strings.ToLower(extra[i]) < strings.ToLower(extra[j]) })
	return append(names, extra...), nil
}

// CustomCategories returns only the family-defined categories.
func (s *SettingsService) CustomCategories(ctx context.Context, familyID string) ([]core.Category, error) {
	custom, err := s.categories.ListCategories(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return custom, nil
}

// AddCategory creates a custom category. Names clashing with a default or
// existing category, ignoring case, are rejected.
func (s *SettingsService) AddCategory(ctx context.Context, familyID, name, actorID string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyCategory
	}
	if strings.TrimSpace(familyID) == "" {
		return core.Category{}, core.ErrEmptyFamily
	}
	existing, err := s.Categories(ctx, familyID)
	if err != nil {
		return core.Category{}, err
	}
	if core.ContainsCategory(existing, name) {
		return core.Category{}, fmt.Errorf("%w: %q", core.ErrCategoryExists, name)
	}

	c, err := s.categories.CreateCategory(ctx, core.Category{
		FamilyID:  familyID,
		Name:      name,
		CreatedBy: actorID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.publish(ctx, gateway.NewChangeEvent(familyID, gateway.CollectionCategories, c.ID, gateway.OpCreate))
	return c, nil
}

// DeleteCategory removes a custom category.
func (s *SettingsService) DeleteCategory(ctx context.Context, familyID, id string) error {
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.publish(ctx, gateway.NewChangeEvent(familyID, gateway.CollectionCategories, id, gateway.OpDelete))
	return nil
}

func (s *SettingsService) publish(ctx context.Context, ev gateway.ChangeEvent) {
	publishChange(ctx, s.publisher, s.logger, ev)
}
