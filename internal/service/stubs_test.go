package service

import (
	"context"
	"sync"
	"testing"

	"earthhome/internal/cache"
	"earthhome/internal/models"
	"earthhome/internal/notifications"
	"earthhome/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// propertyRepoStub is a stub for repository.PropertyRepository.
type propertyRepoStub struct {
	createFn    func(context.Context, *models.Property) error
	updateFn    func(context.Context, *models.Property) error
	deleteFn    func(context.Context, string) error
	getByIDFn   func(context.Context, string) (*models.Property, error)
	getBySlugFn func(context.Context, string) (*models.Property, error)
	listFn      func(context.Context, models.PropertyQuery) ([]models.Property, int64, error)
	statsFn     func(context.Context, string) (*models.PropertyStats, error)
}

func (s *propertyRepoStub) Create(ctx context.Context, p *models.Property) error {
	return s.createFn(ctx, p)
}
func (s *propertyRepoStub) Update(ctx context.Context, p *models.Property) error {
	return s.updateFn(ctx, p)
}
func (s *propertyRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *propertyRepoStub) GetByID(ctx context.Context, id string) (*models.Property, error) {
	return s.getByIDFn(ctx, id)
}
func (s *propertyRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Property, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *propertyRepoStub) List(ctx context.Context, q models.PropertyQuery) ([]models.Property, int64, error) {
	return s.listFn(ctx, q)
}
func (s *propertyRepoStub) Stats(ctx context.Context, agentID string) (*models.PropertyStats, error) {
	return s.statsFn(ctx, agentID)
}

func notFound(_ context.Context, _ string) (*models.Property, error) {
	return nil, models.NewNotFoundError("Property not found")
}

func noopPropertyRepo() *propertyRepoStub {
	return &propertyRepoStub{
		createFn:    func(_ context.Context, _ *models.Property) error { return nil },
		updateFn:    func(_ context.Context, _ *models.Property) error { return nil },
		deleteFn:    func(_ context.Context, _ string) error { return nil },
		getByIDFn:   notFound,
		getBySlugFn: notFound,
		listFn: func(_ context.Context, _ models.PropertyQuery) ([]models.Property, int64, error) {
			return nil, 0, nil
		},
		statsFn: func(_ context.Context, _ string) (*models.PropertyStats, error) {
			return &models.PropertyStats{}, nil
		},
	}
}

// favoriteRepoStub is a stub for repository.FavoriteRepository.
type favoriteRepoStub struct {
	toggleFn       func(context.Context, string, string) (bool, error)
	favoritedIDsFn func(context.Context, string, []string) (map[string]bool, error)
	listByUserFn   func(context.Context, string, int, int) ([]repository.FavoriteEntry, int64, error)
}

func (s *favoriteRepoStub) Toggle(ctx context.Context, userID, propertyID string) (bool, error) {
	return s.toggleFn(ctx, userID, propertyID)
}
func (s *favoriteRepoStub) FavoritedIDs(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	return s.favoritedIDsFn(ctx, userID, ids)
}
func (s *favoriteRepoStub) ListByUser(ctx context.Context, userID string, limit, offset int) ([]repository.FavoriteEntry, int64, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}

func noopFavoriteRepo() *favoriteRepoStub {
	return &favoriteRepoStub{
		toggleFn: func(_ context.Context, _, _ string) (bool, error) { return true, nil },
		favoritedIDsFn: func(_ context.Context, _ string, _ []string) (map[string]bool, error) {
			return map[string]bool{}, nil
		},
		listByUserFn: func(_ context.Context, _ string, _, _ int) ([]repository.FavoriteEntry, int64, error) {
			return nil, 0, nil
		},
	}
}

// recordingPublisher captures published listing events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.ListingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event notifications.ListingEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []notifications.ListingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifications.ListingEvent(nil), p.events...)
}

// useMiniredis points the cache package at a fresh miniredis for the test.
func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
	return mr
}

func strPtr(s string) *string { return &s }

func makeUser(id, role string) *models.User {
	return &models.User{ID: id, Name: "User " + id, Email: id + "@example.com", Role: role}
}
