package service

import (
	"context"

	"earthhome/internal/models"
	"earthhome/internal/observability"
	"earthhome/internal/repository"
)

// ToggleResult is the outcome of a favorite toggle.
type ToggleResult struct {
	IsFavorited bool   `json:"isFavorited"`
	Message     string `json:"message"`
}

// FavoritePage is one page of a user's favorites.
type FavoritePage struct {
	Properties []models.PropertyWithAgent `json:"properties"`
	Pagination models.Pagination          `json:"pagination"`
}

type FavoriteService struct {
	favoriteRepo repository.FavoriteRepository
	propertyRepo repository.PropertyRepository
}

func NewFavoriteService(favoriteRepo repository.FavoriteRepository, propertyRepo repository.PropertyRepository) *FavoriteService {
	return &FavoriteService{favoriteRepo: favoriteRepo, propertyRepo: propertyRepo}
}

// ToggleFavorite flips whether the caller has favorited propertyID.
func (s *FavoriteService) ToggleFavorite(ctx context.Context, actor *models.User, propertyID string) (*ToggleResult, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be logged in to favorite properties")
	}
	if _, err := s.propertyRepo.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}

	added, err := s.favoriteRepo.Toggle(ctx, actor.ID, propertyID)
	if err != nil {
		return nil, err
	}
	if added {
		observability.FavoriteToggles.WithLabelValues("added").Inc()
		return &ToggleResult{IsFavorited: true, Message: "Added to favorites"}, nil
	}
	observability.FavoriteToggles.WithLabelValues("removed").Inc()
	return &ToggleResult{IsFavorited: false, Message: "Removed from favorites"}, nil
}

// GetFavoriteProperties lists the caller's favorites, most recently saved first.
func (s *FavoriteService) GetFavoriteProperties(ctx context.Context, actor *models.User, page, limit int) (*FavoritePage, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be logged in to view favorites")
	}
	q := models.PropertyQuery{Page: page, Limit: limit}
	q.Normalize()

	entries, total, err := s.favoriteRepo.ListByUser(ctx, actor.ID, q.Limit, q.Offset())
	if err != nil {
		return nil, err
	}

	out := make([]models.PropertyWithAgent, len(entries))
	for i, e := range entries {
		favoritedAt := e.FavoritedAt
		out[i] = models.PropertyWithAgent{
			Property:    e.Property,
			Agent:       e.Property.AgentUser.Summary(),
			IsFavorited: true,
			FavoritedAt: &favoritedAt,
		}
	}
	return &FavoritePage{Properties: out, Pagination: models.NewPagination(q.Page, q.Limit, total)}, nil
}
