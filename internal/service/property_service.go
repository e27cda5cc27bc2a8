package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"earthhome/internal/cache"
	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/notifications"
	"earthhome/internal/observability"
	"earthhome/internal/repository"
	"earthhome/internal/storage"
	"earthhome/internal/validation"

	"github.com/google/uuid"
)

// Object-storage roots for listing media.
const (
	PropertyImagesRoot    = "properties"
	PropertyDocumentsRoot = "documents"
)

// ListingPublisher receives listing change events after successful writes.
type ListingPublisher interface {
	Publish(ctx context.Context, event notifications.ListingEvent)
}

// PropertyPage is one page of listings for a viewer.
type PropertyPage struct {
	Properties []models.PropertyWithAgent `json:"properties"`
	Pagination models.Pagination          `json:"pagination"`
}

type PropertyService struct {
	propertyRepo repository.PropertyRepository
	favoriteRepo repository.FavoriteRepository
	store        storage.ObjectStore
	publisher    ListingPublisher
	now          func() time.Time
}

func NewPropertyService(
	propertyRepo repository.PropertyRepository,
	favoriteRepo repository.FavoriteRepository,
	store storage.ObjectStore,
	publisher ListingPublisher,
) *PropertyService {
	return &PropertyService{
		propertyRepo: propertyRepo,
		favoriteRepo: favoriteRepo,
		store:        store,
		publisher:    publisher,
		now:          time.Now,
	}
}

func validatePropertyInput(in *models.PropertyInput) error {
	if in == nil {
		return models.NewValidationError("Request body is required")
	}
	if err := validation.Struct(in); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

// CreateProperty stores a new listing owned by the caller unless input names another owner.
func (s *PropertyService) CreateProperty(ctx context.Context, actor *models.User, in *models.PropertyInput) (*models.Property, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be logged in to create properties")
	}
	if err := validatePropertyInput(in); err != nil {
		return nil, err
	}
	if missing := in.MissingRequired(); len(missing) > 0 {
		return nil, models.NewValidationError("Missing required fields: " + strings.Join(missing, ", "))
	}

	p := &models.Property{
		ListingType: models.ListingTypeSale,
		Status:      models.PropertyStatusActive,
		Currency:    "USD",
	}
	in.ApplyTo(p)
	p.Slug = GenerateSlug(p.Title, s.now())
	agentID := actor.ID
	p.AgentID = &agentID
	if p.OwnerID == nil || *p.OwnerID == "" {
		ownerID := actor.ID
		p.OwnerID = &ownerID
	}

	if err := s.propertyRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, notifications.PropertyCreated, p, "")
	return p, nil
}

// UpdateProperty applies a partial update. A changed title regenerates the slug.
func (s *PropertyService) UpdateProperty(ctx context.Context, actor *models.User, id string, in *models.PropertyInput) (*models.Property, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be logged in to update properties")
	}
	if err := validatePropertyInput(in); err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, models.NewValidationError("title cannot be empty")
	}
	if in.Location != nil && strings.TrimSpace(*in.Location) == "" {
		return nil, models.NewValidationError("location cannot be empty")
	}

	p, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, p) {
		return nil, models.NewForbiddenError("You don't have permission to update this property")
	}

	oldSlug := p.Slug
	oldTitle := p.Title
	in.ApplyTo(p)
	if p.Title != oldTitle {
		p.Slug = GenerateSlug(p.Title, s.now())
	}
	if p.OwnerID != nil && *p.OwnerID == "" {
		p.OwnerID = nil
	}
	p.UpdatedAt = s.now()

	if err := s.propertyRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, notifications.PropertyUpdated, p, oldSlug)
	return p, nil
}

// DeleteProperty removes a listing's media and then its row. Favorites go by cascade.
func (s *PropertyService) DeleteProperty(ctx context.Context, actor *models.User, id string) error {
	if actor == nil {
		return models.NewUnauthorizedError("You must be logged in to delete properties")
	}
	p, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, p) {
		return models.NewForbiddenError("You don't have permission to delete this property")
	}

	if err := s.deleteMedia(ctx, p.Title); err != nil {
		return models.NewInternalError(fmt.Errorf("delete media for property %s: %w", p.ID, err))
	}

	if err := s.propertyRepo.Delete(ctx, p.ID); err != nil {
		return err
	}

	s.afterWrite(ctx, notifications.PropertyDeleted, p, "")
	return nil
}

func (s *PropertyService) deleteMedia(ctx context.Context, title string) error {
	if s.store == nil {
		return nil
	}
	folder := TitleFolder(title)
	var errs []error
	for _, root := range []string{PropertyImagesRoot, PropertyDocumentsRoot} {
		prefix := root + "/" + folder + "/"
		n, err := s.store.DeleteByPrefix(ctx, prefix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		middleware.Logger.InfoContext(ctx, "deleted listing media", "prefix", prefix, "objects", n)
	}
	return errors.Join(errs...)
}

func (s *PropertyService) afterWrite(ctx context.Context, eventType notifications.EventType, p *models.Property, previousSlug string) {
	operation := strings.TrimPrefix(string(eventType), "property.")
	observability.PropertyMutations.WithLabelValues(operation).Inc()

	if err := cache.InvalidateProperty(ctx, p.ID, p.Slug); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to invalidate property caches", "property_id", p.ID, "error", err)
	}
	if previousSlug != "" && previousSlug != p.Slug {
		cache.Invalidate(ctx, cache.PropertyKey(previousSlug))
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, notifications.ListingEvent{
			Type:       eventType,
			PropertyID: p.ID,
			Slug:       p.Slug,
			At:         s.now().UTC(),
		})
	}
}

func canManage(actor *models.User, p *models.Property) bool {
	return actor != nil && (actor.IsAdmin() || p.IsManagedBy(actor.ID))
}

// ListProperties is the public browse. Only active listings are shown unless
// an admin asks for a specific status.
func (s *PropertyService) ListProperties(ctx context.Context, actor *models.User, q models.PropertyQuery) (*PropertyPage, error) {
	if q.Filters.Status == "" || actor == nil || !actor.IsAdmin() {
		q.Filters.Status = models.PropertyStatusActive
	}
	q.Filters.ManagedBy = ""
	q.Normalize()

	if actor != nil {
		q.ViewerID = actor.ID
		return s.listPage(ctx, q)
	}

	key, err := cache.PropertyListKey(q)
	if err != nil {
		return s.listPage(ctx, q)
	}
	var page PropertyPage
	err = cache.Aside(ctx, "property_list", key, &page, cache.PropertyListTTL, func() error {
		fresh, err := s.listPage(ctx, q)
		if err != nil {
			return err
		}
		page = *fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListManagedProperties is the dashboard browse: listings the caller is agent
// or owner of. Admins see every listing.
func (s *PropertyService) ListManagedProperties(ctx context.Context, actor *models.User, q models.PropertyQuery) (*PropertyPage, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	q.Filters.ManagedBy = ""
	if !actor.IsAdmin() {
		q.Filters.ManagedBy = actor.ID
	}
	q.ViewerID = actor.ID
	q.Normalize()
	return s.listPage(ctx, q)
}

func (s *PropertyService) listPage(ctx context.Context, q models.PropertyQuery) (*PropertyPage, error) {
	rows, total, err := s.propertyRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrich(ctx, q.ViewerID, rows)
	if err != nil {
		return nil, err
	}
	return &PropertyPage{
		Properties: enriched,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}, nil
}

func (s *PropertyService) enrich(ctx context.Context, viewerID string, rows []models.Property) ([]models.PropertyWithAgent, error) {
	out := make([]models.PropertyWithAgent, len(rows))
	ids := make([]string, len(rows))
	for i := range rows {
		out[i] = models.PropertyWithAgent{Property: rows[i], Agent: rows[i].AgentUser.Summary()}
		ids[i] = rows[i].ID
	}
	if viewerID == "" || len(rows) == 0 {
		return out, nil
	}

	favorited, err := s.favoriteRepo.FavoritedIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsFavorited = favorited[out[i].ID]
	}
	return out, nil
}

// GetProperty looks a listing up by id when identifier is a UUID, otherwise by slug.
func (s *PropertyService) GetProperty(ctx context.Context, actor *models.User, identifier string) (*models.PropertyWithAgent, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, models.NewNotFoundError("Property not found")
	}

	var item models.PropertyWithAgent
	err := cache.Aside(ctx, "property", cache.PropertyKey(identifier), &item, cache.PropertyTTL, func() error {
		var (
			p   *models.Property
			err error
		)
		if _, parseErr := uuid.Parse(identifier); parseErr == nil {
			p, err = s.propertyRepo.GetByID(ctx, identifier)
		} else {
			p, err = s.propertyRepo.GetBySlug(ctx, identifier)
		}
		if err != nil {
			return err
		}
		item = models.PropertyWithAgent{Property: *p, Agent: p.AgentUser.Summary()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if actor != nil {
		favorited, err := s.favoriteRepo.FavoritedIDs(ctx, actor.ID, []string{item.ID})
		if err != nil {
			return nil, err
		}
		item.IsFavorited = favorited[item.ID]
	}
	return &item, nil
}

// GetPropertyStats counts listings by status, scoped to agentID when it is set.
func (s *PropertyService) GetPropertyStats(ctx context.Context, agentID string) (*models.PropertyStats, error) {
	var stats models.PropertyStats
	err := cache.Aside(ctx, "property_stats", cache.StatsKey(agentID), &stats, cache.StatsTTL, func() error {
		fresh, err := s.propertyRepo.Stats(ctx, agentID)
		if err != nil {
			return err
		}
		stats = *fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
