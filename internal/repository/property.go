package repository

import (
	"context"
	"fmt"

	"earthhome/internal/models"
	"earthhome/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// effectivePrice is the price a listing is filtered and sorted by.
const effectivePrice = "COALESCE(sale_price, rental_price, price)"

var sortColumns = map[string]string{
	models.SortByCreatedAt: "created_at",
	models.SortByUpdatedAt: "updated_at",
	models.SortByPrice:     effectivePrice,
	models.SortByTitle:     "title",
}

// PropertyRepository defines persistence operations for listings.
type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error
	Update(ctx context.Context, p *models.Property) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Property, error)
	GetBySlug(ctx context.Context, slug string) (*models.Property, error)
	List(ctx context.Context, q models.PropertyQuery) ([]models.Property, int64, error)
	Stats(ctx context.Context, agentID string) (*models.PropertyStats, error)
}

type propertyRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db, metrics: observability.NewDatabaseMetrics()}
}

func (r *propertyRepository) Create(ctx context.Context, p *models.Property) error {
	defer r.metrics.TrackQuery("insert", "property")()

	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
	if isUniqueViolation(err) {
		return models.NewConflictError("A property with this slug already exists")
	}
	if err != nil {
		return models.NewInternalError(fmt.Errorf("create property: %w", err))
	}
	return nil
}

func (r *propertyRepository) Update(ctx context.Context, p *models.Property) error {
	defer r.metrics.TrackQuery("update", "property")()

	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
	if isUniqueViolation(err) {
		return models.NewConflictError("A property with this slug already exists")
	}
	if err != nil {
		return models.NewInternalError(fmt.Errorf("update property: %w", err))
	}
	return nil
}

// Delete removes the row; favorites go with it through ON DELETE CASCADE.
func (r *propertyRepository) Delete(ctx context.Context, id string) error {
	defer r.metrics.TrackQuery("delete", "property")()

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Property{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Property not found")
	}
	return nil
}

func (r *propertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	return r.getBy(ctx, "id", id)
}

func (r *propertyRepository) GetBySlug(ctx context.Context, slug string) (*models.Property, error) {
	return r.getBy(ctx, "slug", slug)
}

func (r *propertyRepository) getBy(ctx context.Context, column, value string) (*models.Property, error) {
	defer r.metrics.TrackQuery("select", "property")()

	var p models.Property
	err := r.db.WithContext(ctx).
		Preload("AgentUser").
		Where(column+" = ?", value).
		First(&p).Error
	if err != nil {
		return nil, notFoundOr(err, "Property not found")
	}
	return &p, nil
}

// List returns one page of listings matching q and the total match count.
func (r *propertyRepository) List(ctx context.Context, q models.PropertyQuery) ([]models.Property, int64, error) {
	defer r.metrics.TrackQuery("select", "property")()

	q.Normalize()
	filtered := func() *gorm.DB {
		return applyPropertyFilters(r.db.WithContext(ctx).Model(&models.Property{}), q.Filters)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(fmt.Errorf("count properties: %w", err))
	}
	if total == 0 {
		return []models.Property{}, 0, nil
	}

	direction := "DESC"
	if q.SortOrder == "asc" {
		direction = "ASC"
	}

	var rows []models.Property
	err := filtered().
		Preload("AgentUser").
		Order(fmt.Sprintf("%s %s", sortColumns[q.SortBy], direction)).
		Order("id " + direction).
		Limit(q.Limit).
		Offset(q.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, models.NewInternalError(fmt.Errorf("list properties: %w", err))
	}
	return rows, total, nil
}

func applyPropertyFilters(db *gorm.DB, f models.PropertyFilters) *gorm.DB {
	if f.Search != "" {
		like := likePattern(f.Search)
		db = db.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ? OR LOWER(location) LIKE ?)", like, like, like)
	}
	if f.PropertyType != "" {
		db = db.Where("property_type = ?", f.PropertyType)
	}
	if f.ListingType != "" {
		db = db.Where("listing_type = ?", f.ListingType)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.MinPrice != nil {
		db = db.Where(effectivePrice+" >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where(effectivePrice+" <= ?", *f.MaxPrice)
	}
	if f.Beds != nil {
		db = db.Where("beds = ?", *f.Beds)
	}
	if f.Baths != nil {
		db = db.Where("baths = ?", *f.Baths)
	}
	if f.City != "" {
		db = db.Where("LOWER(city) LIKE ?", likePattern(f.City))
	}
	if f.AgentID != "" {
		db = db.Where("agent_id = ?", f.AgentID)
	}
	if f.OwnerID != "" {
		db = db.Where("owner_id = ?", f.OwnerID)
	}
	if f.IsFeatured != nil {
		db = db.Where("is_featured = ?", *f.IsFeatured)
	}
	if f.ManagedBy != "" {
		db = db.Where("(agent_id = ? OR owner_id = ?)", f.ManagedBy, f.ManagedBy)
	}
	return db
}

// Stats counts listings by status, scoped to one agent when agentID is set.
func (r *propertyRepository) Stats(ctx context.Context, agentID string) (*models.PropertyStats, error) {
	defer r.metrics.TrackQuery("select", "property")()

	q := r.db.WithContext(ctx).Model(&models.Property{}).Select(
		"COUNT(*) AS total_properties, " +
			"COUNT(CASE WHEN status = 'active' THEN 1 END) AS active_properties, " +
			"COUNT(CASE WHEN status = 'sold' THEN 1 END) AS sold_properties, " +
			"COUNT(CASE WHEN status = 'rented' THEN 1 END) AS rented_properties, " +
			"COUNT(CASE WHEN status = 'draft' THEN 1 END) AS draft_properties, " +
			"COUNT(CASE WHEN is_featured = true THEN 1 END) AS featured_properties",
	)
	if agentID != "" {
		q = q.Where("agent_id = ?", agentID)
	}

	var stats models.PropertyStats
	if err := q.Scan(&stats).Error; err != nil {
		return nil, models.NewInternalError(fmt.Errorf("property stats: %w", err))
	}
	return &stats, nil
}
