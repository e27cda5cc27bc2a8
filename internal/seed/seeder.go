package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/service"
	"earthhome/internal/validation"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Summary counts what a seeding run wrote.
type Summary struct {
	Users      int
	Properties int
	Favorites  int
}

// Seeder fills the database with fixtures and generated data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// Factory exposes the underlying factory for callers that need single records.
func (s *Seeder) Factory() *Factory { return s.factory }

// clearOrder lists tables children first so foreign keys never block a delete.
var clearOrder = []any{
	&models.Favorite{},
	&models.Property{},
	&models.Session{},
	&models.Account{},
	&models.Verification{},
	&models.User{},
}

// ClearAll deletes every row the seeder can create.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range clearOrder {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// SeedFixtures upserts users by email and listings by title. Running it twice
// leaves the same rows in place.
func (s *Seeder) SeedFixtures(ctx context.Context, fx *Fixtures) (*Summary, error) {
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	sum := &Summary{}
	db := s.db.WithContext(ctx)

	users := make(map[string]*models.User, len(fx.Users))
	for _, uf := range fx.Users {
		user, created, err := s.ensureUser(db, uf)
		if err != nil {
			return nil, err
		}
		users[user.Email] = user
		if created {
			sum.Users++
		}
	}

	props := make(map[string]*models.Property, len(fx.Properties))
	for _, pf := range fx.Properties {
		p, created, err := s.ensureProperty(db, pf, users)
		if err != nil {
			return nil, err
		}
		props[p.Title] = p
		if created {
			sum.Properties++
		}
	}

	for _, ff := range fx.Favorites {
		fav := models.Favorite{
			UserID:     users[validation.NormalizeEmail(ff.User)].ID,
			PropertyID: props[ff.Property].ID,
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fav)
		if res.Error != nil {
			return nil, fmt.Errorf("seed favorite %s -> %q: %w", ff.User, ff.Property, res.Error)
		}
		sum.Favorites += int(res.RowsAffected)
	}

	middleware.Logger.InfoContext(ctx, "fixtures seeded",
		"users", sum.Users, "properties", sum.Properties, "favorites", sum.Favorites)
	return sum, nil
}

func (s *Seeder) ensureUser(db *gorm.DB, uf UserFixture) (*models.User, bool, error) {
	email := validation.NormalizeEmail(uf.Email)

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup user %s: %w", email, err)
	}

	role := uf.Role
	if role == "" {
		role = models.RoleUser
	}
	user, err := s.factory.CreateUser(uf.Password, func(u *models.User) {
		u.Name = uf.Name
		u.Email = email
		u.Role = role
		u.EmailVerified = uf.Verified
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *Seeder) ensureProperty(db *gorm.DB, pf PropertyFixture, users map[string]*models.User) (*models.Property, bool, error) {
	var existing models.Property
	err := db.Where("title = ?", pf.Title).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup property %q: %w", pf.Title, err)
	}

	now := time.Now()
	p := &models.Property{
		ListingType: models.ListingTypeSale,
		Status:      models.PropertyStatusActive,
		Currency:    "USD",
		Images:      datatypes.JSONSlice[string]{},
		Amenities:   datatypes.JSONSlice[string]{},
		Features:    datatypes.JSONSlice[string]{},
		Utilities:   datatypes.JSONMap{},
		IsNew:       true,
	}
	pf.Input().ApplyTo(p)
	p.Slug = service.GenerateSlug(p.Title, now)

	if agent := users[validation.NormalizeEmail(pf.Agent)]; agent != nil {
		p.AgentID = &agent.ID
	}
	if owner := users[validation.NormalizeEmail(pf.Owner)]; owner != nil {
		p.OwnerID = &owner.ID
	}
	if err := db.Create(p).Error; err != nil {
		return nil, false, fmt.Errorf("create property %q: %w", pf.Title, err)
	}
	return p, true, nil
}

// SeedRandom creates numAgents agents and numProperties listings spread across them.
func (s *Seeder) SeedRandom(ctx context.Context, numAgents, numProperties int) ([]*models.User, []*models.Property, error) {
	if numAgents <= 0 && numProperties > 0 {
		return nil, nil, errors.New("at least one agent is required to create listings")
	}

	agents := make([]*models.User, 0, numAgents)
	for i := 0; i < numAgents; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		u, err := s.factory.CreateUser("")
		if err != nil {
			return nil, nil, err
		}
		agents = append(agents, u)
	}

	props := make([]*models.Property, 0, numProperties)
	for i := 0; i < numProperties; i++ {
		agent := agents[i%len(agents)]
		props = append(props, s.factory.BuildProperty(agent))
	}
	if err := s.factory.CreatePropertiesBatch(ctx, props); err != nil {
		return nil, nil, fmt.Errorf("create properties: %w", err)
	}

	middleware.Logger.InfoContext(ctx, "random data seeded", "agents", len(agents), "properties", len(props))
	return agents, props, nil
}

// SeedFavorites gives each user up to perUser favorites among active listings.
func (s *Seeder) SeedFavorites(ctx context.Context, users []*models.User, props []*models.Property, perUser int) (int, error) {
	var active []*models.Property
	for _, p := range props {
		if p.Status == models.PropertyStatusActive {
			active = append(active, p)
		}
	}
	if len(active) == 0 || perUser <= 0 {
		return 0, nil
	}

	var favs []models.Favorite
	for _, u := range users {
		n := s.factory.faker.Number(0, min(perUser, len(active)))
		start := s.factory.faker.Number(0, len(active)-1)
		for j := 0; j < n; j++ {
			p := active[(start+j)%len(active)]
			favs = append(favs, models.Favorite{UserID: u.ID, PropertyID: p.ID})
		}
	}
	if len(favs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&favs)
	if res.Error != nil {
		return 0, fmt.Errorf("create favorites: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// String renders a short human summary.
func (sum *Summary) String() string {
	parts := []string{
		fmt.Sprintf("%d users", sum.Users),
		fmt.Sprintf("%d properties", sum.Properties),
		fmt.Sprintf("%d favorites", sum.Favorites),
	}
	return strings.Join(parts, ", ")
}
