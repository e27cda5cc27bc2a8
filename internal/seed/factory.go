// Package seed creates demo and test data for the listing database. It is
// meant for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"earthhome/internal/models"
	"earthhome/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account without one.
const DefaultPassword = "password123"

// Options tunes the factory and seeder.
type Options struct {
	// Seed makes generated data reproducible. Zero picks a time-based seed.
	Seed int64
	// FastHash hashes passwords at bcrypt.MinCost.
	FastHash bool
	// MaxDays spreads created_at over the last MaxDays days.
	MaxDays int
	// BatchSize is the insert batch size for generated listings.
	BatchSize int
}

var (
	kenyanAreas = []struct{ area, city string }{
		{"Karen", "Nairobi"}, {"Kilimani", "Nairobi"}, {"Westlands", "Nairobi"},
		{"Runda", "Nairobi"}, {"Lavington", "Nairobi"}, {"Kileleshwa", "Nairobi"},
		{"Nyali", "Mombasa"}, {"Bamburi", "Mombasa"}, {"Diani", "Kwale"},
		{"Milimani", "Kisumu"}, {"Naka", "Nakuru"}, {"Elgon View", "Eldoret"},
		{"Kitisuru", "Nairobi"}, {"Syokimau", "Machakos"}, {"Ruiru", "Kiambu"},
	}

	propertyTypes = []models.PropertyType{
		models.PropertyTypeHouse, models.PropertyTypeApartment, models.PropertyTypeCondo,
		models.PropertyTypeTownhouse, models.PropertyTypeVilla, models.PropertyTypeStudio,
		models.PropertyTypeLand, models.PropertyTypeCommercial,
	}

	amenityPool = []string{
		"swimming pool", "gym", "garden", "borehole", "backup generator", "lift",
		"gated community", "cctv", "servant quarters", "balcony", "solar water heating",
		"parking", "playground", "fibre internet", "sea view",
	}

	titleNouns = map[models.PropertyType]string{
		models.PropertyTypeHouse:      "Family Home",
		models.PropertyTypeApartment:  "Apartment",
		models.PropertyTypeCondo:      "Condo",
		models.PropertyTypeTownhouse:  "Townhouse",
		models.PropertyTypeVilla:      "Villa",
		models.PropertyTypeStudio:     "Studio",
		models.PropertyTypeLand:       "Plot",
		models.PropertyTypeCommercial: "Commercial Space",
	}
)

// Factory builds users and listings with gofakeit and persists them.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	seq   atomic.Int64
	now   func() time.Time
}

// NewFactory returns a Factory bound to db.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed), now: time.Now}
}

// HashPassword hashes a seed password, cheaply when FastHash is set.
func (f *Factory) HashPassword(password string) (string, error) {
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// BuildUser returns an unsaved user with a unique address.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	n := f.seq.Add(1)
	user := &models.User{
		ID:            models.NewID(),
		Name:          first + " " + last,
		Email:         fmt.Sprintf("%s.%s.%d@earthhome.test", strings.ToLower(first), strings.ToLower(last), n),
		EmailVerified: f.faker.Bool(),
		Role:          models.RoleUser,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a user with a credential account using password.
func (f *Factory) CreateUser(password string, overrides ...func(*models.User)) (*models.User, error) {
	if password == "" {
		password = DefaultPassword
	}
	hash, err := f.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := f.BuildUser(overrides...)
	account := &models.Account{
		AccountID:  user.ID,
		ProviderID: models.ProviderCredential,
		UserID:     user.ID,
		Password:   &hash,
	}

	err = f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(account).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Email, err)
	}
	return user, nil
}

// BuildProperty returns an unsaved listing managed by agent.
func (f *Factory) BuildProperty(agent *models.User, overrides ...func(*models.Property)) *models.Property {
	ptype := propertyTypes[f.faker.Number(0, len(propertyTypes)-1)]
	place := kenyanAreas[f.faker.Number(0, len(kenyanAreas)-1)]
	listing := models.ListingTypeSale
	if f.faker.Number(1, 3) == 1 {
		listing = models.ListingTypeRent
	}

	title := fmt.Sprintf("%s %s %s", capitalize(f.faker.Adjective()), place.area, titleNouns[ptype])
	description := f.faker.Paragraph(1, 3, 12, " ")
	city := place.city
	country := "Kenya"
	price := f.price(ptype, listing)

	created := f.now().Add(-time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute)
	p := &models.Property{
		ID:           models.NewID(),
		Title:        title,
		Description:  &description,
		Slug:         fmt.Sprintf("%s-%d", service.GenerateSlug(title, created), f.seq.Add(1)),
		ListingType:  listing,
		PropertyType: ptype,
		Status:       f.status(),
		Location:     place.area + ", " + place.city,
		City:         &city,
		Country:      &country,
		Currency:     "KES",
		Price:        &price,
		Amenities:    datatypes.JSONSlice[string](f.amenities()),
		Images:       datatypes.JSONSlice[string]{},
		Features:     datatypes.JSONSlice[string]{},
		Utilities:    datatypes.JSONMap{},
		IsFeatured:   f.faker.Number(1, 10) == 1,
		IsNew:        f.now().Sub(created) < 7*24*time.Hour,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	if ptype != models.PropertyTypeLand && ptype != models.PropertyTypeCommercial {
		beds := f.faker.Number(1, 6)
		baths := f.faker.Number(1, beds)
		sqft := f.faker.Number(400, 6000)
		p.Beds, p.Baths, p.BuildingSizeSqft = &beds, &baths, &sqft
	} else {
		acres := float64(f.faker.Number(10, 500)) / 100
		p.LotSizeAcres = &acres
	}
	lat := f.faker.Float64Range(-4.6, 0.5)
	lng := f.faker.Float64Range(34.0, 41.0)
	p.Latitude, p.Longitude = &lat, &lng
	image := fmt.Sprintf("https://picsum.photos/seed/%s/1200/800", p.ID)
	p.ImageURL = &image
	p.Images = append(p.Images, image)

	if agent != nil {
		p.AgentID = &agent.ID
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// CreateProperty persists one generated listing.
func (f *Factory) CreateProperty(agent *models.User, overrides ...func(*models.Property)) (*models.Property, error) {
	p := f.BuildProperty(agent, overrides...)
	if err := f.db.Create(p).Error; err != nil {
		return nil, fmt.Errorf("create property %q: %w", p.Title, err)
	}
	return p, nil
}

// CreatePropertiesBatch persists listings in batches.
func (f *Factory) CreatePropertiesBatch(ctx context.Context, props []*models.Property) error {
	if len(props) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(props, f.opts.BatchSize).Error
}

func (f *Factory) price(ptype models.PropertyType, listing models.ListingType) int {
	if listing == models.ListingTypeRent {
		return f.faker.Number(15, 600) * 1000
	}
	switch ptype {
	case models.PropertyTypeVilla:
		return f.faker.Number(40, 250) * 1_000_000
	case models.PropertyTypeStudio, models.PropertyTypeApartment:
		return f.faker.Number(3, 30) * 1_000_000
	default:
		return f.faker.Number(5, 120) * 1_000_000
	}
}

func (f *Factory) status() models.PropertyStatus {
	switch n := f.faker.Number(1, 20); {
	case n <= 14:
		return models.PropertyStatusActive
	case n <= 16:
		return models.PropertyStatusDraft
	case n <= 18:
		return models.PropertyStatusSold
	default:
		return models.PropertyStatusRented
	}
}

func (f *Factory) amenities() []string {
	n := f.faker.Number(2, 6)
	pool := make([]string, len(amenityPool))
	copy(pool, amenityPool)
	f.faker.ShuffleStrings(pool)
	return pool[:n]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
