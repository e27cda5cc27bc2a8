package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"earthhome/internal/models"
	"earthhome/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yaml
var demoFixtures []byte

// Fixtures is a hand-curated data set loaded from YAML.
type Fixtures struct {
	Users      []UserFixture     `yaml:"users"`
	Properties []PropertyFixture `yaml:"properties"`
	Favorites  []FavoriteFixture `yaml:"favorites"`
}

// UserFixture describes one account. An empty password falls back to DefaultPassword.
type UserFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
	Verified bool   `yaml:"verified"`
}

// PropertyFixture describes one listing. Agent and Owner are user emails.
type PropertyFixture struct {
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	PropertyType string   `yaml:"propertyType"`
	ListingType  string   `yaml:"listingType"`
	Status       string   `yaml:"status"`
	Location     string   `yaml:"location"`
	City         string   `yaml:"city"`
	Country      string   `yaml:"country"`
	Currency     string   `yaml:"currency"`
	Price        *int     `yaml:"price"`
	Beds         *int     `yaml:"beds"`
	Baths        *int     `yaml:"baths"`
	Sqft         *int     `yaml:"sqft"`
	Amenities    []string `yaml:"amenities"`
	Images       []string `yaml:"images"`
	Featured     bool     `yaml:"featured"`
	Agent        string   `yaml:"agent"`
	Owner        string   `yaml:"owner"`
}

// FavoriteFixture bookmarks the listing titled Property for the user with email User.
type FavoriteFixture struct {
	User     string `yaml:"user"`
	Property string `yaml:"property"`
}

// DefaultFixtures returns the embedded demo data set.
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(demoFixtures)
}

// LoadFixturesFile reads fixtures from a YAML file on disk.
func LoadFixturesFile(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadFixtures(f)
}

// LoadFixtures decodes fixtures from r.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes and validates a YAML fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks cross references and listing fields.
func (fx *Fixtures) Validate() error {
	emails := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		email := validation.NormalizeEmail(u.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		if emails[email] {
			return fmt.Errorf("user %d: duplicate email %s", i, email)
		}
		emails[email] = true
		if u.Role != "" && u.Role != models.RoleUser && u.Role != models.RoleAdmin {
			return fmt.Errorf("user %s: unknown role %q", email, u.Role)
		}
	}

	titles := make(map[string]bool, len(fx.Properties))
	for i, p := range fx.Properties {
		in := p.Input()
		if missing := in.MissingRequired(); len(missing) > 0 {
			return fmt.Errorf("property %d: missing %s", i, strings.Join(missing, ", "))
		}
		if err := validation.Struct(in); err != nil {
			return fmt.Errorf("property %q: %w", p.Title, err)
		}
		for _, ref := range []string{p.Agent, p.Owner} {
			if ref != "" && !emails[validation.NormalizeEmail(ref)] {
				return fmt.Errorf("property %q: unknown user %s", p.Title, ref)
			}
		}
		titles[p.Title] = true
	}

	for _, f := range fx.Favorites {
		if !emails[validation.NormalizeEmail(f.User)] {
			return fmt.Errorf("favorite: unknown user %s", f.User)
		}
		if !titles[f.Property] {
			return fmt.Errorf("favorite: unknown property %q", f.Property)
		}
	}
	return nil
}

// Input converts the fixture to the same input the API accepts.
func (p PropertyFixture) Input() *models.PropertyInput {
	in := &models.PropertyInput{
		Title:      &p.Title,
		Location:   &p.Location,
		Price:      p.Price,
		Beds:       p.Beds,
		Baths:      p.Baths,
		IsFeatured: &p.Featured,
	}
	if p.PropertyType != "" {
		pt := models.PropertyType(p.PropertyType)
		in.PropertyType = &pt
	}
	if p.ListingType != "" {
		lt := models.ListingType(p.ListingType)
		in.ListingType = &lt
	}
	if p.Status != "" {
		st := models.PropertyStatus(p.Status)
		in.Status = &st
	}
	if p.Description != "" {
		in.Description = &p.Description
	}
	if p.City != "" {
		in.City = &p.City
	}
	if p.Country != "" {
		in.Country = &p.Country
	}
	if p.Currency != "" {
		in.Currency = &p.Currency
	}
	if p.Sqft != nil {
		in.BuildingSizeSqft = p.Sqft
	}
	if len(p.Amenities) > 0 {
		in.Amenities = &p.Amenities
	}
	if len(p.Images) > 0 {
		in.Images = &p.Images
		in.ImageURL = &p.Images[0]
	}
	return in
}
