package service

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"earthhome/internal/models"
	"earthhome/internal/notifications"
	"earthhome/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newPropertyService(repo *propertyRepoStub, favs *favoriteRepoStub) (*PropertyService, *testutil.MemoryStore, *recordingPublisher) {
	store := testutil.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewPropertyService(repo, favs, store, pub)
	svc.now = func() time.Time { return fixedNow }
	return svc, store, pub
}

func TestGenerateSlug(t *testing.T) {
	millis := strconv.FormatInt(fixedNow.UnixMilli(), 10)
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Cozy Cottage", "cozy-cottage-" + millis},
		{"punctuation stripped", "Luxury Villa! In Miami, FL", "luxury-villa-in-miami-fl-" + millis},
		{"dash runs collapsed", "  --Lake   House--  ", "lake-house-" + millis},
		{"nothing left", "!!!", millis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.title, fixedNow))
		})
	}
}

func TestTitleFolderAndFileSlug(t *testing.T) {
	assert.Equal(t, "modern-loft-downtown", TitleFolder("  Modern Loft\tDowntown "))
	assert.Equal(t, "a-b", TitleFolder("A/B"))
	assert.Equal(t, "unknown-property", TitleFolder("   "))
	assert.NotContains(t, TitleFolder("../../etc"), "..")

	tests := []struct{ in, want string }{
		{"Front View.JPG", "front-view.jpg"},
		{"floor plan (v2).pdf", "floor-plan-v2-.pdf"},
		{"__weird__name__.png", "weird-name-.png"},
		{"---", "file"},
		{"beach..house.png", "beach.house.png"},
		{"../../etc/passwd", ".-.-etc-passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FileSlug(tt.in))
		})
	}
}

func validInput() *models.PropertyInput {
	pt := models.PropertyTypeHouse
	return &models.PropertyInput{
		Title:        strPtr("Sunny Bungalow"),
		PropertyType: &pt,
		Location:     strPtr("Austin, TX"),
	}
}

func TestCreateProperty(t *testing.T) {
	agent := makeUser("agent-1", models.RoleUser)

	t.Run("requires login", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		_, err := svc.CreateProperty(context.Background(), nil, validInput())
		assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	})

	t.Run("missing required fields", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		_, err := svc.CreateProperty(context.Background(), agent, &models.PropertyInput{Title: strPtr("Only a title")})
		require.Error(t, err)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		assert.Contains(t, err.Error(), "propertyType, location")
	})

	t.Run("rejects unknown enum", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		in := validInput()
		bad := models.PropertyType("castle")
		in.PropertyType = &bad
		_, err := svc.CreateProperty(context.Background(), agent, in)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("rejects negative price", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		in := validInput()
		price := -5
		in.Price = &price
		_, err := svc.CreateProperty(context.Background(), agent, in)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})

	t.Run("creates with defaults", func(t *testing.T) {
		repo := noopPropertyRepo()
		var saved *models.Property
		repo.createFn = func(_ context.Context, p *models.Property) error {
			p.ID = "11111111-1111-7111-8111-111111111111"
			saved = p
			return nil
		}
		svc, _, pub := newPropertyService(repo, noopFavoriteRepo())

		p, err := svc.CreateProperty(context.Background(), agent, validInput())
		require.NoError(t, err)
		require.Same(t, saved, p)

		assert.Equal(t, "sunny-bungalow-"+strconv.FormatInt(fixedNow.UnixMilli(), 10), p.Slug)
		assert.Equal(t, models.PropertyStatusActive, p.Status)
		assert.Equal(t, models.ListingTypeSale, p.ListingType)
		assert.Equal(t, "USD", p.Currency)
		require.NotNil(t, p.AgentID)
		assert.Equal(t, agent.ID, *p.AgentID)
		require.NotNil(t, p.OwnerID)
		assert.Equal(t, agent.ID, *p.OwnerID)

		events := pub.Events()
		require.Len(t, events, 1)
		assert.Equal(t, notifications.PropertyCreated, events[0].Type)
		assert.Equal(t, p.ID, events[0].PropertyID)
		assert.Equal(t, p.Slug, events[0].Slug)
	})

	t.Run("explicit owner kept", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		in := validInput()
		in.OwnerID = strPtr("owner-9")
		p, err := svc.CreateProperty(context.Background(), agent, in)
		require.NoError(t, err)
		assert.Equal(t, "owner-9", *p.OwnerID)
		assert.Equal(t, agent.ID, *p.AgentID)
	})
}

func existingProperty() *models.Property {
	agentID := "agent-1"
	ownerID := "owner-1"
	return &models.Property{
		ID:       "22222222-2222-7222-8222-222222222222",
		Title:    "Old Farmhouse",
		Slug:     "old-farmhouse-1700000000000",
		Status:   models.PropertyStatusActive,
		Location: "Vermont",
		AgentID:  &agentID,
		OwnerID:  &ownerID,
	}
}

func TestUpdateProperty(t *testing.T) {
	tests := []struct {
		name     string
		actor    *models.User
		wantCode string
	}{
		{"agent", makeUser("agent-1", models.RoleUser), ""},
		{"owner", makeUser("owner-1", models.RoleUser), ""},
		{"admin override", makeUser("root", models.RoleAdmin), ""},
		{"stranger", makeUser("stranger", models.RoleUser), models.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPropertyRepo()
			repo.getByIDFn = func(context.Context, string) (*models.Property, error) { return existingProperty(), nil }
			svc, _, pub := newPropertyService(repo, noopFavoriteRepo())

			_, err := svc.UpdateProperty(context.Background(), tt.actor, "id", &models.PropertyInput{Description: strPtr("Fresh paint")})
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Len(t, pub.Events(), 1)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, models.ErrorCode(err))
			assert.Equal(t, "You don't have permission to update this property", err.Error())
			assert.Empty(t, pub.Events())
		})
	}

	t.Run("missing property", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		_, err := svc.UpdateProperty(context.Background(), makeUser("agent-1", models.RoleUser), "nope", &models.PropertyInput{})
		require.Error(t, err)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
		assert.Equal(t, "Property not found", err.Error())
	})

	t.Run("title change regenerates slug", func(t *testing.T) {
		repo := noopPropertyRepo()
		repo.getByIDFn = func(context.Context, string) (*models.Property, error) { return existingProperty(), nil }
		svc, _, _ := newPropertyService(repo, noopFavoriteRepo())

		p, err := svc.UpdateProperty(context.Background(), makeUser("agent-1", models.RoleUser), "id", &models.PropertyInput{Title: strPtr("Restored Farmhouse")})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(p.Slug, "restored-farmhouse-"))
		assert.Equal(t, fixedNow, p.UpdatedAt)
	})

	t.Run("same title keeps slug", func(t *testing.T) {
		repo := noopPropertyRepo()
		repo.getByIDFn = func(context.Context, string) (*models.Property, error) { return existingProperty(), nil }
		svc, _, _ := newPropertyService(repo, noopFavoriteRepo())

		p, err := svc.UpdateProperty(context.Background(), makeUser("agent-1", models.RoleUser), "id", &models.PropertyInput{Title: strPtr("Old Farmhouse")})
		require.NoError(t, err)
		assert.Equal(t, "old-farmhouse-1700000000000", p.Slug)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		_, err := svc.UpdateProperty(context.Background(), makeUser("agent-1", models.RoleUser), "id", &models.PropertyInput{Title: strPtr("  ")})
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	})
}

func TestDeleteProperty(t *testing.T) {
	t.Run("stranger forbidden", func(t *testing.T) {
		repo := noopPropertyRepo()
		repo.getByIDFn = func(context.Context, string) (*models.Property, error) { return existingProperty(), nil }
		repo.deleteFn = func(context.Context, string) error {
			t.Fatal("delete must not run")
			return nil
		}
		svc, _, _ := newPropertyService(repo, noopFavoriteRepo())

		err := svc.DeleteProperty(context.Background(), makeUser("stranger", models.RoleUser), "id")
		require.Error(t, err)
		assert.Equal(t, "You don't have permission to delete this property", err.Error())
	})

	t.Run("removes media then row", func(t *testing.T) {
		repo := noopPropertyRepo()
		repo.getByIDFn = func(context.Context, string) (*models.Property, error) { return existingProperty(), nil }
		var deletedID string
		repo.deleteFn = func(_ context.Context, id string) error {
			deletedID = id
			return nil
		}
		svc, store, pub := newPropertyService(repo, noopFavoriteRepo())
		ctx := context.Background()
		require.NoError(t, store.Put(ctx, "properties/old-farmhouse/a-front.jpg", []byte("x"), "image/jpeg"))
		require.NoError(t, store.Put(ctx, "documents/old-farmhouse/b-deed.pdf", []byte("x"), "application/pdf"))
		require.NoError(t, store.Put(ctx, "properties/old-farmhouse-annex/c.jpg", []byte("x"), "image/jpeg"))

		require.NoError(t, svc.DeleteProperty(ctx, makeUser("owner-1", models.RoleUser), "id"))

		assert.Equal(t, existingProperty().ID, deletedID)
		assert.Equal(t, []string{"properties/old-farmhouse-annex/c.jpg"}, store.Keys())
		events := pub.Events()
		require.Len(t, events, 1)
		assert.Equal(t, notifications.PropertyDeleted, events[0].Type)
	})
}

func TestListProperties_StatusScoping(t *testing.T) {
	tests := []struct {
		name       string
		actor      *models.User
		status     models.PropertyStatus
		wantStatus models.PropertyStatus
	}{
		{"anonymous forced active", nil, models.PropertyStatusSold, models.PropertyStatusActive},
		{"user forced active", makeUser("u", models.RoleUser), models.PropertyStatusDraft, models.PropertyStatusActive},
		{"admin may filter", makeUser("a", models.RoleAdmin), models.PropertyStatusDraft, models.PropertyStatusDraft},
		{"admin default active", makeUser("a", models.RoleAdmin), "", models.PropertyStatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPropertyRepo()
			var got models.PropertyQuery
			repo.listFn = func(_ context.Context, q models.PropertyQuery) ([]models.Property, int64, error) {
				got = q
				return nil, 0, nil
			}
			svc, _, _ := newPropertyService(repo, noopFavoriteRepo())

			q := models.PropertyQuery{Filters: models.PropertyFilters{Status: tt.status, ManagedBy: "sneaky"}}
			_, err := svc.ListProperties(context.Background(), tt.actor, q)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Filters.Status)
			assert.Empty(t, got.Filters.ManagedBy)
			assert.Equal(t, models.DefaultPageLimit, got.Limit)
		})
	}
}

func TestListProperties_EnrichesForViewer(t *testing.T) {
	repo := noopPropertyRepo()
	agent := makeUser("agent-1", models.RoleUser)
	repo.listFn = func(_ context.Context, q models.PropertyQuery) ([]models.Property, int64, error) {
		return []models.Property{
			{ID: "p1", Title: "One", AgentUser: agent},
			{ID: "p2", Title: "Two"},
		}, 45, nil
	}
	favs := noopFavoriteRepo()
	favs.favoritedIDsFn = func(_ context.Context, userID string, ids []string) (map[string]bool, error) {
		assert.Equal(t, "viewer", userID)
		assert.Equal(t, []string{"p1", "p2"}, ids)
		return map[string]bool{"p2": true}, nil
	}
	svc, _, _ := newPropertyService(repo, favs)

	page, err := svc.ListProperties(context.Background(), makeUser("viewer", models.RoleUser), models.PropertyQuery{Page: 2, Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Properties, 2)
	assert.False(t, page.Properties[0].IsFavorited)
	assert.True(t, page.Properties[1].IsFavorited)
	require.NotNil(t, page.Properties[0].Agent)
	assert.Equal(t, agent.Name, page.Properties[0].Agent.Name)
	assert.Nil(t, page.Properties[1].Agent)

	assert.Equal(t, models.Pagination{Page: 2, Limit: 20, TotalCount: 45, TotalPages: 3, HasNextPage: true, HasPrevPage: true}, page.Pagination)
}

func TestListProperties_AnonymousPagesAreCached(t *testing.T) {
	useMiniredis(t)
	repo := noopPropertyRepo()
	calls := 0
	repo.listFn = func(context.Context, models.PropertyQuery) ([]models.Property, int64, error) {
		calls++
		return []models.Property{{ID: "p1", Title: "Cached"}}, 1, nil
	}
	svc, _, _ := newPropertyService(repo, noopFavoriteRepo())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		page, err := svc.ListProperties(ctx, nil, models.PropertyQuery{})
		require.NoError(t, err)
		require.Len(t, page.Properties, 1)
		assert.Equal(t, "Cached", page.Properties[0].Title)
	}
	assert.Equal(t, 1, calls)

	// A listing write drops every cached page.
	_, err := svc.CreateProperty(ctx, makeUser("agent-1", models.RoleUser), validInput())
	require.NoError(t, err)
	_, err = svc.ListProperties(ctx, nil, models.PropertyQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestListManagedProperties(t *testing.T) {
	tests := []struct {
		name        string
		actor       *models.User
		wantManaged string
	}{
		{"regular user scoped", makeUser("u1", models.RoleUser), "u1"},
		{"admin sees all", makeUser("a1", models.RoleAdmin), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopPropertyRepo()
			var got models.PropertyQuery
			repo.listFn = func(_ context.Context, q models.PropertyQuery) ([]models.Property, int64, error) {
				got = q
				return nil, 0, nil
			}
			svc, _, _ := newPropertyService(repo, noopFavoriteRepo())
			_, err := svc.ListManagedProperties(context.Background(), tt.actor, models.PropertyQuery{Filters: models.PropertyFilters{ManagedBy: "other"}})
			require.NoError(t, err)
			assert.Equal(t, tt.wantManaged, got.Filters.ManagedBy)
		})
	}

	t.Run("requires login", func(t *testing.T) {
		svc, _, _ := newPropertyService(noopPropertyRepo(), noopFavoriteRepo())
		_, err := svc.ListManagedProperties(context.Background(), nil, models.PropertyQuery{})
		assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	})
}

func TestGetProperty_IdentifierKinds(t *testing.T) {
	repo := noopPropertyRepo()
	var byID, bySlug string
	repo.getByIDFn = func(_ context.Context, id string) (*models.Property, error) {
		byID = id
		return &models.Property{ID: id, Title: "By id"}, nil
	}
	repo.getBySlugFn = func(_ context.Context, slug string) (*models.Property, error) {
		bySlug = slug
		return &models.Property{ID: "x", Slug: slug, Title: "By slug"}, nil
	}
	favs := noopFavoriteRepo()
	favs.favoritedIDsFn = func(context.Context, string, []string) (map[string]bool, error) {
		return map[string]bool{"x": true}, nil
	}
	svc, _, _ := newPropertyService(repo, favs)
	ctx := context.Background()

	id := "0190a4b2-7c3e-7def-8abc-0123456789ab"
	p, err := svc.GetProperty(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, id, byID)
	assert.Equal(t, "By id", p.Title)
	assert.False(t, p.IsFavorited)

	p, err = svc.GetProperty(ctx, makeUser("viewer", models.RoleUser), "cozy-cabin-1700000000000")
	require.NoError(t, err)
	assert.Equal(t, "cozy-cabin-1700000000000", bySlug)
	assert.True(t, p.IsFavorited)

	_, err = svc.GetProperty(ctx, nil, "  ")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestGetPropertyStats_Cached(t *testing.T) {
	useMiniredis(t)
	repo := noopPropertyRepo()
	calls := map[string]int{}
	repo.statsFn = func(_ context.Context, agentID string) (*models.PropertyStats, error) {
		calls[agentID]++
		return &models.PropertyStats{TotalProperties: 3, ActiveProperties: 2}, nil
	}
	svc, _, _ := newPropertyService(repo, noopFavoriteRepo())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		stats, err := svc.GetPropertyStats(ctx, "agent-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalProperties)
	}
	_, err := svc.GetPropertyStats(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"agent-1": 1, "": 1}, calls)
}
