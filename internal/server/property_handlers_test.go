package server

import (
	"net/http"
	"strings"
	"testing"

	"earthhome/internal/models"
	"earthhome/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingBody(title string) map[string]any {
	return map[string]any{
		"title":        title,
		"propertyType": "house",
		"location":     "Karen, Nairobi",
		"city":         "Nairobi",
		"price":        250000,
		"beds":         4,
		"amenities":    []string{"pool", "garden"},
	}
}

func TestCreatePropertyHandler(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.signUp(t, "Grace Muthoni", "grace@example.com")

	tests := []struct {
		name           string
		token          string
		body           map[string]any
		expectedStatus int
	}{
		{"anonymous", "", listingBody("Garden House"), http.StatusUnauthorized},
		{"missing required", token, map[string]any{"title": "Only a title"}, http.StatusBadRequest},
		{"bad enum", token, map[string]any{"title": "X", "propertyType": "castle", "location": "Y"}, http.StatusBadRequest},
		{"negative price", token, map[string]any{"title": "X", "propertyType": "house", "location": "Y", "price": -1}, http.StatusBadRequest},
		{"success", token, listingBody("Garden House"), http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/properties", tt.body, tt.token)
			require.Equal(t, tt.expectedStatus, resp.StatusCode, body)
			if tt.expectedStatus != http.StatusCreated {
				assert.Equal(t, false, body["success"])
				return
			}
			assert.Equal(t, "Property created successfully", body["message"])
			property := body["property"].(map[string]any)
			assert.True(t, strings.HasPrefix(property["slug"].(string), "garden-house-"))
			assert.Equal(t, userID, property["agentId"])
			assert.Equal(t, userID, property["ownerId"])
			assert.Equal(t, "active", property["status"])
		})
	}
}

func TestGetPropertiesHandler(t *testing.T) {
	env := newTestEnv(t)
	agent := testutil.CreateUser(t, env.db, "agent")
	testutil.CreateProperty(t, env.db, "Lake View", agent.ID, func(p *models.Property) {
		price := 300
		p.Price = &price
	})
	testutil.CreateProperty(t, env.db, "City Loft", agent.ID, func(p *models.Property) {
		price := 100
		p.Price = &price
	})
	testutil.CreateProperty(t, env.db, "Hidden Draft", agent.ID, func(p *models.Property) {
		p.Status = models.PropertyStatusDraft
	})

	t.Run("public list hides drafts", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/properties?sortBy=price&sortOrder=asc", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		props := body["properties"].([]any)
		require.Len(t, props, 2)
		assert.Equal(t, "City Loft", props[0].(map[string]any)["title"])
		assert.Equal(t, agent.ID, props[0].(map[string]any)["agent"].(map[string]any)["id"])

		pagination := body["pagination"].(map[string]any)
		assert.EqualValues(t, 2, pagination["totalCount"])
		assert.EqualValues(t, 1, pagination["totalPages"])
		assert.Equal(t, false, pagination["hasNextPage"])
	})

	t.Run("status filter ignored for non-admins", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/properties?status=draft", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		for _, p := range body["properties"].([]any) {
			assert.Equal(t, "active", p.(map[string]any)["status"])
		}
	})

	t.Run("admin can filter by status", func(t *testing.T) {
		adminID, token := env.signUp(t, "Admin Person", "admin@example.com")
		env.makeAdmin(t, adminID)
		resp, body := env.do(t, http.MethodGet, "/api/properties?status=draft", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		props := body["properties"].([]any)
		require.Len(t, props, 1)
		assert.Equal(t, "Hidden Draft", props[0].(map[string]any)["title"])
	})

	t.Run("pagination", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/properties?limit=1&page=1", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, body["properties"].([]any), 1)
		pagination := body["pagination"].(map[string]any)
		assert.EqualValues(t, 2, pagination["totalPages"])
		assert.Equal(t, true, pagination["hasNextPage"])
		assert.Equal(t, false, pagination["hasPrevPage"])
	})

	t.Run("page far past the end", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/properties?page=9223372036854775807", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, body["properties"])
		pagination := body["pagination"].(map[string]any)
		assert.EqualValues(t, models.MaxPage(models.DefaultPageLimit), pagination["page"])
		assert.Equal(t, false, pagination["hasNextPage"])
	})

	t.Run("malformed filter", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/properties?beds=lots", nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid beds", body["message"])
	})
}

func TestGetPropertyHandler(t *testing.T) {
	env := newTestEnv(t)
	agent := testutil.CreateUser(t, env.db, "agent")
	p := testutil.CreateProperty(t, env.db, "Seaside Villa", agent.ID)

	tests := []struct {
		name           string
		identifier     string
		expectedStatus int
	}{
		{"by id", p.ID, http.StatusOK},
		{"by slug", p.Slug, http.StatusOK},
		{"unknown slug", "no-such-listing", http.StatusNotFound},
		{"unknown id", "0193a6a1-0000-7000-8000-000000000000", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, "/api/properties/"+tt.identifier, nil, "")
			require.Equal(t, tt.expectedStatus, resp.StatusCode, body)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, p.ID, body["property"].(map[string]any)["id"])
			} else {
				assert.Equal(t, "Property not found", body["message"])
			}
		})
	}
}

func TestUpdateAndDeletePropertyHandlers(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.signUp(t, "Hassan Ali", "hassan@example.com")
	_, otherToken := env.signUp(t, "Ivy Chebet", "ivy@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/properties", listingBody("Old Title"), ownerToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	property := body["property"].(map[string]any)
	id := property["id"].(string)
	oldSlug := property["slug"].(string)

	t.Run("other user cannot update", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/api/properties/"+id, map[string]any{"title": "Hijacked"}, otherToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "You don't have permission to update this property", body["message"])
	})

	t.Run("missing property", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/api/properties/0193a6a1-0000-7000-8000-000000000000", map[string]any{"beds": 2}, ownerToken)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Property not found", body["message"])
	})

	t.Run("owner keeps slug when title unchanged", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/api/properties/"+id, map[string]any{"beds": 5}, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.Equal(t, "Property updated successfully", body["message"])
		updated := body["property"].(map[string]any)
		assert.Equal(t, oldSlug, updated["slug"])
		assert.EqualValues(t, 5, updated["beds"])
	})

	t.Run("title change regenerates slug", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/api/properties/"+id, map[string]any{"title": "New Title"}, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		slug := body["property"].(map[string]any)["slug"].(string)
		assert.NotEqual(t, oldSlug, slug)
		assert.True(t, strings.HasPrefix(slug, "new-title-"))
	})

	t.Run("other user cannot delete", func(t *testing.T) {
		resp, body := env.do(t, http.MethodDelete, "/api/properties/"+id, nil, otherToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "You don't have permission to delete this property", body["message"])
	})

	t.Run("owner deletes listing and media", func(t *testing.T) {
		require.NoError(t, env.store.Put(t.Context(), "properties/new-title/a-photo.jpg", []byte("x"), "image/jpeg"))
		require.NoError(t, env.store.Put(t.Context(), "documents/new-title/b-deed.pdf", []byte("x"), "application/pdf"))
		require.NoError(t, env.store.Put(t.Context(), "properties/other-listing/c.jpg", []byte("x"), "image/jpeg"))

		resp, body := env.do(t, http.MethodDelete, "/api/properties/"+id, nil, ownerToken)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.Equal(t, "Property and associated files deleted successfully", body["message"])
		assert.Equal(t, []string{"properties/other-listing/c.jpg"}, env.store.Keys())

		resp, _ = env.do(t, http.MethodGet, "/api/properties/"+id, nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDashboardHandlers(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.signUp(t, "Joy Kamau", "joy@example.com")
	other := testutil.CreateUser(t, env.db, "other")

	testutil.CreateProperty(t, env.db, "Mine Active", userID)
	testutil.CreateProperty(t, env.db, "Mine Draft", userID, func(p *models.Property) {
		p.Status = models.PropertyStatusDraft
	})
	testutil.CreateProperty(t, env.db, "Owned By Me", other.ID, func(p *models.Property) {
		p.OwnerID = &userID
		p.Status = models.PropertyStatusSold
	})
	testutil.CreateProperty(t, env.db, "Not Mine", other.ID)

	resp, body := env.do(t, http.MethodGet, "/api/dashboard/properties", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/dashboard/properties", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	titles := map[string]bool{}
	for _, p := range body["properties"].([]any) {
		titles[p.(map[string]any)["title"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"Mine Active": true, "Mine Draft": true, "Owned By Me": true}, titles)

	resp, body = env.do(t, http.MethodGet, "/api/dashboard/stats", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["totalProperties"])
	assert.EqualValues(t, 1, stats["draftProperties"])

	resp, _ = env.do(t, http.MethodGet, "/api/admin/stats", nil, token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	env.makeAdmin(t, userID)
	resp, body = env.do(t, http.MethodGet, "/api/admin/stats", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.EqualValues(t, 4, body["stats"].(map[string]any)["totalProperties"])
}
