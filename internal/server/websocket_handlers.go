package server

import (
	"errors"

	"earthhome/internal/featureflags"
	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// listingFeedEnabled reports whether the feed is open to userID. The feed is
// on unless listing_feed is configured.
func (s *Server) listingFeedEnabled(userID string) bool {
	if _, configured := s.featureFlags.Raw()[featureflags.ListingFeed]; !configured {
		return true
	}
	return s.featureFlags.Enabled(featureflags.ListingFeed, userID)
}

// ListingFeedUpgrade rejects non-websocket requests and attaches the viewer
// when the request carries a valid session.
func (s *Server) ListingFeedUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("Websocket upgrade required"))
	}

	if _, err := middleware.ExtractToken(c); err == nil {
		if _, err := s.authenticate(c); err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
	}

	userID, _ := c.Locals("userID").(string)
	if !s.listingFeedEnabled(userID) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Listing feed is not available"))
	}
	return c.Next()
}

// ListingFeedHandler handles GET /ws/listings
// @Summary Listing change feed
// @Description Websocket stream of {type, propertyId, slug, at} events for created, updated and deleted listings
// @Tags realtime
// @Success 101
// @Router /ws/listings [get]
func (s *Server) ListingFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		viewerID, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(viewerID, conn)
		if err != nil {
			reason := "unavailable"
			switch {
			case errors.Is(err, notifications.ErrViewerConnLimit), errors.Is(err, notifications.ErrServerConnLimit):
				reason = "too many connections"
			case errors.Is(err, notifications.ErrHubClosed):
				reason = "server shutting down"
			}
			middleware.Logger.Warn("listing feed registration refused", "viewer_id", viewerID, "error", err)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("listing feed connected", "viewer_id", viewerID)
		go client.WritePump()
		client.ReadPump()
	})
}
