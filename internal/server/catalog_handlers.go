package server

import (
	"strings"

	"tubeclone/internal/catalog"
	"tubeclone/internal/featureflags"
	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/routes"
	"tubeclone/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ListVideos handles GET /api/videos
// @Summary List videos by category
// @Description Generated batch for a category; history, watch-later and liked-videos read the client's lists
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category id" default(all)
// @Success 200 {array} models.Video
// @Router /videos [get]
func (s *Server) ListVideos(c *fiber.Ctx) error {
	ctx := s.clientContext(c)
	kv := storage.Namespace(s.store, middleware.ClientID(c))

	videos, err := s.catalog.ListByCategory(ctx, kv, c.Query("category", catalog.CategoryAll))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(videos)
}

// GetVideo handles GET /api/videos/:id
// @Summary Video detail
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path string true "Video id"
// @Success 200 {object} models.Video
// @Failure 404 {object} models.ErrorResponse
// @Router /videos/{id} [get]
func (s *Server) GetVideo(c *fiber.Ctx) error {
	video, err := s.catalog.GetByID(s.clientContext(c), c.Params("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(video)
}

// Search handles GET /api/search
// @Summary Search videos
// @Description Case-insensitive match on title or channel; a blank query returns an empty list at once
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param q query string false "Query"
// @Success 200 {array} models.Video
// @Router /search [get]
func (s *Server) Search(c *fiber.Ctx) error {
	videos, err := s.catalog.Search(s.clientContext(c), c.Query("q"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(videos)
}

// GetCategories handles GET /api/categories
// @Summary Explore categories
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Categories())
}

// ResolveRoute handles GET /api/routes/resolve
// @Summary Resolve a client path
// @Tags routes
// @Produce json
// @Param path query string true "Client path, optionally with its query string"
// @Success 200 {object} routes.View
// @Router /routes/resolve [get]
func (s *Server) ResolveRoute(c *fiber.Ctx) error {
	v := routes.Resolve(c.Query("path", "/"), "")
	if v.Kind == routes.Shorts && !s.featureFlags.Enabled(featureflags.Shorts, "") {
		v = routes.View{Kind: routes.NotFound, Path: v.Path}
	}
	return c.JSON(v)
}

// RecordHistory handles POST /api/history
// @Summary Record a watched video
// @Description Moves the video to the front of the history; allowed while signed out
// @Tags library
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Video true "Watched video"
// @Success 200 {array} models.ListEntry
// @Failure 400 {object} models.ErrorResponse
// @Router /history [post]
func (s *Server) RecordHistory(c *fiber.Ctx) error {
	var video models.Video
	if err := c.BodyParser(&video); err != nil || strings.TrimSpace(video.ID) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A video with an id is required"))
	}

	sc, err := s.openScope(c)
	if err != nil {
		return nil
	}
	defer sc.close()

	entries, err := sc.library.RecordHistory(sc.ctx, video)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(entries)
}

// GetLibraryList handles GET /api/library/:list
// @Summary Read a persisted list
// @Tags library
// @Produce json
// @Security BearerAuth
// @Param list path string true "history, watch-later or liked-videos"
// @Success 200 {array} models.ListEntry
// @Failure 404 {object} models.ErrorResponse
// @Router /library/{list} [get]
func (s *Server) GetLibraryList(c *fiber.Ctx) error {
	kv := storage.Namespace(s.store, middleware.ClientID(c))
	entries, err := catalog.ReadList(c.UserContext(), kv, c.Params("list"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(entries)
}

// ToggleLike handles POST /api/videos/:id/like
// @Summary Toggle a like
// @Description Adds the video to liked-videos or removes it; requires a signed-in session
// @Tags library
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Video id"
// @Param request body models.Video false "Video record; fetched by id when omitted"
// @Success 200 {object} object{liked=bool}
// @Failure 401 {object} models.ErrorResponse
// @Router /videos/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	return s.toggleList(c, "like videos", func(sc *scope, v models.Video) (fiber.Map, error) {
		liked, err := sc.library.ToggleLiked(sc.ctx, v)
		return fiber.Map{"liked": liked}, err
	})
}

// ToggleSave handles POST /api/videos/:id/save
// @Summary Toggle watch later
// @Description Adds the video to watch-later or removes it; requires a signed-in session
// @Tags library
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Video id"
// @Param request body models.Video false "Video record; fetched by id when omitted"
// @Success 200 {object} object{saved=bool}
// @Failure 401 {object} models.ErrorResponse
// @Router /videos/{id}/save [post]
func (s *Server) ToggleSave(c *fiber.Ctx) error {
	return s.toggleList(c, "save videos", func(sc *scope, v models.Video) (fiber.Map, error) {
		saved, err := sc.library.ToggleWatchLater(sc.ctx, v)
		return fiber.Map{"saved": saved}, err
	})
}

func (s *Server) toggleList(c *fiber.Ctx, action string, apply func(*scope, models.Video) (fiber.Map, error)) error {
	id := c.Params("id")

	sc, err := s.openScope(c)
	if err != nil {
		return nil
	}
	defer sc.close()

	// Refuse before fetching so a signed-out caller does not wait on the catalog.
	if _, err := sc.session.RequireAuthenticated(sc.ctx, action); err != nil {
		return respondErr(c, err)
	}

	var video models.Video
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&video); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}
	if video.ID != id {
		if video, err = s.catalog.GetByID(sc.ctx, id); err != nil {
			return respondErr(c, err)
		}
	}

	body, err := apply(sc, video)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(body)
}
