package server

import (
	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RegisterClient handles POST /api/clients
// @Summary Register a client
// @Description Mint a client id and the token that scopes its storage
// @Tags clients
// @Produce json
// @Success 201 {object} object{client_id=string,token=string}
// @Failure 429 {object} object{error=string}
// @Router /clients [post]
func (s *Server) RegisterClient(c *fiber.Ctx) error {
	clientID := uuid.NewString()
	token, err := s.tokens.Issue(clientID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	middleware.Logger.InfoContext(c.UserContext(), "client registered", "client_id", clientID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"client_id": clientID,
		"token":     token,
	})
}

// GetSession handles GET /api/session
// @Summary Current session
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SessionState
// @Router /session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	sc, err := s.openScope(c)
	if err != nil {
		return nil
	}
	defer sc.close()
	return c.JSON(sc.session.State())
}

// SignIn handles POST /api/session/signin
// @Summary Sign in
// @Description Any non-empty email and password are accepted; the username is the email local part
// @Tags session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{email=string,password=string} true "Sign-in request"
// @Success 200 {object} models.SessionState
// @Failure 400 {object} models.ErrorResponse
// @Router /session/signin [post]
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	sc, err := s.openScope(c)
	if err != nil {
		return nil
	}
	defer sc.close()

	if _, err := sc.session.SignIn(sc.ctx, req.Email, req.Password); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(sc.session.State())
}

// SignUp handles POST /api/session/signup
// @Summary Sign up
// @Tags session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{email=string,username=string,password=string} true "Sign-up request"
// @Success 201 {object} models.SessionState
// @Failure 400 {object} models.ErrorResponse
// @Router /session/signup [post]
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	sc, err := s.openScope(c)
	if err != nil {
		return nil
	}
	defer sc.close()

	if _, err := sc.session.SignUp(sc.ctx, req.Email, req.Username, req.Password); err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sc.session.State())
}

// SignOut handles POST /api/session/signout
// @Summary Sign out
// @Tags session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SessionState
// @Router /session/signout [post]
func (s *Server) SignOut(c *fiber.Ctx) error {
	sc, err := s.openScope(c)
	if err != nil {
		return nil
	}
	defer sc.close()

	sc.session.SignOut(sc.ctx)
	return c.JSON(sc.session.State())
}

// UpdateProfile handles PUT /api/session/profile
// @Summary Update profile
// @Description Replaces username, bio and avatar; omitted bio or avatarUrl are cleared
// @Tags session
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{username=string,bio=string,avatarUrl=string} true "Profile"
// @Success 200 {object} models.SessionState
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /session/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Username  string  `json:"username"`
		Bio       *string `json:"bio"`
		AvatarURL *string `json:"avatarUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	sc, err := s.openScope(c)
	if err != nil {
		return nil
	}
	defer sc.close()

	_, err = sc.session.UpdateProfile(sc.ctx, session.ProfileUpdate{
		Username:  req.Username,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(sc.session.State())
}
