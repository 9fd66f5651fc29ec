package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// IdentityHandler exposes registration and session endpoints.
type IdentityHandler struct {
	auth *service.AuthService
}

// NewIdentityHandler constructs handler.
func NewIdentityHandler(authService *service.AuthService) *IdentityHandler {
	return &IdentityHandler{auth: authService}
}

// Register handles POST /register.
func (h *IdentityHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    dto.NewUserResponse(user),
	})
}

// Login handles POST /login.
func (h *IdentityHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    dto.NewUserResponse(user),
	})
}

// Logout handles POST /logout. It runs behind the auth middleware, so the
// token is known to be live.
func (h *IdentityHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), c.Get(fiber.HeaderAuthorization)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

// Validate handles GET /validate.
func (h *IdentityHandler) Validate(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    dto.NewUserResponse(user),
	})
}
