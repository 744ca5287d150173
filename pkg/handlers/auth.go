package handlers

import (
	"github.com/gofiber/fiber/v2"

	"codearena/pkg/apperr"
	"codearena/pkg/middleware"
	"codearena/pkg/models"
	"codearena/pkg/services"
)

type AuthHandler struct {
	auth services.AuthService
}

func NewAuth(auth services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (ah *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	resp, err := ah.auth.Register(req, c.Get("User-Agent"), c.IP())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (ah *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	resp, err := ah.auth.Login(req, c.Get("User-Agent"), c.IP())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (ah *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.BodyParser(&req)
	if req.RefreshToken == "" {
		return apperr.Validation("refresh token is required")
	}
	resp, err := ah.auth.Refresh(req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Verify lets frontends check a token without attaching it as a bearer
// header. An invalid or expired token surfaces as the usual 401.
func (ah *AuthHandler) Verify(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	_ = c.BodyParser(&req)
	if req.Token == "" {
		return apperr.Validation("token is required")
	}
	user, err := ah.auth.VerifyToken(req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"valid": true, "user": user})
}

func (ah *AuthHandler) Logout(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.BodyParser(&req)
	if req.RefreshToken == "" {
		return apperr.Validation("refresh token is required")
	}
	if err := ah.auth.Logout(req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (ah *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if err := ah.auth.LogoutAll(user.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (ah *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	profile, err := ah.auth.Profile(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": profile})
}

func (ah *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	var req models.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	updated, err := ah.auth.UpdateProfile(user.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": updated})
}

func (ah *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	var req models.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	if err := ah.auth.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password changed, other sessions revoked"})
}

func (ah *AuthHandler) Sessions(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	sessions, err := ah.auth.Sessions(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (ah *AuthHandler) PublicProfile(c *fiber.Ctx) error {
	profile, err := ah.auth.PublicProfile(c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": profile})
}
