package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/services"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	refreshPath   = "/api/auth"
)

type AuthHandler struct {
	authService *services.AuthService
	otpService  *services.OTPService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, otpService *services.OTPService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, otpService: otpService, cfg: cfg}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	h.setSessionCookies(c, resp)
	return ok(c, fiber.StatusCreated, "account created", resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	h.setSessionCookies(c, resp)
	return ok(c, fiber.StatusOK, "signed in", resp)
}

// Refresh accepts the refresh token from the body or the refresh cookie.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, errInvalidBody)
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken = c.Cookies(refreshCookie)
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		h.clearSessionCookies(c)
		return fail(c, err)
	}
	h.setSessionCookies(c, resp)
	return ok(c, fiber.StatusOK, "session refreshed", resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, errInvalidBody)
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken = c.Cookies(refreshCookie)
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return fail(c, err)
	}
	h.clearSessionCookies(c)
	return ok(c, fiber.StatusOK, "signed out", nil)
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	var req dto.DeleteAccountRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, errInvalidBody)
		}
	}

	if err := h.authService.DeleteAccount(c.UserContext(), userID, req.Password); err != nil {
		return fail(c, err)
	}
	h.clearSessionCookies(c)
	return ok(c, fiber.StatusOK, "account deleted", nil)
}

func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req dto.OTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	if err := h.otpService.Send(c.UserContext(), &req); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusAccepted, "code sent", nil)
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.OTPVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	resp, err := h.authService.SignInWithOTP(c.UserContext(), &req)
	if err != nil {
		return fail(c, err)
	}
	h.setSessionCookies(c, resp)
	return ok(c, fiber.StatusOK, "signed in", resp)
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	if err := h.authService.ResetPassword(c.UserContext(), &req); err != nil {
		return fail(c, err)
	}
	h.clearSessionCookies(c)
	return ok(c, fiber.StatusOK, "password updated", nil)
}

func (h *AuthHandler) OAuth(c *fiber.Ctx) error {
	var req dto.OAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	resp, err := h.authService.OAuthSignIn(c.UserContext(), c.Params("provider"), &req)
	if err != nil {
		return fail(c, err)
	}
	h.setSessionCookies(c, resp)
	return ok(c, fiber.StatusOK, "signed in", resp)
}

func (h *AuthHandler) setSessionCookies(c *fiber.Ctx, resp *dto.AuthResponse) {
	now := time.Now()
	c.Cookie(&fiber.Cookie{
		Name:     accessCookie,
		Value:    resp.AccessToken,
		Path:     "/",
		Expires:  now.Add(h.cfg.JWTAccessExpiry),
		Secure:   h.cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    resp.RefreshToken,
		Path:     refreshPath,
		Expires:  now.Add(h.cfg.JWTRefreshExpiry),
		Secure:   h.cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookies(c *fiber.Ctx) {
	past := time.Unix(0, 0)
	for name, path := range map[string]string{accessCookie: "/", refreshCookie: refreshPath} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			Expires:  past,
			Secure:   h.cfg.CookieSecure,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}
