package controller

import (
	"errors"
	"time"

	"ai-chat-gateway/internal/config"
	"ai-chat-gateway/internal/pkg/logger"
	"ai-chat-gateway/internal/pkg/serverutils"
	"ai-chat-gateway/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
}

type oauthController struct {
	service    service.IOAuthService
	logger     logger.ILogger
	clientURL  string
	sessionTTL time.Duration
	secure     bool
}

func NewOAuthController(svc service.IOAuthService, cfg *config.Config, log logger.ILogger) IOAuthController {
	return &oauthController{
		service:    svc,
		logger:     log,
		clientURL:  cfg.App.ClientURL,
		sessionTTL: cfg.App.SessionTTL,
		secure:     cfg.App.Environment == "production",
	}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	auth := r.Group("/auth")
	auth.Get("/google", c.login)
	auth.Get("/google/callback", c.callback)
	auth.Post("/logout", c.logout)
}

// login redirects the browser into the provider's consent screen. An
// optional ?redirect= names the client page to land on afterwards.
func (c *oauthController) login(ctx *fiber.Ctx) error {
	loginURL, err := c.service.GetLoginURL(ctx.Query("redirect"))
	if err != nil {
		c.logger.Error("AUTH", "Building login URL failed", map[string]interface{}{"error": err.Error()})
		return ctx.Status(fiber.StatusInternalServerError).JSON(
			serverutils.ErrorResponse(fiber.StatusInternalServerError, "Could not start sign-in"))
	}
	return ctx.Redirect(loginURL, fiber.StatusTemporaryRedirect)
}

// callback lands the provider redirect. Failures bounce back to the client
// app with an error code in the query string; success sets the session
// cookie first.
func (c *oauthController) callback(ctx *fiber.Ctx) error {
	state := ctx.Query("state")
	code := ctx.Query("code")

	if code == "" {
		return ctx.Redirect(c.clientURL+"?error=no_code", fiber.StatusTemporaryRedirect)
	}

	resp, err := c.service.HandleCallback(ctx.Context(), state, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidState):
			return ctx.Redirect(c.clientURL+"?error=invalid_state", fiber.StatusTemporaryRedirect)
		case errors.Is(err, service.ErrNotAuthorized):
			return ctx.Redirect(c.clientURL+"?error=access_denied", fiber.StatusTemporaryRedirect)
		default:
			return ctx.Redirect(c.clientURL+"?error=auth_failed", fiber.StatusTemporaryRedirect)
		}
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     serverutils.SessionCookieName,
		Value:    resp.AccessToken,
		Expires:  time.Now().Add(c.sessionTTL),
		HTTPOnly: true,
		Secure:   c.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})

	target := c.clientURL + "?login=success"
	if resp.Redirect != "" {
		target = c.clientURL + resp.Redirect
	}
	return ctx.Redirect(target, fiber.StatusTemporaryRedirect)
}

// logout only clears the cookie; the server-side session ages out on its
// own TTL.
func (c *oauthController) logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     serverutils.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   c.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Logged out"))
}
