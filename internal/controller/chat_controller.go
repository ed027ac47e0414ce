package controller

import (
	"errors"

	"ai-chat-gateway/internal/dto"
	"ai-chat-gateway/internal/pkg/logger"
	"ai-chat-gateway/internal/pkg/serverutils"
	"ai-chat-gateway/internal/service"
	"ai-chat-gateway/pkg/llm"
	"ai-chat-gateway/pkg/usage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
}

type chatController struct {
	service   service.IChatService
	validator *validator.Validate
	logger    logger.ILogger
}

func NewChatController(svc service.IChatService, validate *validator.Validate, log logger.ILogger) IChatController {
	return &chatController{
		service:   svc,
		validator: validate,
		logger:    log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Get("/models", c.listModels)
	r.Get("/usage", c.getUsage)

	chat := r.Group("/chat")
	chat.Post("/", c.sendChat)
	chat.Get("/history", c.getHistory)
	chat.Post("/new-session", c.newSession)
}

func (c *chatController) sendChat(ctx *fiber.Ctx) error {
	sessionID, _ := ctx.Locals(serverutils.LocalsSessionID).(string)

	req := new(dto.SendChatRequest)
	if err := ctx.BodyParser(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid request body"))
	}
	if err := c.validator.Struct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(
			serverutils.ErrorResponse(fiber.StatusBadRequest, "message and model are required"))
	}

	resp, err := c.service.SendChat(ctx.Context(), sessionID, req)
	if err != nil {
		return c.mapChatError(ctx, err)
	}
	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse(resp))
}

func (c *chatController) getHistory(ctx *fiber.Ctx) error {
	sessionID, _ := ctx.Locals(serverutils.LocalsSessionID).(string)

	resp, err := c.service.GetChatHistory(ctx.Context(), sessionID)
	if err != nil {
		return c.mapChatError(ctx, err)
	}
	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse(resp))
}

func (c *chatController) newSession(ctx *fiber.Ctx) error {
	sessionID, _ := ctx.Locals(serverutils.LocalsSessionID).(string)

	resp, err := c.service.NewSession(ctx.Context(), sessionID)
	if err != nil {
		return c.mapChatError(ctx, err)
	}

	// The rotated session means a rotated cookie.
	ctx.Cookie(&fiber.Cookie{
		Name:     serverutils.SessionCookieName,
		Value:    resp.AccessToken,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse(resp))
}

func (c *chatController) getUsage(ctx *fiber.Ctx) error {
	sessionID, _ := ctx.Locals(serverutils.LocalsSessionID).(string)

	resp, err := c.service.GetUsage(ctx.Context(), sessionID)
	if err != nil {
		return c.mapChatError(ctx, err)
	}
	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse(resp))
}

func (c *chatController) listModels(ctx *fiber.Ctx) error {
	resp, err := c.service.ListModels(ctx.Context())
	if err != nil {
		return c.mapChatError(ctx, err)
	}
	return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse(resp))
}

// mapChatError translates service failures into the HTTP surface: quota
// hits become 429 with the ceiling attached, upstream trouble becomes
// 502/504, a vanished session means signing in again.
func (c *chatController) mapChatError(ctx *fiber.Ctx, err error) error {
	var quotaErr *usage.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return ctx.Status(fiber.StatusTooManyRequests).JSON(serverutils.ErrorResponseWithData(
			fiber.StatusTooManyRequests,
			quotaErr.Error(),
			dto.QuotaExceededData{Reason: quotaErr.Reason, Used: quotaErr.Used, Limit: quotaErr.Limit},
		))
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ctx.Status(fiber.StatusUnauthorized).JSON(
			serverutils.ErrorResponse(fiber.StatusUnauthorized, "Session expired, please sign in again"))
	case errors.Is(err, llm.ErrTimeout):
		return ctx.Status(fiber.StatusGatewayTimeout).JSON(
			serverutils.ErrorResponse(fiber.StatusGatewayTimeout, "The model took too long to answer"))
	case errors.Is(err, llm.ErrMalformedResponse):
		return ctx.Status(fiber.StatusBadGateway).JSON(
			serverutils.ErrorResponse(fiber.StatusBadGateway, "The model returned an unusable answer"))
	}

	var rejected *llm.RejectedError
	if errors.As(err, &rejected) {
		return ctx.Status(fiber.StatusBadGateway).JSON(
			serverutils.ErrorResponse(fiber.StatusBadGateway, "The model service rejected the request"))
	}

	c.logger.Error("CHAT", "Unhandled service error", map[string]interface{}{"error": err.Error()})
	return ctx.Status(fiber.StatusInternalServerError).JSON(
		serverutils.ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
}
