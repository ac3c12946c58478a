package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"signflow/internal/domain/entity"
)

// HeaderUserID carries the authenticated user forwarded by the gateway
const HeaderUserID = "X-User-ID"

// statusFor maps domain error codes onto HTTP statuses
func statusFor(code entity.ErrorCode) int {
	switch code {
	case entity.ErrorCodeNotFound:
		return fiber.StatusNotFound
	case entity.ErrorCodeInvalidState:
		return fiber.StatusConflict
	case entity.ErrorCodeValidation:
		return fiber.StatusUnprocessableEntity
	case entity.ErrorCodeAuthentication:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, logger *zap.Logger, err error, action string) error {
	var appErr *entity.AppError
	if !errors.As(err, &appErr) {
		logger.Error("Failed to "+action, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse("INTERNAL_ERROR", "Internal server error"),
		)
	}

	logger.Info("Request rejected", zap.String("action", action), zap.Error(err))
	return c.Status(statusFor(appErr.Code)).JSON(
		entity.NewErrorResponse(string(appErr.Code), appErr.Message),
	)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(
		entity.NewErrorResponse("BAD_REQUEST", message),
	)
}

// requestMetadata collects the requester details recorded in audit logs
func requestMetadata(c *fiber.Ctx) entity.RequestMetadata {
	meta := entity.RequestMetadata{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
	if id, ok := c.Locals("requestid").(string); ok {
		meta.RequestID = id
	}
	if raw := c.Get(HeaderUserID); raw != "" {
		if userID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			meta.UserID = &userID
		}
	}
	return meta
}
