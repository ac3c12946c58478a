package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/usecase"
)

// SigningHandler serves the recipient-facing endpoints addressed by recipient token
type SigningHandler struct {
	signing usecase.SigningUsecase
	logger  *zap.Logger
}

func NewSigningHandler(signing usecase.SigningUsecase, logger *zap.Logger) *SigningHandler {
	return &SigningHandler{
		signing: signing,
		logger:  logger,
	}
}

// Complete godoc
// @Summary Complete a recipient's action
// @Description Marks the recipient as signed, resolves auto-sign fields and advances the signing order
// @Tags signing
// @Accept json
// @Produce json
// @Param token path string true "Recipient token"
// @Param request body entity.CompleteRecipientRequest true "Completion"
// @Success 200 {object} entity.APIResponse
// @Failure 401 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Failure 409 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Router /api/v1/sign/{token}/complete [post]
func (h *SigningHandler) Complete(c *fiber.Ctx) error {
	var req entity.CompleteRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Error("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}
	if req.EnvelopeID <= 0 {
		return badRequest(c, "envelope_id is required")
	}

	result, err := h.signing.CompleteRecipientAction(c.UserContext(), c.Params("token"), &req, requestMetadata(c))
	if err != nil {
		return respondError(c, h.logger, err, "complete recipient action")
	}

	return c.JSON(entity.NewSuccessResponse(result, "Recipient action completed"))
}

// Reject godoc
// @Summary Reject an envelope
// @Tags signing
// @Accept json
// @Produce json
// @Param token path string true "Recipient token"
// @Param request body entity.RejectRecipientRequest true "Rejection"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Failure 409 {object} entity.APIResponse
// @Router /api/v1/sign/{token}/reject [post]
func (h *SigningHandler) Reject(c *fiber.Ctx) error {
	var req entity.RejectRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Error("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}

	snapshot, err := h.signing.RejectRecipient(c.UserContext(), c.Params("token"), &req, requestMetadata(c))
	if err != nil {
		return respondError(c, h.logger, err, "reject envelope")
	}

	return c.JSON(entity.NewSuccessResponse(snapshot, "Envelope rejected"))
}

// RequestSecondFactor godoc
// @Summary Send a one-time code to the recipient
// @Tags signing
// @Produce json
// @Param token path string true "Recipient token"
// @Success 202 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Router /api/v1/sign/{token}/2fa [post]
func (h *SigningHandler) RequestSecondFactor(c *fiber.Ctx) error {
	if err := h.signing.RequestSecondFactor(c.UserContext(), c.Params("token"), requestMetadata(c)); err != nil {
		return respondError(c, h.logger, err, "request second factor")
	}

	return c.Status(fiber.StatusAccepted).JSON(entity.NewSuccessResponse(nil, "Verification code sent"))
}
