package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"signflow/internal/domain/entity"
	"signflow/internal/usecase"
)

type EnvelopeHandler struct {
	envelopes usecase.EnvelopeUsecase
	signing   usecase.SigningUsecase
	logger    *zap.Logger
}

func NewEnvelopeHandler(envelopes usecase.EnvelopeUsecase, signing usecase.SigningUsecase, logger *zap.Logger) *EnvelopeHandler {
	return &EnvelopeHandler{
		envelopes: envelopes,
		signing:   signing,
		logger:    logger,
	}
}

// CreateEnvelope godoc
// @Summary Create a draft envelope
// @Description Upload a base64 PDF with its recipients and fields. The envelope starts as DRAFT.
// @Tags envelopes
// @Accept json
// @Produce json
// @Param request body entity.CreateEnvelopeRequest true "Envelope"
// @Success 201 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Router /api/v1/envelopes [post]
func (h *EnvelopeHandler) CreateEnvelope(c *fiber.Ctx) error {
	var req entity.CreateEnvelopeRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Error("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}

	snapshot, err := h.envelopes.CreateEnvelope(c.UserContext(), &req, requestMetadata(c))
	if err != nil {
		return respondError(c, h.logger, err, "create envelope")
	}

	return c.Status(fiber.StatusCreated).JSON(entity.NewSuccessResponse(snapshot, "Envelope created successfully"))
}

// GetEnvelope godoc
// @Summary Get an envelope
// @Description Returns the envelope with its recipients and fields
// @Tags envelopes
// @Produce json
// @Param id path int true "Envelope ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/envelopes/{id} [get]
func (h *EnvelopeHandler) GetEnvelope(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "Invalid envelope id")
	}

	snapshot, err := h.envelopes.GetEnvelope(c.UserContext(), int64(id))
	if err != nil {
		return respondError(c, h.logger, err, "get envelope")
	}

	return c.JSON(entity.NewSuccessResponse(snapshot, "Envelope retrieved successfully"))
}

// SendDocument godoc
// @Summary Send an envelope for signing
// @Description Moves a DRAFT envelope to PENDING and notifies the recipients whose turn it is
// @Tags envelopes
// @Produce json
// @Param id path int true "Envelope ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Failure 409 {object} entity.APIResponse
// @Router /api/v1/envelopes/{id}/send [post]
func (h *EnvelopeHandler) SendDocument(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "Invalid envelope id")
	}

	result, err := h.signing.SendDocument(c.UserContext(), int64(id), requestMetadata(c))
	if err != nil {
		return respondError(c, h.logger, err, "send document")
	}

	return c.JSON(entity.NewSuccessResponse(result, "Document sent successfully"))
}

// ListAuditLogs godoc
// @Summary List audit logs
// @Description Returns the envelope's audit trail, oldest first
// @Tags envelopes
// @Produce json
// @Param id path int true "Envelope ID"
// @Param limit query int false "Maximum entries" default(100)
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/envelopes/{id}/audit-logs [get]
func (h *EnvelopeHandler) ListAuditLogs(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "Invalid envelope id")
	}

	logs, err := h.envelopes.ListAuditLogs(c.UserContext(), int64(id), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, h.logger, err, "list audit logs")
	}

	return c.JSON(entity.NewSuccessResponse(logs, "Audit logs retrieved successfully"))
}
