package controller

import (
	"campus-desk-be/internal/dto"
	"campus-desk-be/internal/pkg/serverutils"
	"campus-desk-be/internal/service"
	"campus-desk-be/pkg/deskerr"

	"github.com/gofiber/fiber/v2"
)

// IProcessingController receives status callbacks from the processing
// backend.
type IProcessingController interface {
	RegisterRoutes(r fiber.Router, processorAuth fiber.Handler)
	UpdateStatus(ctx *fiber.Ctx) error
}

type processingController struct {
	service service.IStatusService
}

func NewProcessingController(service service.IStatusService) IProcessingController {
	return &processingController{service: service}
}

func (c *processingController) RegisterRoutes(r fiber.Router, processorAuth fiber.Handler) {
	h := r.Group("/processing/v1")
	h.Use(processorAuth)
	h.Post("documents/:id/status", c.UpdateStatus)
}

func (c *processingController) UpdateStatus(ctx *fiber.Ctx) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateProcessingStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return deskerr.Wrap(deskerr.CodeValidation, "Invalid request body.", err)
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateStatus(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update processing status", res))
}
