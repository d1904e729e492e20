package controller

import (
	"campus-desk-be/internal/dto"
	"campus-desk-be/internal/pkg/serverutils"
	"campus-desk-be/internal/service"
	"campus-desk-be/pkg/deskerr"

	"github.com/gofiber/fiber/v2"
)

type IQueryController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	CreateSession(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	EndSession(ctx *fiber.Ctx) error
	Suggestions(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type queryController struct {
	service service.IQueryService
}

func NewQueryController(service service.IQueryService) IQueryController {
	return &queryController{service: service}
}

func (c *queryController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/health", c.Health)

	h := r.Group("/query/v1")
	h.Use(auth)
	h.Get("suggestions", c.Suggestions)
	h.Post("sessions", c.CreateSession)
	h.Post("sessions/:id/ask", c.Ask)
	h.Get("sessions/:id/history", c.History)
	h.Delete("sessions/:id", c.EndSession)
}

func (c *queryController) CreateSession(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	var req dto.CreateQuerySessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return deskerr.Wrap(deskerr.CodeValidation, "Invalid request body.", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Query session created", res))
}

// Ask answers 200 with both turns even when the question was rejected;
// error_code in the payload says why. Question content is checked by the
// engine after the document gate, never here.
func (c *queryController) Ask(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	var req dto.AskQuestionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return deskerr.Wrap(deskerr.CodeValidation, "Invalid request body.", err)
	}
	req.SessionId = ctx.Params("id")

	res, err := c.service.Ask(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	message := "Success answer question"
	if res.ErrorCode != "" {
		message = res.BotTurn.Text
	}
	return ctx.JSON(serverutils.SuccessResponse(message, res))
}

func (c *queryController) History(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	res, err := c.service.History(ctx.UserContext(), userId, ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get query history", res))
}

func (c *queryController) EndSession(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	if err := c.service.EndSession(ctx.UserContext(), userId, ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Query session ended", nil))
}

func (c *queryController) Suggestions(ctx *fiber.Ctx) error {
	res, err := c.service.Suggestions(ctx.Query("kind"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get suggested questions", res))
}

func (c *queryController) Health(ctx *fiber.Ctx) error {
	res, err := c.service.Health(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("OK", res))
}
