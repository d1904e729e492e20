package controller

import (
	"campus-desk-be/internal/dto"
	"campus-desk-be/internal/pkg/serverutils"
	"campus-desk-be/internal/service"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/ingest"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	UploadHandbook(ctx *fiber.Ctx) error
	UploadSyllabus(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	SignedURL(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IDocumentService
}

func NewDocumentController(service service.IDocumentService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/documents/v1")
	h.Use(auth)
	h.Get("", c.List)
	h.Get("status", c.Status)
	h.Post("handbooks", c.UploadHandbook)
	h.Post("courses/:courseId/syllabus", c.UploadSyllabus)
	h.Get(":id/url", c.SignedURL)
	h.Post(":id/retry", c.Retry)
	h.Delete(":id", c.Delete)
}

func (c *documentController) UploadHandbook(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	var academicId *uuid.UUID
	if raw := ctx.FormValue("academic_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return deskerr.New(deskerr.CodeValidation, "academic_id must be a valid id.")
		}
		academicId = &id
	}

	upload, closeFile, err := formUpload(ctx)
	if err != nil {
		return err
	}
	defer closeFile()

	res, err := c.service.UploadHandbook(ctx.UserContext(), userId, academicId, upload)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Handbook uploaded. Processing has started.", res))
}

func (c *documentController) UploadSyllabus(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)
	courseId, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}

	upload, closeFile, err := formUpload(ctx)
	if err != nil {
		return err
	}
	defer closeFile()

	res, err := c.service.UploadSyllabus(ctx.UserContext(), userId, courseId, upload)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Syllabus uploaded. Processing has started.", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	var req dto.ListDocumentsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return deskerr.Wrap(deskerr.CodeValidation, "Invalid query parameters.", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get documents", res))
}

func (c *documentController) SignedURL(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.SignedURL(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get document url", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete document", nil))
}

func (c *documentController) Retry(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Retry(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Processing re-triggered", res))
}

func (c *documentController) Status(ctx *fiber.Ctx) error {
	userId := serverutils.UserID(ctx)

	var req dto.DocumentStatusRequest
	if err := ctx.QueryParser(&req); err != nil {
		return deskerr.Wrap(deskerr.CodeValidation, "Invalid query parameters.", err)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Status(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get document status", res))
}

// formUpload opens the multipart "file" field. The returned func closes it.
func formUpload(ctx *fiber.Ctx) (ingest.Upload, func(), error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return ingest.Upload{}, nil, deskerr.Wrap(deskerr.CodeValidation, "A PDF file is required in the 'file' field.", err)
	}
	f, err := fh.Open()
	if err != nil {
		return ingest.Upload{}, nil, deskerr.Wrap(deskerr.CodeValidation, "Failed to read the uploaded file.", err)
	}
	return ingest.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	}, func() { f.Close() }, nil
}

func pathID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, deskerr.New(deskerr.CodeValidation, name+" must be a valid id.")
	}
	return id, nil
}
