package controller

import (
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/pkg/serverutils"
	"ai-knowledgebase-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IIndexingController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Latest(ctx *fiber.Ctx) error
	Active(ctx *fiber.Ctx) error
	ReindexNote(ctx *fiber.Ctx) error
	DeleteAll(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Providers(ctx *fiber.Ctx) error
}

type indexingController struct {
	indexingService service.IIndexingService
}

func NewIndexingController(indexingService service.IIndexingService) IIndexingController {
	return &indexingController{
		indexingService: indexingService,
	}
}

func (c *indexingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/indexing/v1")
	h.Post("jobs", c.Start)
	h.Get("jobs/latest", c.Latest)
	h.Get("jobs/active", c.Active)
	h.Get("jobs/:id", c.Status)
	h.Post("jobs/:id/cancel", c.Cancel)
	h.Post("notes/:id/reindex", c.ReindexNote)
	h.Delete("notes", c.DeleteAll)
	h.Get("stats", c.Stats)
	h.Get("providers", c.Providers)
}

func (c *indexingController) Start(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.StartIndexingRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.Validation("invalid request body")
		}
	}
	req.UserId = userId

	res, err := c.indexingService.StartIndexing(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Indexing job started", res))
}

func (c *indexingController) Cancel(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}
	jobId, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.indexingService.CancelIndexing(ctx.Context(), userId, jobId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancellation requested", res))
}

func (c *indexingController) Status(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}
	jobId, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.indexingService.GetIndexingStatus(ctx.Context(), userId, jobId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get job status", res))
}

func (c *indexingController) Latest(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.indexingService.GetLatestJob(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get latest job", res))
}

func (c *indexingController) Active(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.indexingService.GetActiveJob(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get active job", res))
}

func (c *indexingController) ReindexNote(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}
	noteId, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.ReindexNoteRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return apperror.Validation("invalid request body")
		}
	}
	req.UserId = userId
	req.NoteId = noteId

	res, err := c.indexingService.ReindexNote(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Note reindexed", res))
}

func (c *indexingController) DeleteAll(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	if err := c.indexingService.DeleteIndexedNotes(ctx.Context(), userId, ctx.Query("vector_store")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Indexed notes deleted", nil))
}

func (c *indexingController) Stats(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.indexingService.GetIndexStats(ctx.Context(), userId, ctx.Query("vector_store"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get index stats", res))
}

func (c *indexingController) Providers(ctx *fiber.Ctx) error {
	res, err := c.indexingService.ListEmbeddingProviders(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list embedding providers", res))
}

func currentUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Missing user identity")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user identity")
	}
	return userId, nil
}

func parseIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid id parameter")
	}
	return id, nil
}
