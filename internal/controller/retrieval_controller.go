package controller

import (
	"strconv"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/pkg/serverutils"
	"ai-knowledgebase-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRetrievalController interface {
	RegisterRoutes(r fiber.Router)
	Retrieve(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
	RecentQueries(ctx *fiber.Ctx) error
}

type retrievalController struct {
	retrievalService service.IRetrievalService
}

func NewRetrievalController(retrievalService service.IRetrievalService) IRetrievalController {
	return &retrievalController{
		retrievalService: retrievalService,
	}
}

func (c *retrievalController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/retrieval/v1")
	h.Post("search", c.Retrieve)
	h.Post("queries/:id/feedback", c.Feedback)
	h.Get("queries", c.RecentQueries)
}

func (c *retrievalController) Retrieve(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.RetrieveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.UserId = userId

	res, err := c.retrievalService.Retrieve(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success retrieve", res))
}

func (c *retrievalController) Feedback(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}
	queryLogId, err := parseIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.RecordFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.UserId = userId
	req.QueryLogId = queryLogId

	res, err := c.retrievalService.RecordFeedback(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Feedback recorded", res))
}

func (c *retrievalController) RecentQueries(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(ctx.Query("limit", "20"))
	res, err := c.retrievalService.GetRecentQueries(ctx.Context(), userId, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get recent queries", res))
}
