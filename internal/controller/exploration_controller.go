package controller

import (
	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/pkg/serverutils"
	"game-exploration-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IExplorationController interface {
	RegisterRoutes(r fiber.Router)
	Explore(ctx *fiber.Ctx) error
	SelectOption(ctx *fiber.Ctx) error
	Iterate(ctx *fiber.Ctx) error
	FinishExploration(ctx *fiber.Ctx) error
	PreviewOption(ctx *fiber.Ctx) error
	FixPreview(ctx *fiber.Ctx) error
	SetPreviewing(ctx *fiber.Ctx) error
	ServePreview(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	GetActive(ctx *fiber.Ctx) error
	ListMemoryNotes(ctx *fiber.Ctx) error
	ListTemplates(ctx *fiber.Ctx) error
	ServeTemplate(ctx *fiber.Ctx) error
}

type explorationController struct {
	service       service.IExplorationService
	memoryService service.IMemoryService
}

func NewExplorationController(service service.IExplorationService, memoryService service.IMemoryService) IExplorationController {
	return &explorationController{service: service, memoryService: memoryService}
}

func (c *explorationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/projects/:project_id")
	h.Post("/explore", c.Explore)
	h.Post("/select_option", c.SelectOption)
	h.Post("/iterate", c.Iterate)
	h.Post("/finish_exploration", c.FinishExploration)

	e := h.Group("/exploration")
	e.Post("/preview_option", c.PreviewOption)
	e.Post("/fix_preview", c.FixPreview)
	e.Post("/previewing", c.SetPreviewing)
	e.Get("/preview_option/:session_id/:option_id", c.ServePreview)
	e.Get("/state/:session_id", c.GetState)
	e.Get("/active", c.GetActive)
	e.Get("/memory_notes", c.ListMemoryNotes)
	e.Get("/templates", c.ListTemplates)
	e.Get("/preview/:template_id", c.ServeTemplate)
}

func (c *explorationController) Explore(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.ExploreRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Explore(ctx.UserContext(), projectId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success explore", res))
}

func (c *explorationController) SelectOption(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.SelectOptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SelectOption(ctx.UserContext(), projectId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success select option", res))
}

func (c *explorationController) Iterate(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.IterateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Iterate(ctx.UserContext(), projectId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success iterate", res))
}

func (c *explorationController) FinishExploration(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.FinishExplorationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.FinishExploration(ctx.UserContext(), projectId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success finish exploration", res))
}

func (c *explorationController) PreviewOption(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.PreviewOptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.PreviewOption(ctx.UserContext(), projectId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success preview option", res))
}

func (c *explorationController) FixPreview(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.FixPreviewRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.FixPreview(ctx.UserContext(), projectId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fix preview", res))
}

func (c *explorationController) SetPreviewing(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	var req dto.PreviewingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetPreviewing(ctx.UserContext(), projectId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update previewing", res))
}

func (c *explorationController) ServePreview(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}
	sessionId, err := uintParam(ctx, "session_id")
	if err != nil {
		return err
	}

	html, err := c.service.PreviewHTML(ctx.UserContext(), projectId, sessionId, ctx.Params("option_id"))
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	ctx.Set(fiber.HeaderCacheControl, "no-store")
	return ctx.SendString(html)
}

func (c *explorationController) GetState(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}
	sessionId, err := uintParam(ctx, "session_id")
	if err != nil {
		return err
	}

	res, err := c.service.GetState(ctx.UserContext(), projectId, sessionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get exploration state", res))
}

func (c *explorationController) GetActive(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetActiveSession(ctx.UserContext(), projectId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get active session", res))
}

func (c *explorationController) ListMemoryNotes(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.memoryService.ListNotes(ctx.UserContext(), projectId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get memory notes", res))
}

func (c *explorationController) ListTemplates(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get templates", c.service.ListTemplates()))
}

func (c *explorationController) ServeTemplate(ctx *fiber.Ctx) error {
	html, err := c.service.TemplateHTML(ctx.Params("template_id"))
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.SendString(html)
}
