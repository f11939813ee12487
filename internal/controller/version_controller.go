package controller

import (
	"game-exploration-be/internal/pkg/serverutils"
	"game-exploration-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IVersionController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Current(ctx *fiber.Ctx) error
	Rollback(ctx *fiber.Ctx) error
}

type versionController struct {
	service service.IVersionService
}

func NewVersionController(service service.IVersionService) IVersionController {
	return &versionController{service: service}
}

func (c *versionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/projects/:project_id/versions")
	h.Get("", c.List)
	h.Get("/current", c.Current)
	h.Post("/:version_id/rollback", c.Rollback)
}

func (c *versionController) List(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), projectId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get versions", res))
}

func (c *versionController) Current(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Current(ctx.UserContext(), projectId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get current version", res))
}

func (c *versionController) Rollback(ctx *fiber.Ctx) error {
	projectId, err := projectIdParam(ctx)
	if err != nil {
		return err
	}
	versionId, err := uintParam(ctx, "version_id")
	if err != nil {
		return err
	}

	res, err := c.service.Rollback(ctx.UserContext(), projectId, versionId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rollback version", res))
}
