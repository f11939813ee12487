package controller

import (
	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/pkg/serverutils"
	"game-exploration-be/pkg/exploration/debuglog"

	"github.com/gofiber/fiber/v2"
)

type IDebugController interface {
	RegisterRoutes(r fiber.Router)
	GetProviderLog(ctx *fiber.Ctx) error
	ClearProviderLog(ctx *fiber.Ctx) error
}

type debugController struct {
	buffer *debuglog.Buffer
}

func NewDebugController(buffer *debuglog.Buffer) IDebugController {
	return &debugController{buffer: buffer}
}

func (c *debugController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/debug")
	h.Get("/provider_log", c.GetProviderLog)
	h.Delete("/provider_log", c.ClearProviderLog)
}

func (c *debugController) GetProviderLog(ctx *fiber.Ctx) error {
	res := dto.ProviderLogResponse{
		Capacity: c.buffer.Capacity(),
		Entries:  c.buffer.List(),
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get provider log", res))
}

func (c *debugController) ClearProviderLog(ctx *fiber.Ctx) error {
	c.buffer.Clear()
	return ctx.JSON(serverutils.SuccessResponse("Success clear provider log", fiber.Map{"status": "cleared"}))
}
