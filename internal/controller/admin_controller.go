package controller

import (
	"courseflow-be/internal/dto"
	"courseflow-be/internal/pkg/serverutils"
	"courseflow-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ListRefunds(ctx *fiber.Ctx) error
	IssueOffer(ctx *fiber.Ctx) error
	RejectRefund(ctx *fiber.Ctx) error
	SweepExpiredOffers(ctx *fiber.Ctx) error
}

type adminController struct {
	adminService service.IAdminService
}

func NewAdminController(adminService service.IAdminService) IAdminController {
	return &adminController{
		adminService: adminService,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/refunds")
	h.Use(serverutils.JwtMiddleware)
	h.Use(serverutils.AdminOnly)
	h.Get("", c.ListRefunds)
	h.Post("sweep", c.SweepExpiredOffers)
	h.Post(":id/offer", c.IssueOffer)
	h.Post(":id/reject", c.RejectRefund)
}

func (c *adminController) ListRefunds(ctx *fiber.Ctx) error {
	var query dto.AdminRefundListQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters")
	}

	res, err := c.adminService.GetRefunds(ctx.Context(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Refund requests", res))
}

func (c *adminController) IssueOffer(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid refund id")
	}

	var req dto.AdminOfferRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.adminService.IssueOffer(ctx.Context(), id, req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Offer issued", res))
}

func (c *adminController) RejectRefund(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid refund id")
	}

	var req dto.AdminRejectRefundRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.adminService.RejectRefund(ctx.Context(), id, req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Refund request rejected", res))
}

func (c *adminController) SweepExpiredOffers(ctx *fiber.Ctx) error {
	res, err := c.adminService.SweepExpiredOffers(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Expired offers swept", res))
}
