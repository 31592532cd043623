package controller

import (
	"context"

	"courseflow-be/internal/dto"
	"courseflow-be/internal/pkg/serverutils"
	"courseflow-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRefundController interface {
	RegisterRoutes(r fiber.Router)
	CheckEligibility(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	AcceptOffer(ctx *fiber.Ctx) error
	RejectOffer(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type refundController struct {
	refundService service.RefundService
}

func NewRefundController(refundService service.RefundService) IRefundController {
	return &refundController{
		refundService: refundService,
	}
}

func (c *refundController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/refunds")
	h.Use(serverutils.JwtMiddleware)
	h.Get("eligibility", c.CheckEligibility)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Post(":id/accept", c.AcceptOffer)
	h.Post(":id/reject", c.RejectOffer)
	h.Post(":id/cancel", c.Cancel)
}

func currentUserId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user token")
	}
	return userId, nil
}

func (c *refundController) CheckEligibility(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	orderId, err := uuid.Parse(ctx.Query("order_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "order_id query parameter is required")
	}

	res, err := c.refundService.GetEligibility(ctx.Context(), userId, orderId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Eligibility evaluated", res))
}

func (c *refundController) Create(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateRefundRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.refundService.CreateRequest(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Refund request submitted", res))
}

func (c *refundController) List(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.refundService.ListMyRequests(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Refund requests", res))
}

func (c *refundController) Show(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid refund id")
	}

	res, err := c.refundService.GetMyRequest(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Refund request detail", res))
}

func (c *refundController) AcceptOffer(ctx *fiber.Ctx) error {
	return c.decide(ctx, c.refundService.AcceptOffer, "Offer accepted")
}

func (c *refundController) RejectOffer(ctx *fiber.Ctx) error {
	return c.decide(ctx, c.refundService.RejectOffer, "Offer rejected")
}

func (c *refundController) Cancel(ctx *fiber.Ctx) error {
	return c.decide(ctx, c.refundService.CancelRequest, "Refund request cancelled")
}

// decide is shared by the three learner decisions, which differ only in
// the service call and the success message.
func (c *refundController) decide(ctx *fiber.Ctx, action func(ctx context.Context, userId, requestId uuid.UUID) (*dto.UserRefundDetailResponse, error), message string) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid refund id")
	}

	res, err := action(ctx.Context(), userId, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(message, res))
}
