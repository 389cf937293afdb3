package controllers

import (
	"errors"
	"log"

	"rewmo/helpers"
	"rewmo/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func Validate(req any) error {
	return validate.Struct(req)
}

// ServiceError maps ledger errors onto the response envelope.
func ServiceError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL_ERROR"
	switch {
	case errors.Is(err, services.ErrDuplicateOrder):
		status, code = fiber.StatusConflict, "DUPLICATE_ORDER"
	case errors.Is(err, services.ErrInvalidTransition):
		status, code = fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, services.ErrInsufficientApprovedBalance):
		status, code = fiber.StatusUnprocessableEntity, "INSUFFICIENT_APPROVED_BALANCE"
	case errors.Is(err, services.ErrNoCommissionFits):
		status, code = fiber.StatusUnprocessableEntity, "NO_COMMISSION_FITS"
	case errors.Is(err, services.ErrInvalidAmount):
		status, code = fiber.StatusUnprocessableEntity, "INVALID_AMOUNT"
	case errors.Is(err, services.ErrInvalidCommission):
		status, code = fiber.StatusUnprocessableEntity, "NETWORK_AND_ORDER_REQUIRED"
	case errors.Is(err, services.ErrInvalidPayoutMethod):
		status, code = fiber.StatusUnprocessableEntity, "INVALID_PAYOUT_METHOD"
	case errors.Is(err, services.ErrCommissionNotFound):
		status, code = fiber.StatusNotFound, "COMMISSION_NOT_FOUND"
	case errors.Is(err, services.ErrMemberNotFound):
		status, code = fiber.StatusNotFound, "MEMBER_NOT_FOUND"
	case errors.Is(err, services.ErrBatchNotFound):
		status, code = fiber.StatusNotFound, "IMPORT_BATCH_NOT_FOUND"
	case errors.Is(err, services.ErrBatchNotCommittable):
		status, code = fiber.StatusConflict, "IMPORT_BATCH_NOT_COMMITTABLE"
	case errors.Is(err, services.ErrUnknownFeed):
		status, code = fiber.StatusNotFound, "FEED_NOT_CONFIGURED"
	default:
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return helpers.JSONErrorStatus(c, status, code, nil)
	}
	return helpers.JSONErrorStatus(c, status, code, err.Error())
}
