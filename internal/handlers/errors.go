package handlers

import (
	"context"
	"errors"

	"adminpanel/internal/docstore"
	"adminpanel/internal/editor"
	"adminpanel/internal/logging"
	"adminpanel/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DeleteFailedNotice is shown when a delete is rejected by the store.
const DeleteFailedNotice = "The record could not be deleted. Please try again."

// writeError maps a service error onto a status code and a JSON body.
func writeError(c *fiber.Ctx, log logging.Logger, err error) error {
	var (
		verr    *editor.ValidationError
		syncErr *services.SyncError
		mutErr  *services.MutationError
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	case errors.Is(err, services.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	case errors.Is(err, services.ErrLoading):
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Data is still loading",
		})
	case errors.As(err, &syncErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Could not load data",
			"error":   syncErr.Message,
		})
	case errors.Is(err, docstore.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Record not found",
		})
	case errors.As(err, &mutErr):
		log.Error(context.Background(), "mutation failed", "op", mutErr.Op, "collection", mutErr.Collection, "id", mutErr.ID, "error", mutErr.Err)
		notice := editor.SaveFailedNotice
		if mutErr.Op == "delete" {
			notice = DeleteFailedNotice
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": notice,
		})
	}
	log.Error(context.Background(), "request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}
