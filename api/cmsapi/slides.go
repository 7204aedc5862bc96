package cmsapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/storage/model"
)

type slideRequest struct {
	ImageURL string `json:"imageUrl"`
	Order    *int   `json:"order"`
	IsActive *bool  `json:"isActive"`
}

func registerSlides(r fiber.Router, session, editor fiber.Handler, store model.SlidesStore, rec *audit.Recorder) {
	g := r.Group("/slides")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := store.List(!c.QueryBool("all"))
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(list)
		},
	)

	g.Post(
		"/", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var req slideRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			order := 0
			if req.Order != nil {
				order = *req.Order
			}
			slide, err := store.Create(req.ImageURL, order)
			if err != nil {
				return writeError(c, err)
			}
			rec.Recordf(
				model.AuditActionCreate, model.AuditEntityImage, id.Username, "Added new slide: %s", slide.ImageURL,
			)
			return c.Status(fiber.StatusCreated).JSON(slide)
		},
	)

	g.Put(
		"/:id", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var req slideRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			slide, err := store.Update(c.Params("id"), req.Order, req.IsActive)
			if err != nil {
				return writeError(c, err)
			}
			rec.Recordf(model.AuditActionUpdate, model.AuditEntityImage, id.Username, "Updated slide %s", slide.ID)
			return c.JSON(slide)
		},
	)

	g.Delete(
		"/:id", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			slide, err := store.Delete(c.Params("id"))
			if err != nil {
				return writeError(c, err)
			}
			rec.Recordf(
				model.AuditActionDelete, model.AuditEntityImage, id.Username, "Deleted slide: %s", slide.ImageURL,
			)
			return c.JSON(fiber.Map{"message": "Slide deleted"})
		},
	)
}
