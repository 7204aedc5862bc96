package cmsapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/storage/model"
)

func registerNavLinks(r fiber.Router, session, editor fiber.Handler, store model.NavLinksStore, rec *audit.Recorder) {
	r.Get(
		"/navlinks", func(c *fiber.Ctx) error {
			links, err := store.List()
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(links)
		},
	)
	r.Put(
		"/navlinks", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var links []model.NavLinkInput
			if err := c.BodyParser(&links); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			if err := store.Replace(links); err != nil {
				return writeError(c, err)
			}
			rec.Recordf(
				model.AuditActionUpdate, model.AuditEntityMenu, id.Username, "Updated navigation menu (%d items)",
				len(links),
			)
			return c.JSON(fiber.Map{"success": true, "count": len(links)})
		},
	)
}

func registerGridItems(r fiber.Router, session, editor fiber.Handler, store model.GridItemsStore, rec *audit.Recorder) {
	r.Get(
		"/griditems", func(c *fiber.Ctx) error {
			items, err := store.List()
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(items)
		},
	)
	r.Put(
		"/griditems", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var items []model.GridItem
			if err := c.BodyParser(&items); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			if err := store.Replace(items); err != nil {
				return writeError(c, err)
			}
			rec.Recordf(
				model.AuditActionUpdate, model.AuditEntityService, id.Username,
				"Updated grid items/services (%d items)", len(items),
			)
			return c.JSON(fiber.Map{"success": true, "count": len(items)})
		},
	)
}
