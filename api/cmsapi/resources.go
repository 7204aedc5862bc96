package cmsapi

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/uploads"
	"github.com/saraphi-hospital/infocms/storage/model"
)

func registerResources(
	r fiber.Router, session, editor fiber.Handler, store model.ResourcesStore, files uploads.Store,
	rec *audit.Recorder,
) {
	g := r.Group("/resources")

	removeFile := func(c *fiber.Ctx, url string) {
		if files == nil || url == "" {
			return
		}
		if err := files.Delete(c.UserContext(), url); err != nil {
			log.WithError(err).WithField("url", url).Warn("could not delete resource file")
		}
	}

	g.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := store.List("")
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(list)
		},
	)

	g.Get(
		"/category/:category", func(c *fiber.Ctx) error {
			list, err := store.List(c.Params("category"))
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(list)
		},
	)

	g.Post(
		"/", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var in model.ResourceInput
			if err := c.BodyParser(&in); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			item, err := store.Create(in)
			if err != nil {
				return writeError(c, err)
			}
			rec.Recordf(
				model.AuditActionCreate, model.AuditEntityResource, id.Username, "Created resource: %s in %s",
				item.Title, item.Category,
			)
			return c.Status(fiber.StatusCreated).JSON(item)
		},
	)

	g.Put(
		"/:id", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var in model.ResourceInput
			if err := c.BodyParser(&in); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			existing, err := store.Get(c.Params("id"))
			if err != nil {
				return writeError(c, err)
			}
			item, err := store.Update(existing.ID, in)
			if err != nil {
				return writeError(c, err)
			}
			if in.FileURL != "" && in.FileURL != existing.FileURL {
				removeFile(c, existing.FileURL)
			}
			rec.Record(
				model.AuditActionUpdate, model.AuditEntityResource,
				audit.Describe("Updated resource: "+item.Title, audit.Changes(resourceInput(existing), resourceInput(item))),
				id.Username,
			)
			return c.JSON(item)
		},
	)

	g.Delete(
		"/:id", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			item, err := store.Delete(c.Params("id"))
			if err != nil {
				return writeError(c, err)
			}
			removeFile(c, item.FileURL)
			rec.Recordf(
				model.AuditActionDelete, model.AuditEntityResource, id.Username, "Deleted resource: %s", item.Title,
			)
			return c.JSON(fiber.Map{"message": "Resource deleted successfully"})
		},
	)
}

func resourceInput(r *model.Resource) model.ResourceInput {
	return model.ResourceInput{
		Title:       r.Title,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		FileURL:     r.FileURL,
		FileType:    r.FileType,
	}
}
