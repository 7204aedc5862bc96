package cmsapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/storage/model"
)

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func registerNews(r fiber.Router, session, editor fiber.Handler, store model.NewsStore, rec *audit.Recorder) {
	g := r.Group("/news")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := store.List()
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(list)
		},
	)

	// registered before "/:id" so that "order" is not taken for an id
	g.Put(
		"/order", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var req reorderRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			if err := store.Reorder(req.IDs); err != nil {
				return writeError(c, err)
			}
			rec.Recordf(
				model.AuditActionUpdate, model.AuditEntityNews, id.Username, "Reordered news (%d items)",
				len(req.IDs),
			)
			return c.JSON(fiber.Map{"success": true})
		},
	)

	g.Get(
		"/:id", func(c *fiber.Ctx) error {
			item, err := store.Get(c.Params("id"))
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(item)
		},
	)

	g.Post(
		"/", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var in model.NewsInput
			if err := c.BodyParser(&in); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			item, err := store.Create(in)
			if err != nil {
				return writeError(c, err)
			}
			rec.Recordf(model.AuditActionCreate, model.AuditEntityNews, id.Username, "Created news: %s", item.Title)
			return c.Status(fiber.StatusCreated).JSON(item)
		},
	)

	g.Put(
		"/:id", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var in model.NewsInput
			if err := c.BodyParser(&in); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			before, err := store.Get(c.Params("id"))
			if err != nil {
				return writeError(c, err)
			}
			item, err := store.Update(before.ID, in)
			if err != nil {
				return writeError(c, err)
			}
			rec.Record(
				model.AuditActionUpdate, model.AuditEntityNews,
				audit.Describe("Updated news: "+item.Title, audit.Changes(newsInput(before), newsInput(item))),
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
			rec.Recordf(model.AuditActionDelete, model.AuditEntityNews, id.Username, "Deleted news: %s", item.Title)
			return c.JSON(fiber.Map{"message": "News deleted"})
		},
	)
}

func newsInput(n *model.NewsArticle) model.NewsInput {
	images := make([]string, 0, len(n.Images))
	for _, img := range n.Images {
		images = append(images, img.URL)
	}
	return model.NewsInput{
		Title:        n.Title,
		Excerpt:      n.Excerpt,
		Content:      n.Content,
		ImageURL:     n.ImageURL,
		Date:         n.Date,
		ExternalLink: n.ExternalLink,
		Images:       images,
	}
}
