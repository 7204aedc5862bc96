package cmsapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saraphi-hospital/infocms/storage/model"
)

func registerAuditLogs(r fiber.Router, a *authz, store model.AuditStore) {
	r.Get(
		"/audit-logs", a.session, a.require(model.RoleSuperAdmin), func(c *fiber.Ctx) error {
			q := model.AuditQuery{
				Action: model.AuditAction(c.Query("action")),
				Entity: model.AuditEntity(c.Query("entity")),
				Limit:  c.QueryInt("limit", 100),
				Offset: c.QueryInt("offset", 0),
			}
			entries, total, err := store.List(q)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(
				fiber.Map{
					"logs":  entries,
					"total": total,
				},
			)
		},
	)
}
