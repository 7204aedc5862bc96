package cmsapi

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/uploads"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// imageSetting describes an image upload that is stored as a site setting
type imageSetting struct {
	path       string
	field      string
	key        string
	namePrefix string
	urlField   string
	message    string
}

var imageSettings = []imageSetting{
	{
		path:       "/logo",
		field:      "logo",
		key:        model.SettingHospitalLogo,
		namePrefix: "hospital-logo-",
		urlField:   "logoUrl",
		message:    "Logo updated successfully",
	},
	{
		path:       "/about-image",
		field:      "aboutImage",
		key:        model.SettingAboutImage,
		namePrefix: "about-image-",
		urlField:   "imageUrl",
		message:    "About image updated successfully",
	},
}

func registerSettings(
	r fiber.Router, session, editor fiber.Handler, kv model.KeyValueStore, files uploads.Store, rec *audit.Recorder,
) {
	g := r.Group("/settings")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			values, err := kv.Scope(model.KeyValueScopeSettings)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(values)
		},
	)

	for _, s := range imageSettings {
		g.Post(
			s.path, session, editor, func(c *fiber.Ctx) error {
				id, _ := identityFrom(c)
				fh, err := c.FormFile(s.field)
				if err != nil {
					return jsonError(c, fiber.StatusBadRequest, "No image file uploaded")
				}
				if fh.Size > uploads.MaxImageSize {
					return jsonError(c, fiber.StatusRequestEntityTooLarge, "Image too large, the limit is 2 MB")
				}
				if !uploads.AllowedImage(fh.Header.Get(fiber.HeaderContentType)) {
					return jsonError(c, fiber.StatusBadRequest, "Only images are allowed")
				}
				var previous string
				if _, err = kv.GetAs(model.KeyValueScopeSettings, s.key, &previous); err != nil {
					return writeError(c, err)
				}
				url, err := saveUpload(c, files, fh, uploads.GenerateName(s.namePrefix, fh.Filename))
				if err != nil {
					return writeError(c, err)
				}
				if err = kv.SetAny(model.KeyValueScopeSettings, s.key, url); err != nil {
					return writeError(c, err)
				}
				if previous != "" && previous != url {
					if err = files.Delete(c.UserContext(), previous); err != nil {
						log.WithError(err).WithField("url", previous).Warn("could not delete replaced image")
					}
				}
				rec.Recordf(model.AuditActionUpdate, model.AuditEntitySystem, id.Username, "Updated %s", s.key)
				return c.JSON(
					fiber.Map{
						s.urlField: url,
						"message":  s.message,
					},
				)
			},
		)
	}
}
