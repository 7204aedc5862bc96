package cmsapi

import (
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/uploads"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// saveUpload stores a multipart file under name
func saveUpload(c *fiber.Ctx, store uploads.Store, fh *multipart.FileHeader, name string) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "could not open uploaded file")
	}
	defer f.Close()
	return store.Save(c.UserContext(), name, f, fh.Size, fh.Header.Get(fiber.HeaderContentType))
}

func registerUpload(r fiber.Router, session, editor fiber.Handler, store uploads.Store, rec *audit.Recorder) {
	r.Post(
		"/upload", session, editor, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			fh, err := c.FormFile("file")
			if err != nil {
				return jsonError(c, fiber.StatusBadRequest, "No file uploaded")
			}
			if fh.Size > uploads.MaxFileSize {
				return jsonError(
					c, fiber.StatusRequestEntityTooLarge,
					fmt.Sprintf("File too large, the limit is %d MB", uploads.MaxFileSize>>20),
				)
			}
			contentType := fh.Header.Get(fiber.HeaderContentType)
			if !uploads.AllowedDocument(fh.Filename, contentType) {
				return jsonError(c, fiber.StatusBadRequest, "File type not allowed")
			}
			url, err := saveUpload(c, store, fh, uploads.GenerateName("", fh.Filename))
			if err != nil {
				return writeError(c, err)
			}
			rec.Recordf(model.AuditActionCreate, model.AuditEntityResource, id.Username, "Uploaded file: %s", fh.Filename)
			return c.JSON(
				fiber.Map{
					"fileUrl":      url,
					"originalName": fh.Filename,
					"mimetype":     contentType,
					"size":         fh.Size,
				},
			)
		},
	)
}
