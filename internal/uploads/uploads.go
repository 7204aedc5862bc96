// Package uploads stores files uploaded through the CMS and hands out the
// URLs under which they are served.
package uploads

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	arrays "github.com/adam-hanna/arrayOperations"
	"github.com/google/uuid"
)

// Store persists uploaded files
type Store interface {
	// Save stores r under name and returns the public URL
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes the file behind a URL previously returned by Save.
	// URLs not owned by the store and missing files are ignored.
	Delete(ctx context.Context, url string) error
}

// Limits
const (
	MaxFileSize  = 10 << 20
	MaxImageSize = 2 << 20
)

var documentTypes = map[string][]string{
	".jpeg": {"image/jpeg", "image/jpg"},
	".jpg":  {"image/jpeg", "image/jpg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".xls":  {"application/vnd.ms-excel"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
}

// AllowedDocument reports whether both the extension of filename and the
// content type are on the document allow list and match each other
func AllowedDocument(filename, contentType string) bool {
	types, ok := documentTypes[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return false
	}
	return len(arrays.Intersect(types, []string{normalizeContentType(contentType)})) > 0
}

// AllowedImage reports whether contentType is an image type
func AllowedImage(contentType string) bool {
	return strings.HasPrefix(normalizeContentType(contentType), "image/")
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// GenerateName returns a unique file name with the extension of original,
// optionally prefixed
func GenerateName(prefix, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%s%d-%s%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}
