package infocms

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/api/cmsapi"
	"github.com/saraphi-hospital/infocms/internal/accounts"
	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/passwords"
	"github.com/saraphi-hospital/infocms/internal/tokens"
	"github.com/saraphi-hospital/infocms/internal/uploads"
	"github.com/saraphi-hospital/infocms/internal/version"
	"github.com/saraphi-hospital/infocms/storage"
)

func newTestCMS(t *testing.T, conf ServerConf) (*CMS, string) {
	t.Helper()
	backs, err := storage.LoadStorageBackends(
		storage.Config{
			Driver:  storage.DriverSQLite,
			DataDir: t.TempDir(),
			UsersHash: passwords.Argon2idParams{
				Time: 1, MemoryKiB: 1024, Parallelism: 1, KeyLen: 32, SaltLen: 16,
			},
		},
	)
	require.NoError(t, err)
	issuer, err := tokens.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	dir := t.TempDir()
	files, err := uploads.NewFileSystemStore(dir, "")
	require.NoError(t, err)
	rec := audit.NewRecorder(backs.Audit, nil)

	cms, err := NewCMS(
		conf, cmsapi.Deps{
			Backends: backs,
			Accounts: accounts.NewService(backs.Users, issuer, nil, rec),
			Tokens:   issuer,
			Audit:    rec,
			Uploads:  files,
		}, Options{UploadsDir: dir},
	)
	require.NoError(t, err)
	return cms, dir
}

func TestHealth(t *testing.T) {
	cms, _ := newTestCMS(t, ServerConf{Port: 3000})
	resp, err := cms.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version.VERSION, body["version"])
}

func TestServesUploads(t *testing.T) {
	cms, dir := newTestCMS(t, ServerConf{Port: 3000})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF"), 0o600))
	resp, err := cms.App().Test(httptest.NewRequest(http.MethodGet, "/uploads/report.pdf", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestCORS(t *testing.T) {
	cms, _ := newTestCMS(t, ServerConf{Port: 3000, AllowedOrigins: []string{"https://hospital.example.org"}})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://hospital.example.org")
	resp, err := cms.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, "https://hospital.example.org", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
}

func TestUnknownRouteIsJSON(t *testing.T) {
	cms, _ := newTestCMS(t, ServerConf{Port: 3000})
	resp, err := cms.App().Test(httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}

func TestServerConfValidate(t *testing.T) {
	assert.NoError(t, ServerConf{Port: 3000}.Validate())
	assert.Error(t, ServerConf{Port: 0}.Validate())
	assert.Error(t, ServerConf{Port: 70000}.Validate())
	assert.Error(t, ServerConf{Port: 443, TLS: tlsConf{Enabled: true}}.Validate())
	assert.Error(t, ServerConf{Port: 3000, AllowedOrigins: []string{"*"}}.Validate())
}
