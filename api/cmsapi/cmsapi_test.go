package cmsapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/internal/accounts"
	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/passwords"
	"github.com/saraphi-hospital/infocms/internal/throttle"
	"github.com/saraphi-hospital/infocms/internal/tokens"
	"github.com/saraphi-hospital/infocms/internal/uploads"
	"github.com/saraphi-hospital/infocms/storage"
	"github.com/saraphi-hospital/infocms/storage/model"
)

type testServer struct {
	app      *fiber.App
	backends model.Backends
	issuer   *tokens.Issuer
	svc      *accounts.Service
	admin    *model.User
	staff    *model.User
}

func newTestServer(t *testing.T, opts *Options) *testServer {
	t.Helper()
	st, err := storage.NewStorage(
		storage.Config{
			Driver:  storage.DriverSQLite,
			DataDir: t.TempDir(),
			UsersHash: passwords.Argon2idParams{
				Time: 1, MemoryKiB: 1024, Parallelism: 1, KeyLen: 32, SaltLen: 16,
			},
		},
	)
	require.NoError(t, err)
	backs := st.Backends()

	issuer, err := tokens.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	store, err := throttle.NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	files, err := uploads.NewFileSystemStore(filepath.Join(t.TempDir(), "uploads"), "")
	require.NoError(t, err)

	rec := audit.NewRecorder(backs.Audit, nil)
	svc := accounts.NewService(
		backs.Users, issuer, throttle.NewAccountLockout(store, throttle.DefaultLockoutConfig()), rec,
	)
	seeded, err := accounts.Seed(backs.Users)
	require.NoError(t, err)

	app := fiber.New()
	require.NoError(
		t, Register(
			app.Group("/api"), Deps{
				Backends: backs,
				Accounts: svc,
				Tokens:   issuer,
				Audit:    rec,
				Uploads:  files,
				Throttle: store,
			}, opts,
		),
	)
	return &testServer{
		app:      app,
		backends: backs,
		issuer:   issuer,
		svc:      svc,
		admin:    seeded[0],
		staff:    seeded[1],
	}
}

type response struct {
	status int
	header http.Header
	body   map[string]any
	raw    []byte
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie string) response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: cookie})
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	res := response{status: resp.StatusCode, header: resp.Header, raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &res.body))
	}
	return res
}

func sessionCookie(t *testing.T, res response) *http.Cookie {
	t.Helper()
	for _, c := range (&http.Response{Header: res.header}).Cookies() {
		if c.Name == DefaultCookieName {
			return c
		}
	}
	require.FailNow(t, "no session cookie set")
	return nil
}

// login signs in and returns the session token
func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	res := s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: username, Password: password}, "")
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	return sessionCookie(t, res).Value
}

// rotated logs in with the seeded password and completes the forced rotation
func (s *testServer) rotated(t *testing.T, username, newPassword string) string {
	t.Helper()
	token := s.login(t, username, accounts.DefaultPassword)
	res := s.do(
		t, http.MethodPatch, "/api/users/me/password", accounts.RotationRequest{NewPassword: newPassword}, token,
	)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	return token
}

func TestLoginSeededAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	res := s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "admin", Password: "password"}, "")
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, true, res.body["mustChangePassword"])
	user := res.body["user"].(map[string]any)
	assert.Equal(t, "SUPER_ADMIN", user["role"])
	assert.Equal(t, "admin", user["username"])
	assert.NotContains(t, user, "passwordHash")

	c := sessionCookie(t, res)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestLoginCookieBehindHTTPSProxy(t *testing.T) {
	s := newTestServer(t, nil)
	body, _ := json.Marshal(loginRequest{Username: "staff", Password: "password"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderXForwardedProto, "https")
	res := s.send(t, req)
	require.Equal(t, fiber.StatusOK, res.status)
	c := sessionCookie(t, res)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestLoginEnumerationResistance(t *testing.T) {
	s := newTestServer(t, nil)
	unknown := s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "nobody", Password: "x"}, "")
	wrong := s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "admin", Password: "x"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, unknown.status)
	assert.Equal(t, fiber.StatusUnauthorized, wrong.status)
	assert.Equal(t, unknown.raw, wrong.raw)
	assert.Equal(t, "Invalid credentials", wrong.body["error"])
}

func TestLoginLockedAccount(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 5; i++ {
		res := s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "staff", Password: "x"}, "")
		require.Equal(t, fiber.StatusUnauthorized, res.status)
	}
	res := s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "staff", Password: "password"}, "")
	assert.Equal(t, fiber.StatusTooManyRequests, res.status)
	assert.NotEmpty(t, res.header.Get(fiber.HeaderRetryAfter))
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < DefaultAuthRateLimit.Max; i++ {
		res := s.do(t, http.MethodPost, "/api/auth/logout", nil, "")
		require.Equal(t, fiber.StatusOK, res.status)
	}
	res := s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "admin", Password: "password"}, "")
	assert.Equal(t, fiber.StatusTooManyRequests, res.status)
	assert.Equal(t, "Too many requests, please try again later", res.body["error"])
	assert.NotEmpty(t, res.header.Get(fiber.HeaderRetryAfter))
}

func TestMe(t *testing.T) {
	s := newTestServer(t, nil)
	res := s.do(t, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
	assert.Equal(t, "Not authenticated", res.body["error"])

	res = s.do(t, http.MethodGet, "/api/auth/me", nil, "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
	assert.Equal(t, "Not authenticated", res.body["error"])

	token := s.login(t, "staff", "password")
	res = s.do(t, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, true, res.body["mustChangePassword"])
	assert.Equal(t, "staff", res.body["user"].(map[string]any)["username"])
}

func TestDeletedUserSessionIsRejected(t *testing.T) {
	s := newTestServer(t, nil)
	adminToken := s.rotated(t, "admin", "admin-pw")
	staffToken := s.login(t, "staff", "password")

	res := s.do(t, http.MethodDelete, "/api/users/"+s.staff.ID, nil, adminToken)
	require.Equal(t, fiber.StatusOK, res.status)
	res = s.do(t, http.MethodGet, "/api/auth/me", nil, staffToken)
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "staff", "password")
	res := s.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "", sessionCookie(t, res).Value)

	entries, _, err := s.backends.Audit.List(model.AuditQuery{Action: model.AuditActionLogout})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "staff", entries[0].PerformedBy)
}

func TestRotationGate(t *testing.T) {
	news := model.NewsInput{Title: "Open day", Date: "2026-01-10"}

	t.Run(
		"enforced", func(t *testing.T) {
			s := newTestServer(t, nil)
			token := s.login(t, "staff", "password")
			res := s.do(t, http.MethodPost, "/api/news", news, token)
			assert.Equal(t, fiber.StatusForbidden, res.status)
			assert.Equal(t, "Password change required", res.body["error"])
			assert.Equal(t, true, res.body["mustChangePassword"])

			res = s.do(
				t, http.MethodPatch, "/api/users/me/password", accounts.RotationRequest{NewPassword: "staff-pw"},
				token,
			)
			require.Equal(t, fiber.StatusOK, res.status)
			res = s.do(t, http.MethodPost, "/api/news", news, token)
			assert.Equal(t, fiber.StatusCreated, res.status)
		},
	)
	t.Run(
		"disabled", func(t *testing.T) {
			opts := DefaultOptions()
			opts.EnforcePasswordRotation = false
			s := newTestServer(t, opts)
			token := s.login(t, "staff", "password")
			res := s.do(t, http.MethodPost, "/api/news", news, token)
			assert.Equal(t, fiber.StatusCreated, res.status)
		},
	)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.rotated(t, "staff", "first-pw")

	res := s.do(t, http.MethodPatch, "/api/users/me/password", accounts.RotationRequest{NewPassword: "second-pw"}, token)
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "Current password is required", res.body["error"])

	res = s.do(
		t, http.MethodPatch, "/api/users/me/password",
		accounts.RotationRequest{CurrentPassword: "wrong", NewPassword: "second-pw"}, token,
	)
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "Current password is incorrect", res.body["error"])

	res = s.do(
		t, http.MethodPatch, "/api/users/me/password",
		accounts.RotationRequest{CurrentPassword: "first-pw", NewPassword: "abc"}, token,
	)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = s.do(
		t, http.MethodPatch, "/api/users/me/password",
		accounts.RotationRequest{CurrentPassword: "first-pw", NewPassword: "second-pw"}, token,
	)
	assert.Equal(t, fiber.StatusOK, res.status)

	res = s.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "staff", Password: "first-pw"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
	s.login(t, "staff", "second-pw")
}

func TestUserManagementAuthorization(t *testing.T) {
	s := newTestServer(t, nil)
	staffToken := s.rotated(t, "staff", "staff-pw")
	adminToken := s.rotated(t, "admin", "admin-pw")

	for _, path := range []string{"/api/users", "/api/users/" + s.admin.ID, "/api/audit-logs"} {
		res := s.do(t, http.MethodGet, path, nil, staffToken)
		assert.Equal(t, fiber.StatusForbidden, res.status, path)
		assert.Equal(t, "Access denied", res.body["error"])
	}
	res := s.do(t, http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	res = s.do(t, http.MethodGet, "/api/users", nil, adminToken)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.NotContains(t, string(res.raw), "argon2id")
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.rotated(t, "admin", "admin-pw")

	res := s.do(
		t, http.MethodPost, "/api/users",
		accounts.CreateUserRequest{Username: "editor1", Password: "editor-pw", Name: "Editor", Role: model.RoleAdmin},
		token,
	)
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	assert.Equal(t, true, res.body["mustChangePassword"])
	newID := res.body["id"].(string)

	res = s.do(
		t, http.MethodPost, "/api/users",
		accounts.CreateUserRequest{Username: "editor1", Password: "editor-pw"}, token,
	)
	assert.Equal(t, fiber.StatusConflict, res.status)

	res = s.do(t, http.MethodPut, "/api/users/"+s.admin.ID, fiber.Map{"role": "ADMIN"}, token)
	assert.Equal(t, fiber.StatusForbidden, res.status)
	assert.Equal(t, "You cannot change your own role", res.body["error"])
	res = s.do(t, http.MethodPut, "/api/users/"+s.admin.ID, fiber.Map{"role": "SUPER_ADMIN"}, token)
	assert.Equal(t, fiber.StatusForbidden, res.status)
	assert.Equal(t, "You cannot change your own role", res.body["error"])

	res = s.do(t, http.MethodDelete, "/api/users/"+s.admin.ID, nil, token)
	assert.Equal(t, fiber.StatusForbidden, res.status)
	assert.Equal(t, "You cannot delete your own account", res.body["error"])

	res = s.do(t, http.MethodPost, "/api/users/"+newID+"/reset-password", fiber.Map{"password": "reset-pw"}, token)
	assert.Equal(t, fiber.StatusOK, res.status)
	s.login(t, "editor1", "reset-pw")

	res = s.do(t, http.MethodDelete, "/api/users/"+newID, nil, token)
	assert.Equal(t, fiber.StatusOK, res.status)
	res = s.do(t, http.MethodGet, "/api/users/"+newID, nil, token)
	assert.Equal(t, fiber.StatusNotFound, res.status)

	res = s.do(t, http.MethodGet, "/api/audit-logs?action=CREATE&entity=USER", nil, token)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 1, res.body["total"])
}

func TestNewsEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.rotated(t, "staff", "staff-pw")

	res := s.do(t, http.MethodPost, "/api/news", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	var ids []string
	for _, title := range []string{"First", "Second"} {
		res = s.do(
			t, http.MethodPost, "/api/news",
			model.NewsInput{Title: title, Date: "2026-02-01", Images: []string{"/uploads/" + title + ".png"}}, token,
		)
		require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
		ids = append(ids, res.body["id"].(string))
	}

	res = s.do(t, http.MethodPut, "/api/news/order", reorderRequest{IDs: []string{ids[1], ids[0]}}, token)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))

	res = s.do(t, http.MethodGet, "/api/news", nil, "")
	require.Equal(t, fiber.StatusOK, res.status)
	var list []model.NewsArticle
	require.NoError(t, json.Unmarshal(res.raw, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Title)
	require.Len(t, list[0].Images, 1)

	res = s.do(t, http.MethodDelete, "/api/news/"+ids[0], nil, token)
	assert.Equal(t, fiber.StatusOK, res.status)
	res = s.do(t, http.MethodGet, "/api/news/"+ids[0], nil, "")
	assert.Equal(t, fiber.StatusNotFound, res.status)
}

func TestMenuEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.rotated(t, "staff", "staff-pw")

	links := []model.NavLinkInput{
		{Name: "Home", Href: "/"},
		{Name: "About", Href: "/about", Submenu: []model.NavLinkInput{{Name: "Team", Href: "/about/team"}}},
	}
	res := s.do(t, http.MethodPut, "/api/navlinks", links, token)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	assert.EqualValues(t, 2, res.body["count"])

	res = s.do(t, http.MethodGet, "/api/navlinks", nil, "")
	require.Equal(t, fiber.StatusOK, res.status)
	var got []model.NavLinkInput
	require.NoError(t, json.Unmarshal(res.raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Team", got[1].Submenu[0].Name)

	res = s.do(t, http.MethodPut, "/api/griditems", []model.GridItem{{IconName: "heart", Label: "Cardiology"}}, token)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	entries, _, err := s.backends.Audit.List(model.AuditQuery{Entity: model.AuditEntityService})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSlidesEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.rotated(t, "staff", "staff-pw")

	res := s.do(t, http.MethodPost, "/api/slides", fiber.Map{"imageUrl": "/uploads/a.png", "order": 1}, token)
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	id := res.body["id"].(string)

	res = s.do(t, http.MethodPut, "/api/slides/"+id, fiber.Map{"isActive": false}, token)
	require.Equal(t, fiber.StatusOK, res.status)

	res = s.do(t, http.MethodGet, "/api/slides", nil, "")
	var active []model.Slide
	require.NoError(t, json.Unmarshal(res.raw, &active))
	assert.Empty(t, active)
	res = s.do(t, http.MethodGet, "/api/slides?all=true", nil, "")
	assert.Contains(t, string(res.raw), id)
}

func multipartRequest(t *testing.T, path, field, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadAndResources(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.rotated(t, "staff", "staff-pw")

	req := multipartRequest(t, "/api/upload", "file", "report.pdf", "application/pdf", []byte("%PDF-1.4"))
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	res := s.send(t, req)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	fileURL := res.body["fileUrl"].(string)
	assert.True(t, strings.HasPrefix(fileURL, "/uploads/"))
	assert.Equal(t, "report.pdf", res.body["originalName"])

	req = multipartRequest(t, "/api/upload", "file", "setup.exe", "application/octet-stream", []byte("MZ"))
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	res = s.send(t, req)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = s.do(
		t, http.MethodPost, "/api/resources",
		model.ResourceInput{Title: "Annual report", Category: "reports", FileURL: fileURL, FileType: "pdf"}, token,
	)
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	id := res.body["id"].(string)

	res = s.do(t, http.MethodGet, "/api/resources/category/reports", nil, "")
	assert.Contains(t, string(res.raw), "Annual report")
	res = s.do(t, http.MethodGet, "/api/resources/category/other", nil, "")
	var other []model.Resource
	require.NoError(t, json.Unmarshal(res.raw, &other))
	assert.Empty(t, other)

	res = s.do(t, http.MethodDelete, "/api/resources/"+id, nil, token)
	assert.Equal(t, fiber.StatusOK, res.status)
}

func TestSettingsImageUpload(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.rotated(t, "staff", "staff-pw")

	req := multipartRequest(t, "/api/settings/logo", "logo", "logo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	res := s.send(t, req)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	logoURL := res.body["logoUrl"].(string)
	assert.Contains(t, logoURL, "hospital-logo-")

	req = multipartRequest(t, "/api/settings/about-image", "aboutImage", "a.pdf", "application/pdf", []byte("x"))
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	res = s.send(t, req)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = s.do(t, http.MethodGet, "/api/settings", nil, "")
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, logoURL, res.body[model.SettingHospitalLogo])
}
