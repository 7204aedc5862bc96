// Package client is a Go client for the infocms authentication API. It
// keeps the session token, throttles repeated failed logins locally and
// validates password changes before sending them.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/saraphi-hospital/infocms/internal/version"
)

// MinPasswordLength is the minimal length of a new password
const MinPasswordLength = 6

// DefaultCookieName is the name of the session cookie set by the server
const DefaultCookieName = "token"

// Errors returned before any request is sent
var (
	ErrWeakPassword     = errors.Errorf("Password must be at least %d characters long", MinPasswordLength)
	ErrPasswordMismatch = errors.New("Passwords do not match")
	ErrNotLoggedIn      = errors.New("not logged in")
)

// LockedOutError is returned by Login while the local Throttle refuses
// attempts
type LockedOutError struct {
	Remaining time.Duration
}

// Error implements the error interface
func (e *LockedOutError) Error() string {
	secs := int(e.Remaining.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("Too many failed attempts. Please wait %d seconds.", secs)
}

// APIError is a non-2xx answer of the server. Message is the server's error
// text, unchanged.
type APIError struct {
	StatusCode         int
	Message            string
	MustChangePassword bool
	RetryAfter         time.Duration
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

type errorBody struct {
	Error              string `json:"error"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

// User is the identity returned by the auth endpoints
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Session describes the signed in user
type Session struct {
	User               User   `json:"user"`
	MustChangePassword bool   `json:"mustChangePassword"`
	Message            string `json:"message,omitempty"`
}

// Client talks to one infocms server
type Client struct {
	http       *resty.Client
	throttle   *Throttle
	cookieName string
	token      string
}

// Option configures a Client
type Option func(*Client)

// WithThrottle replaces the default login Throttle
func WithThrottle(t *Throttle) Option {
	return func(c *Client) {
		c.throttle = t
	}
}

// WithToken starts the Client with an existing session token
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithCookieName sets the session cookie name if the server uses a custom one
func WithCookieName(name string) Option {
	return func(c *Client) {
		c.cookieName = name
	}
}

// WithHTTPClient uses hc for all requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// New creates a Client for the server at baseURL, e.g. https://cms.example.org
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:       resty.New(),
		throttle:   NewThrottle(),
		cookieName: DefaultCookieName,
	}
	for _, o := range opts {
		o(c)
	}
	c.http.SetBaseURL(baseURL).
		SetHeader("User-Agent", version.UserAgent()).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second).
		SetCookieJar(nil)
	return c
}

// Token returns the current session token; empty if not logged in
func (c *Client) Token() string {
	return c.token
}

// Throttle returns the login Throttle
func (c *Client) Throttle() *Throttle {
	return c.throttle
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if c.token != "" {
		r.SetCookie(&http.Cookie{Name: c.cookieName, Value: c.token})
	}
	return r
}

func apiError(resp *resty.Response) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode(),
		Message:    http.StatusText(resp.StatusCode()),
	}
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		e.Message = body.Error
		e.MustChangePassword = body.MustChangePassword
	}
	if s := resp.Header().Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}

// Login signs in. While the local Throttle is engaged no request is sent and
// a *LockedOutError is returned. Server errors are returned as *APIError.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	if wait, ok := c.throttle.Allow(); !ok {
		return nil, &LockedOutError{Remaining: wait}
	}
	var session Session
	resp, err := c.request(ctx).
		SetBody(
			map[string]string{
				"username": username,
				"password": password,
			},
		).
		SetResult(&session).
		Post("/api/auth/login")
	if err != nil {
		return nil, errors.Wrap(err, "login request failed")
	}
	if resp.IsError() {
		c.throttle.Failure()
		return nil, apiError(resp)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName {
			c.token = ck.Value
		}
	}
	if c.token == "" {
		return nil, errors.New("server did not set a session cookie")
	}
	c.throttle.Success()
	return &session, nil
}

// Logout ends the session on the server and forgets the token
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.request(ctx).Post("/api/auth/logout")
	if err != nil {
		return errors.Wrap(err, "logout request failed")
	}
	c.token = ""
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// Me returns the current session
func (c *Client) Me(ctx context.Context) (*Session, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}
	var session Session
	resp, err := c.request(ctx).SetResult(&session).Get("/api/auth/me")
	if err != nil {
		return nil, errors.Wrap(err, "session request failed")
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &session, nil
}

// ValidateNewPassword checks the password policy and the confirmation
func ValidateNewPassword(newPassword, confirm string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

// ChangePassword changes the password of the signed in user. current may be
// empty for a forced change; the server decides which kind applies.
func (c *Client) ChangePassword(ctx context.Context, current, newPassword, confirm string) error {
	if err := ValidateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	if c.token == "" {
		return ErrNotLoggedIn
	}
	body := map[string]string{"newPassword": newPassword}
	if current != "" {
		body["currentPassword"] = current
	}
	resp, err := c.request(ctx).SetBody(body).Patch("/api/users/me/password")
	if err != nil {
		return errors.Wrap(err, "password change request failed")
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}
