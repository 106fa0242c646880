// Package client talks to the authform session endpoints over HTTP.
//
// A Client satisfies the session registrar of the form package
// (git.sr.ht/~jakintosh/authform/pkg/form), so a form can run against a
// remote authform server:
//
//	c, _ := client.New("https://auth.example.com")
//	controller := form.NewController(form.LoginMode, provider, c)
//
// Session cookies are kept in the Client's cookie jar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"git.sr.ht/~jakintosh/authform/pkg/form"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)
const LogLevelDefault = LogLevelError

const sessionCookieName = "session"

var (
	ErrRequest         = errors.New("failed to reach session endpoint")
	ErrResponse        = errors.New("invalid session response")
	ErrTokenRejected   = errors.New("identity token rejected")
	ErrProfileNotFound = errors.New("user does not exist, create an account")
)

// Registration is the reply of the registration endpoint.
type Registration = form.Registration

type Session struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"`
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar must be set for
// sessions to be remembered.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogLevel(level LogLevel) Option {
	return func(c *Client) {
		c.logLevel = level
	}
}

type Client struct {
	baseURL  *url.URL
	http     *http.Client
	logLevel LogLevel
}

var _ form.SessionRegistrar = (*Client)(nil)

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:  u,
		http:     &http.Client{Jar: jar},
		logLevel: LogLevelDefault,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) log(level LogLevel, format string, v ...any) {
	if c.logLevel >= level {
		log.Printf(format, v...)
	}
}

func (c *Client) RegisterNewUser(
	ctx context.Context,
	uid string,
	name string,
	email string,
) (
	Registration,
	error,
) {
	req := map[string]string{"uid": uid, "name": name, "email": email}
	var reg Registration
	if err := c.call(ctx, http.MethodPost, "/api/session/register", req, &reg); err != nil {
		return Registration{}, err
	}
	c.log(LogLevelInfo, "client: registered %s: %s\n", uid, reg.Message)
	return reg, nil
}

func (c *Client) EstablishSession(
	ctx context.Context,
	email string,
	token string,
) error {
	_, err := c.CreateSession(ctx, email, token)
	return err
}

// CreateSession exchanges an identity token for a session. The session
// cookie is stored in the client's jar.
func (c *Client) CreateSession(
	ctx context.Context,
	email string,
	token string,
) (
	*Session,
	error,
) {
	req := map[string]string{"email": email, "idToken": token}
	s := &Session{}
	if err := c.call(ctx, http.MethodPost, "/api/session", req, s); err != nil {
		return nil, err
	}
	c.log(LogLevelInfo, "client: established session for %s\n", s.UID)
	return s, nil
}

// DeleteSession revokes the current session, if any.
func (c *Client) DeleteSession(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/api/session", nil, nil)
}

// SessionCookie returns the session cookie held for the server, or nil.
func (c *Client) SessionCookie() *http.Cookie {
	if c.http.Jar == nil {
		return nil
	}
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	return nil
}

func (c *Client) call(
	ctx context.Context,
	method string,
	path string,
	body any,
	response any,
) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		// keep context errors visible to errors.Is
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrTokenRejected
	case http.StatusNotFound:
		return ErrProfileNotFound
	default:
		c.log(LogLevelDebug, "client: %s %s returned %d\n", method, path, res.StatusCode)
		return fmt.Errorf("%w: status %d", ErrResponse, res.StatusCode)
	}

	if response == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(response); err != nil {
		return fmt.Errorf("%w: %v", ErrResponse, err)
	}
	return nil
}
