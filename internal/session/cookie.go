package session

import (
	"context"
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/authform/pkg/form"
)

const DefaultCookieName = "session"

type CookieConfig struct {
	Name   string
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func SetCookie(w http.ResponseWriter, config CookieConfig, s *Session) {
	maxAge := time.Until(s.ExpiresAt).Seconds()
	http.SetCookie(w, &http.Cookie{
		Name:     config.name(),
		Path:     "/",
		Value:    s.ID,
		MaxAge:   int(maxAge),
		SameSite: http.SameSiteStrictMode,
		Secure:   config.Secure,
		HttpOnly: true,
	})
}

func ClearCookie(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:   config.name(),
		Path:   "/",
		MaxAge: -1,
	})
}

// CookieValue returns the session id carried by r, or "".
func CookieValue(r *http.Request, config CookieConfig) string {
	cookie, err := r.Cookie(config.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Binding is a Registrar tied to one HTTP response: establishing a session
// also sets its cookie.
type Binding struct {
	registrar *Registrar
	w         http.ResponseWriter
	config    CookieConfig
}

var _ form.SessionRegistrar = (*Binding)(nil)

func (r *Registrar) Bind(w http.ResponseWriter, config CookieConfig) *Binding {
	return &Binding{
		registrar: r,
		w:         w,
		config:    config,
	}
}

func (b *Binding) RegisterNewUser(
	ctx context.Context,
	uid string,
	name string,
	email string,
) (
	form.Registration,
	error,
) {
	return b.registrar.RegisterNewUser(ctx, uid, name, email)
}

func (b *Binding) EstablishSession(
	ctx context.Context,
	email string,
	token string,
) error {
	s, err := b.registrar.Establish(ctx, email, token)
	if err != nil {
		return err
	}
	SetCookie(b.w, b.config, s)
	return nil
}
