// Package authformtest runs a complete authform server in-process, backed by
// an in-memory database, for tests of applications that integrate with it.
//
//	func TestSignIn(t *testing.T) {
//	    srv := authformtest.NewServer(t)
//	    srv.CreateUser(t, "Alice", "alice@example.com", "password123")
//	    token := srv.IDToken(t, "alice@example.com", "password123")
//	    // exchange token at srv.URL + "/api/session"
//	}
//
// Passwords are hashed at minimum cost, so a Server must only be used from
// go test.
package authformtest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/authform/internal/api"
	"git.sr.ht/~jakintosh/authform/internal/app"
	"git.sr.ht/~jakintosh/authform/internal/database"
	"git.sr.ht/~jakintosh/authform/internal/identity"
	"git.sr.ht/~jakintosh/authform/internal/resources"
	"git.sr.ht/~jakintosh/authform/internal/routing"
	"git.sr.ht/~jakintosh/authform/internal/session"
	"git.sr.ht/~jakintosh/authform/pkg/form"
)

const (
	Issuer   = "authformtest.local"
	Audience = "authformtest"
)

type Server struct {
	*httptest.Server

	db        *database.SQLiteStore
	provider  *identity.Provider
	registrar *session.Registrar
}

// NewServer starts a server that is closed when t ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	key, err := identity.GenerateSigningKey()
	if err != nil {
		t.Fatalf("authformtest: failed to generate signing key: %v", err)
	}
	templates, err := resources.LoadTemplates("")
	if err != nil {
		t.Fatalf("authformtest: failed to load templates: %v", err)
	}

	db := database.NewSQLiteStore(":memory:")
	tokens := identity.NewTokenIssuer(key, Issuer, Audience, time.Hour)
	provider := identity.New(db.AccountStore(), tokens, identity.PasswordModeTesting)
	registrar := session.NewRegistrar(db.ProfileStore(), db.SessionStore(), tokens, time.Hour)

	cookie := session.CookieConfig{Name: session.DefaultCookieName}
	a := app.New(app.Options{
		Provider:  provider,
		Registrar: registrar,
		Templates: templates,
		Cookie:    cookie,
		Brand:     "authformtest",
	})
	s := api.New(registrar, cookie)

	srv := &Server{
		Server:    httptest.NewServer(routing.BuildRouter(a, s)),
		db:        db,
		provider:  provider,
		registrar: registrar,
	}
	t.Cleanup(func() {
		srv.Close()
		_ = db.Close()
	})
	return srv
}

// Provider returns the identity provider behind the server, for driving a
// form controller against it.
func (s *Server) Provider() form.IdentityProvider {
	return s.provider
}

// CreateAccount creates a provider account without a profile, as a client
// does before calling the registration endpoint. It returns the uid.
func (s *Server) CreateAccount(
	t testing.TB,
	email string,
	password string,
) string {
	t.Helper()
	user, err := s.provider.CreateAccount(context.Background(), email, password)
	if err != nil {
		t.Fatalf("authformtest: failed to create account: %v", err)
	}
	return user.UID()
}

// CreateUser creates an account and its profile. It returns the uid.
func (s *Server) CreateUser(
	t testing.TB,
	name string,
	email string,
	password string,
) string {
	t.Helper()
	uid := s.CreateAccount(t, email, password)
	reg, err := s.registrar.RegisterNewUser(context.Background(), uid, name, email)
	if err != nil || !reg.Success {
		t.Fatalf("authformtest: failed to register user: %v %+v", err, reg)
	}
	return uid
}

// IDToken signs in and returns a fresh identity token.
func (s *Server) IDToken(
	t testing.TB,
	email string,
	password string,
) string {
	t.Helper()
	ctx := context.Background()
	user, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		t.Fatalf("authformtest: failed to authenticate: %v", err)
	}
	token, err := user.Token(ctx)
	if err != nil {
		t.Fatalf("authformtest: failed to issue token: %v", err)
	}
	return token
}

// SessionValid reports whether id names a live session.
func (s *Server) SessionValid(id string) bool {
	_, err := s.registrar.Lookup(context.Background(), id)
	return err == nil
}
