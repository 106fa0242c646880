// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"context"
	"crypto/ecdsa"
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/authform/internal/api"
	"git.sr.ht/~jakintosh/authform/internal/app"
	"git.sr.ht/~jakintosh/authform/internal/database"
	"git.sr.ht/~jakintosh/authform/internal/identity"
	"git.sr.ht/~jakintosh/authform/internal/resources"
	"git.sr.ht/~jakintosh/authform/internal/routing"
	"git.sr.ht/~jakintosh/authform/internal/session"
)

const (
	TestIssuer   = "test.authform.local"
	TestAudience = "authform-test"
	TestBrand    = "PrepWise"
	TestTagline  = "Practice job interviews with AI"
)

var (
	sharedSigningKey     *ecdsa.PrivateKey
	sharedSigningKeyOnce sync.Once
)

// getSharedSigningKey returns a cached ECDSA signing key for tests.
// This avoids the overhead of generating a new key for each test.
func getSharedSigningKey() *ecdsa.PrivateKey {
	sharedSigningKeyOnce.Do(func() {
		key, err := identity.GenerateSigningKey()
		if err != nil {
			panic("failed to generate shared signing key: " + err.Error())
		}
		sharedSigningKey = key
	})
	return sharedSigningKey
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB        *database.SQLiteStore
	Tokens    *identity.TokenIssuer
	Provider  *identity.Provider
	Registrar *session.Registrar
	Templates *resources.Templates
	Cookie    session.CookieConfig
	Router    http.Handler
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	// create in-memory SQLite database
	db := database.NewSQLiteStore(":memory:")

	// use cached signing key (generated once across all tests)
	tokens := identity.NewTokenIssuer(getSharedSigningKey(), TestIssuer, TestAudience, time.Hour)

	provider := identity.New(
		db.AccountStore(),
		tokens,
		identity.PasswordModeTesting,
	)
	registrar := session.NewRegistrar(
		db.ProfileStore(),
		db.SessionStore(),
		tokens,
		time.Hour,
	)

	templates, err := resources.LoadTemplates("")
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}

	// setup cleanup
	t.Cleanup(func() {
		_ = db.Close()
	})

	return &TestEnv{
		DB:        db,
		Tokens:    tokens,
		Provider:  provider,
		Registrar: registrar,
		Templates: templates,
		Cookie:    session.CookieConfig{Name: session.DefaultCookieName},
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the full router
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	a := app.New(app.Options{
		Provider:  env.Provider,
		Registrar: env.Registrar,
		Templates: env.Templates,
		Cookie:    env.Cookie,
		Brand:     TestBrand,
		Tagline:   TestTagline,
	})
	s := api.New(env.Registrar, env.Cookie)
	env.Router = routing.BuildRouter(a, s)
	return env
}

// RegisterTestUser creates a provider account and its profile, returning the uid
func (env *TestEnv) RegisterTestUser(
	t *testing.T,
	name string,
	email string,
	password string,
) string {
	t.Helper()
	ctx := context.Background()
	user, err := env.Provider.CreateAccount(ctx, email, password)
	if err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	reg, err := env.Registrar.RegisterNewUser(ctx, user.UID(), name, email)
	if err != nil || !reg.Success {
		t.Fatalf("failed to register test user: %v %+v", err, reg)
	}
	return user.UID()
}

// SignInTestUser authenticates an existing user and stores a session for them
func (env *TestEnv) SignInTestUser(
	t *testing.T,
	email string,
	password string,
) *session.Session {
	t.Helper()
	ctx := context.Background()
	user, err := env.Provider.Authenticate(ctx, email, password)
	if err != nil {
		t.Fatalf("failed to authenticate test user: %v", err)
	}
	token, err := user.Token(ctx)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	s, err := env.Registrar.Establish(ctx, email, token)
	if err != nil {
		t.Fatalf("failed to establish test session: %v", err)
	}
	return s
}

// IssueTestIDToken signs an identity token for any subject and email
func (env *TestEnv) IssueTestIDToken(
	t *testing.T,
	uid string,
	email string,
) string {
	t.Helper()
	token, err := env.Tokens.Issue(uid, email)
	if err != nil {
		t.Fatalf("failed to issue test id token: %v", err)
	}
	return token
}

// SessionCookie returns a Cookie header carrying the given session id
func (env *TestEnv) SessionCookie(id string) Header {
	return Cookie(env.Cookie.Name, id)
}
