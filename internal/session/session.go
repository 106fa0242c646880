// Package session is the server side of the authentication form: it records
// a local profile for every provider account, turns verified identity tokens
// into sessions, and keeps those sessions in a Store.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/authform/pkg/form"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrProfileNotFound = errors.New("user does not exist, create an account")
	ErrProfileExists   = errors.New("profile already exists")
	ErrTokenInvalid    = errors.New("identity token invalid")
	ErrTokenMismatch   = errors.New("identity token does not match email")
	ErrInternal        = errors.New("internal error")
)

const (
	msgCreated         = "Account created successfully. Please sign in."
	msgUserExists      = "User already exists. Please sign in."
	msgEmailRegistered = "Email is already registered."
)

// Profile links a provider account to application data.
type Profile struct {
	UID       string
	Name      string
	Email     string
	CreatedAt time.Time
}

type Session struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ProfileStore handles persistence of profiles. Lookups of a missing profile
// return ErrProfileNotFound, inserting a duplicate uid or email returns
// ErrProfileExists.
type ProfileStore interface {
	InsertProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, uid string) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
}

// Store handles persistence of sessions. GetSession returns
// ErrSessionNotFound for an unknown id.
type Store interface {
	PutSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) (deleted bool, err error)
}

// TokenVerifier checks an identity token and returns its subject and email.
type TokenVerifier interface {
	VerifyIDToken(token string) (subject string, email string, err error)
}

// Registrar implements form.SessionRegistrar without touching HTTP; use Bind
// to also deliver the session cookie.
type Registrar struct {
	profiles ProfileStore
	sessions Store
	verifier TokenVerifier
	lifetime time.Duration
}

var _ form.SessionRegistrar = (*Registrar)(nil)

func NewRegistrar(
	profiles ProfileStore,
	sessions Store,
	verifier TokenVerifier,
	lifetime time.Duration,
) *Registrar {
	return &Registrar{
		profiles: profiles,
		sessions: sessions,
		verifier: verifier,
		lifetime: lifetime,
	}
}

// RegisterNewUser records a profile for a freshly created provider account.
// Conflicts are reported in the Registration, not as errors.
func (r *Registrar) RegisterNewUser(
	ctx context.Context,
	uid string,
	name string,
	email string,
) (
	form.Registration,
	error,
) {
	email = normalizeEmail(email)

	_, err := r.profiles.GetProfile(ctx, uid)
	switch {
	case err == nil:
		return form.Registration{Success: false, Message: msgUserExists}, nil
	case !errors.Is(err, ErrProfileNotFound):
		return form.Registration{}, fmt.Errorf("%w: failed to look up profile: %v", ErrInternal, err)
	}

	_, err = r.profiles.GetProfileByEmail(ctx, email)
	switch {
	case err == nil:
		return form.Registration{Success: false, Message: msgEmailRegistered}, nil
	case !errors.Is(err, ErrProfileNotFound):
		return form.Registration{}, fmt.Errorf("%w: failed to look up profile: %v", ErrInternal, err)
	}

	err = r.profiles.InsertProfile(ctx, &Profile{
		UID:       uid,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now(),
	})
	if errors.Is(err, ErrProfileExists) {
		return form.Registration{Success: false, Message: msgEmailRegistered}, nil
	}
	if err != nil {
		return form.Registration{}, fmt.Errorf("%w: failed to insert profile: %v", ErrInternal, err)
	}

	log.Printf("session: registered profile for %s\n", uid)
	return form.Registration{Success: true, Message: msgCreated}, nil
}

// EstablishSession verifies token and stores a new session for its subject.
func (r *Registrar) EstablishSession(
	ctx context.Context,
	email string,
	token string,
) error {
	_, err := r.Establish(ctx, email, token)
	return err
}

// Establish is EstablishSession returning the created session.
func (r *Registrar) Establish(
	ctx context.Context,
	email string,
	token string,
) (
	*Session,
	error,
) {
	subject, tokenEmail, err := r.verifier.VerifyIDToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if normalizeEmail(tokenEmail) != normalizeEmail(email) {
		return nil, ErrTokenMismatch
	}

	profile, err := r.profiles.GetProfile(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to look up profile: %v", ErrInternal, err)
	}

	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := time.Now()
	s := &Session{
		ID:        id,
		UID:       profile.UID,
		Name:      profile.Name,
		Email:     profile.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(r.lifetime),
	}
	if err := r.sessions.PutSession(ctx, s); err != nil {
		return nil, fmt.Errorf("%w: failed to store session: %v", ErrInternal, err)
	}

	log.Printf("session: established session for %s\n", profile.UID)
	return s, nil
}

// Lookup returns a live session. Expired sessions are removed on sight.
func (r *Registrar) Lookup(
	ctx context.Context,
	id string,
) (
	*Session,
	error,
) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	s, err := r.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Expired(time.Now()) {
		if _, err := r.sessions.DeleteSession(ctx, id); err != nil {
			log.Printf("session: couldn't delete expired session: %v\n", err)
		}
		return nil, ErrSessionExpired
	}
	return s, nil
}

func (r *Registrar) Revoke(
	ctx context.Context,
	id string,
) error {
	deleted, err := r.sessions.DeleteSession(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete session: %v", ErrInternal, err)
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}

func newSessionID() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate session id: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
