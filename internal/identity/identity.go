// Package identity is a self-hosted identity provider: it creates password
// accounts, authenticates them, and issues short-lived ES256 identity tokens
// that the session registrar verifies.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/authform/pkg/form"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeUserNotFound      = "auth/user-not-found"
)

// MinPasswordLength is enforced by the provider, independently of any form.
const MinPasswordLength = 6

var (
	ErrInternal     = errors.New("internal error")
	ErrTokenInvalid = errors.New("token invalid")
)

// Error is a rejection the provider reports to its caller. Message is meant to
// be shown to the user as-is.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, &identity.Error{Code: identity.CodeEmailInUse}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func rejection(code string) *Error {
	var msg string
	switch code {
	case CodeEmailInUse:
		msg = "The email address is already in use by another account."
	case CodeInvalidEmail:
		msg = "The email address is badly formatted."
	case CodeWeakPassword:
		msg = fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength)
	case CodeUserNotFound:
		msg = "There is no account for this identifier."
	default:
		msg = "Invalid email or password."
	}
	return &Error{Code: code, Message: msg}
}

// PasswordMode controls bcrypt cost for password hashing.
type PasswordMode int

const (
	// PasswordModeProduction uses bcrypt.DefaultCost.
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost and panics outside of go test.
	PasswordModeTesting
)

func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		if !testing.Testing() {
			panic("identity: PasswordModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return bcrypt.DefaultCost
	}
}

type Account struct {
	UID       string
	Email     string
	Secret    []byte
	CreatedAt time.Time
}

// AccountStore handles persistence of provider accounts.
type AccountStore interface {
	InsertAccount(ctx context.Context, account *Account) error
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	DeleteAccount(ctx context.Context, uid string) (deleted bool, err error)
}

// Provider implements form.IdentityProvider and form.AccountDeleter.
type Provider struct {
	store        AccountStore
	tokens       *TokenIssuer
	passwordMode PasswordMode
}

var (
	_ form.IdentityProvider = (*Provider)(nil)
	_ form.AccountDeleter   = (*Provider)(nil)
)

func New(
	store AccountStore,
	tokens *TokenIssuer,
	passwordMode PasswordMode,
) *Provider {
	return &Provider{
		store:        store,
		tokens:       tokens,
		passwordMode: passwordMode,
	}
}

func (p *Provider) Tokens() *TokenIssuer {
	return p.tokens
}

func (p *Provider) CreateAccount(
	ctx context.Context,
	email string,
	password string,
) (
	form.UserHandle,
	error,
) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, rejection(CodeWeakPassword)
	}

	_, err = p.store.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, rejection(CodeEmailInUse)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: failed to look up account: %v", ErrInternal, err)
	}

	secret, err := bcrypt.GenerateFromPassword([]byte(password), p.passwordMode.Cost())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}

	account := &Account{
		UID:       uuid.NewString(),
		Email:     email,
		Secret:    secret,
		CreatedAt: time.Now(),
	}
	if err := p.store.InsertAccount(ctx, account); err != nil {
		if isUniqueViolation(err) {
			return nil, rejection(CodeEmailInUse)
		}
		return nil, fmt.Errorf("%w: failed to insert account: %v", ErrInternal, err)
	}

	log.Printf("identity: created account %s\n", account.UID)
	return p.handle(account), nil
}

func (p *Provider) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (
	form.UserHandle,
	error,
) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	account, err := p.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rejection(CodeInvalidCredential)
		}
		return nil, fmt.Errorf("%w: failed to retrieve account: %v", ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword(account.Secret, []byte(password)); err != nil {
		return nil, rejection(CodeInvalidCredential)
	}

	return p.handle(account), nil
}

func (p *Provider) DeleteAccount(
	ctx context.Context,
	uid string,
) error {
	deleted, err := p.store.DeleteAccount(ctx, uid)
	if err != nil {
		return fmt.Errorf("%w: failed to delete account: %v", ErrInternal, err)
	}
	if !deleted {
		return rejection(CodeUserNotFound)
	}
	log.Printf("identity: deleted account %s\n", uid)
	return nil
}

func (p *Provider) handle(account *Account) *User {
	return &User{
		uid:    account.UID,
		email:  account.Email,
		tokens: p.tokens,
	}
}

// normalizeEmail lower-cases and trims an address so that lookups are
// case-insensitive, rejecting anything that is not a bare address.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", rejection(CodeInvalidEmail)
	}
	return email, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
