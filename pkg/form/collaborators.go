package form

import "context"

// IdentityProvider creates and authenticates provider accounts. Errors it
// returns are treated as rejections and their message is shown to the user.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email string, password string) (UserHandle, error)
	Authenticate(ctx context.Context, email string, password string) (UserHandle, error)
}

// UserHandle is a provider account as seen right after create or sign-in.
type UserHandle interface {
	UID() string
	// Token returns a short-lived identity token, or "" when none is available.
	Token(ctx context.Context) (string, error)
}

// AccountDeleter is an optional IdentityProvider capability used to undo an
// account creation whose local registration failed.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, uid string) error
}

// Registration is the answer of the session registrar to a new user.
type Registration struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SessionRegistrar links provider accounts to local profiles and establishes
// sessions from identity tokens.
type SessionRegistrar interface {
	RegisterNewUser(ctx context.Context, uid string, name string, email string) (Registration, error)
	EstablishSession(ctx context.Context, email string, token string) error
}
