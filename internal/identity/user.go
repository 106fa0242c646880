package identity

import "context"

// User is the handle returned after account creation or sign-in.
type User struct {
	uid    string
	email  string
	tokens *TokenIssuer
}

func (u *User) UID() string   { return u.uid }
func (u *User) Email() string { return u.email }

// Token issues a fresh identity token for the user.
func (u *User) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if u.tokens == nil {
		return "", nil
	}
	return u.tokens.Issue(u.uid, u.email)
}
