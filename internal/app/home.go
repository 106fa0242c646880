package app

import (
	"errors"
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/authform/internal/session"
)

type homePage struct {
	Brand string
	Flash *flash
	Name  string
	Email string
}

// Home shows the signed-in user. Requests without a live session are sent to
// the sign-in page.
func (a *App) Home() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := session.CookieValue(r, a.cookie)
		s, err := a.registrar.Lookup(r.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrSessionNotFound) &&
				!errors.Is(err, session.ErrSessionExpired) {
				logAppErr(r, fmt.Sprintf("couldn't look up session: %v", err))
			}
			if id != "" {
				session.ClearCookie(w, a.cookie)
			}
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}

		model := homePage{
			Brand: a.brand,
			Flash: takeFlash(w, r),
			Name:  s.Name,
			Email: s.Email,
		}
		a.render(w, r, http.StatusOK, "home.html", model)
	}
}

func (a *App) SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := session.CookieValue(r, a.cookie); id != "" {
			err := a.registrar.Revoke(r.Context(), id)
			if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
				logAppErr(r, fmt.Sprintf("couldn't revoke session: %v", err))
			}
		}
		session.ClearCookie(w, a.cookie)
		setFlash(w, flashSuccess, "Signed out successfully.")
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
	}
}
