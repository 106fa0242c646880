package app

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	flashCookieName = "flash"
	flashMaxAge     = 60

	flashSuccess = "success"
	flashError   = "error"
)

// flash is a one-shot notification carried across a redirect.
type flash struct {
	Kind    string
	Message string
}

func setFlash(w http.ResponseWriter, kind string, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(kind + "\n" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Path:     "/",
		Value:    value,
		MaxAge:   flashMaxAge,
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
	})
}

// takeFlash returns the pending flash of r, if any, and clears it.
func takeFlash(w http.ResponseWriter, r *http.Request) *flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookieName,
		Path:   "/",
		MaxAge: -1,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(raw), "\n")
	if !ok || (kind != flashSuccess && kind != flashError) {
		return nil
	}
	return &flash{Kind: kind, Message: message}
}
