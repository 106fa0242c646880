package api

import (
	"errors"
	"net/http"

	"git.sr.ht/~jakintosh/authform/internal/session"
)

type RegisterUserRequest struct {
	UID   string `json:"uid" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type RegisterUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterUser records the profile of a freshly created provider account.
// Conflicts are reported in the body with a 200 status.
func (a *API) RegisterUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterUserRequest
		if ok := decodeRequest(a, &req, w, r); !ok {
			return
		}

		reg, err := a.registrar.RegisterNewUser(r.Context(), req.UID, req.Name, req.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(RegisterUserResponse{
			Success: reg.Success,
			Message: reg.Message,
		}, w)
	}
}

type CreateSessionRequest struct {
	Email   string `json:"email" validate:"required,email"`
	IDToken string `json:"idToken" validate:"required"`
}

type CreateSessionResponse struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"`
}

// CreateSession exchanges an identity token for a session cookie.
func (a *API) CreateSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if ok := decodeRequest(a, &req, w, r); !ok {
			return
		}

		s, err := a.registrar.Establish(r.Context(), req.Email, req.IDToken)
		if err != nil {
			writeError(w, r, err)
			return
		}

		session.SetCookie(w, a.cookie, s)
		returnJson(CreateSessionResponse{
			UID:       s.UID,
			Name:      s.Name,
			Email:     s.Email,
			ExpiresAt: s.ExpiresAt.Unix(),
		}, w)
	}
}

// DeleteSession revokes the session named by the request cookie, if any, and
// clears the cookie.
func (a *API) DeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := session.CookieValue(r, a.cookie); id != "" {
			err := a.registrar.Revoke(r.Context(), id)
			if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
				writeError(w, r, err)
				return
			}
		}
		session.ClearCookie(w, a.cookie)
		w.WriteHeader(http.StatusOK)
	}
}
