// Package api exposes the session registrar as JSON endpoints, for clients
// that talk to the identity provider themselves.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"git.sr.ht/~jakintosh/authform/internal/session"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type API struct {
	registrar *session.Registrar
	cookie    session.CookieConfig
	validate  *validator.Validate
}

func New(
	registrar *session.Registrar,
	cookie session.CookieConfig,
) *API {
	return &API{
		registrar: registrar,
		cookie:    cookie,
		validate:  validator.New(),
	}
}

// Router returns a router serving only the API routes.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	a.Register(r)
	return r
}

// Register adds the API routes under /api to r.
func (a *API) Register(r *mux.Router) {
	s := r.PathPrefix("/api/").Subrouter()
	s.HandleFunc("/session/register", a.RegisterUser()).Methods(http.MethodPost)
	s.HandleFunc("/session", a.CreateSession()).Methods(http.MethodPost)
	s.HandleFunc("/session", a.DeleteSession()).Methods(http.MethodDelete)
}

// decodeRequest decodes the JSON body into req and checks its validate tags.
func decodeRequest[T any](
	a *API,
	req *T,
	w http.ResponseWriter,
	r *http.Request,
) bool {
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		logApiErr(r, "bad json request")
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	err = a.validate.Struct(req)
	if err != nil {
		logApiErr(r, fmt.Sprintf("invalid request: %v", err))
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

// writeError maps registrar errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrTokenInvalid),
		errors.Is(err, session.ErrTokenMismatch):
		logApiErr(r, fmt.Sprintf("rejected token: %v", err))
		w.WriteHeader(http.StatusUnauthorized)
	case errors.Is(err, session.ErrProfileNotFound):
		logApiErr(r, err.Error())
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, session.ErrSessionNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		logApiErr(r, fmt.Sprintf("internal error: %v", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func logApiErr(r *http.Request, msg string) {
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}
