// Package app serves the HTML side of the service: the sign-in and sign-up
// pages, the signed-in home page and sign-out.
package app

import (
	"fmt"
	"log"
	"net/http"

	"git.sr.ht/~jakintosh/authform/internal/resources"
	"git.sr.ht/~jakintosh/authform/internal/session"
	"git.sr.ht/~jakintosh/authform/pkg/form"
	"github.com/gorilla/mux"
)

const (
	loginPath = "/sign-in"
	rootPath  = "/"
)

type Options struct {
	Provider  form.IdentityProvider
	Registrar *session.Registrar
	Templates *resources.Templates
	Cookie    session.CookieConfig
	Brand     string
	Tagline   string

	// FormOptions are passed to every controller the app builds.
	FormOptions []form.Option
}

type App struct {
	provider    form.IdentityProvider
	registrar   *session.Registrar
	templates   *resources.Templates
	cookie      session.CookieConfig
	brand       string
	tagline     string
	formOptions []form.Option
}

func New(opts Options) *App {
	formOptions := append(
		[]form.Option{form.WithRedirects(loginPath, rootPath)},
		opts.FormOptions...,
	)
	return &App{
		provider:    opts.Provider,
		registrar:   opts.Registrar,
		templates:   opts.Templates,
		cookie:      opts.Cookie,
		brand:       opts.Brand,
		tagline:     opts.Tagline,
		formOptions: formOptions,
	}
}

// Router returns a router serving only the app's pages.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()
	a.Register(r)
	return r
}

// Register adds the app's routes to r.
func (a *App) Register(r *mux.Router) {
	r.HandleFunc("/{mode:sign-in|sign-up}", a.AuthPage()).Methods(http.MethodGet)
	r.HandleFunc("/{mode:sign-in|sign-up}", a.Submit()).Methods(http.MethodPost)
	r.HandleFunc("/sign-out", a.SignOut()).Methods(http.MethodPost)
	r.HandleFunc(rootPath, a.Home()).Methods(http.MethodGet)
}

func (a *App) render(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	name string,
	model any,
) {
	page, err := a.templates.Render(name, model)
	if err != nil {
		logAppErr(r, fmt.Sprintf("couldn't render template: %v", err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(serverErrorHTML))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(page)
}

// routeMode reads the form mode from the route; the path names it.
func routeMode(r *http.Request) (form.Mode, bool) {
	return form.ParseMode(mux.Vars(r)["mode"])
}

func logAppErr(r *http.Request, msg string) {
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}

const serverErrorHTML = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Server Error</title></head>
<body><h1>Something went wrong</h1><p>Please try again later.</p></body></html>
`

const badRequestHTML = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>Bad Request</title></head>
<body><h1>Bad request</h1><p>The form could not be read.</p></body></html>
`
