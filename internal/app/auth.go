package app

import (
	"errors"
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/authform/pkg/form"
)

type authPage struct {
	Title    string
	Brand    string
	Tagline  string
	Flash    *flash
	Action   string
	IsSignIn bool
	Fields   form.Fields
	Errors   form.Errors
	Submit   string
	Prompt   string
	LinkHref string
	LinkText string
}

func (a *App) authModel(mode form.Mode) authPage {
	page := authPage{
		Brand:   a.brand,
		Tagline: a.tagline,
		Errors:  form.Errors{},
	}
	if mode == form.LoginMode {
		page.Title = "Sign In"
		page.Action = loginPath
		page.IsSignIn = true
		page.Submit = "Sign In"
		page.Prompt = "No account yet?"
		page.LinkHref = "/sign-up"
		page.LinkText = "Sign Up"
	} else {
		page.Title = "Sign Up"
		page.Action = "/sign-up"
		page.Submit = "Create an Account"
		page.Prompt = "Have an account already?"
		page.LinkHref = loginPath
		page.LinkText = "Sign In"
	}
	return page
}

func (a *App) AuthPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, ok := routeMode(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		model := a.authModel(mode)
		model.Flash = takeFlash(w, r)
		a.render(w, r, http.StatusOK, "auth.html", model)
	}
}

// Submit runs a posted form through a fresh controller. Successful
// submissions redirect with a flash; everything else re-renders the form.
func (a *App) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, ok := routeMode(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			logAppErr(r, fmt.Sprintf("couldn't parse form: %v", err))
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(badRequestHTML))
			return
		}

		fields := form.Fields{
			Email:    r.PostForm.Get(form.FieldEmail),
			Password: r.PostForm.Get(form.FieldPassword),
		}
		if mode == form.RegisterMode {
			fields.Name = r.PostForm.Get(form.FieldName)
		}

		binding := a.registrar.Bind(w, a.cookie)
		controller := form.NewController(mode, a.provider, binding, a.formOptions...)
		outcome, err := controller.Submit(r.Context(), fields)

		var invalid *form.ValidationError
		switch {
		case errors.As(err, &invalid):
			model := a.authModel(mode)
			model.Fields = fields.Redacted()
			model.Errors = invalid.Errors
			a.render(w, r, http.StatusBadRequest, "auth.html", model)
			return
		case err != nil:
			logAppErr(r, fmt.Sprintf("couldn't submit form: %v", err))
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(serverErrorHTML))
			return
		}

		if outcome.Succeeded() {
			setFlash(w, flashSuccess, outcome.Notice())
			http.Redirect(w, r, outcome.Redirect, http.StatusSeeOther)
			return
		}

		if outcome.Kind == form.UnexpectedFailure {
			logAppErr(r, fmt.Sprintf("%s failed: %v", mode, outcome.Err))
		}
		model := a.authModel(mode)
		model.Fields = fields.Redacted()
		model.Flash = &flash{Kind: flashError, Message: outcome.Notice()}
		a.render(w, r, outcomeStatus(outcome.Kind), "auth.html", model)
	}
}

func outcomeStatus(kind form.OutcomeKind) int {
	switch kind {
	case form.ProviderRejected:
		return http.StatusUnauthorized
	case form.RegistrationRejected:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
