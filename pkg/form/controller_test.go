package form_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"git.sr.ht/~jakintosh/authform/pkg/form"
)

var (
	validRegister = form.Fields{Name: "Alice", Email: "alice@example.com", Password: "password123"}
	validLogin    = form.Fields{Email: "alice@example.com", Password: "password123"}
)

func TestSubmit_InvalidFieldsContactNobody(t *testing.T) {
	t.Parallel()

	for _, mode := range []form.Mode{form.RegisterMode, form.LoginMode} {
		t.Run(mode.String(), func(t *testing.T) {
			provider := &fakeProvider{user: &fakeUser{uid: "u1", token: "tok"}}
			registrar := &fakeRegistrar{registration: form.Registration{Success: true}}
			c := form.NewController(mode, provider, registrar)

			// invalid input never reaches a collaborator
			_, err := c.Submit(context.Background(), form.Fields{Name: "Jo", Email: "bad", Password: "ab"})
			var verr *form.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !errors.Is(err, form.ErrInvalidFields) {
				t.Error("ValidationError should wrap ErrInvalidFields")
			}
			if provider.calls() != 0 || registrar.calls() != 0 {
				t.Errorf("collaborators called: provider=%d registrar=%d", provider.calls(), registrar.calls())
			}
			if c.State() != form.Idle {
				t.Errorf("state = %s, want idle", c.State())
			}
		})
	}
}

func TestSubmit_RegisterSuccess(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{user: &fakeUser{uid: "uid-1"}}
	registrar := &fakeRegistrar{registration: form.Registration{Success: true}}
	c := form.NewController(form.RegisterMode, provider, registrar)

	// full success redirects to the login entry point
	outcome, err := c.Submit(context.Background(), validRegister)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome.Kind != form.Success {
		t.Fatalf("outcome = %s, want success (%s)", outcome.Kind, outcome.Message)
	}
	if outcome.Redirect != "/sign-in" {
		t.Errorf("redirect = %q, want /sign-in", outcome.Redirect)
	}
	if outcome.Notice() != "Account created successfully. Please sign in." {
		t.Errorf("unexpected notice: %q", outcome.Notice())
	}
	if len(registrar.registered) != 1 || registrar.registered[0] != "uid-1" {
		t.Errorf("registrar got %v, want [uid-1]", registrar.registered)
	}
	if len(registrar.established) != 0 {
		t.Error("register flow should not establish a session")
	}
}

func TestSubmit_RegisterProviderRejected(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{err: errors.New("email already in use")}
	registrar := &fakeRegistrar{}
	c := form.NewController(form.RegisterMode, provider, registrar)

	// provider message is surfaced verbatim
	outcome, err := c.Submit(context.Background(), validRegister)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome.Kind != form.ProviderRejected {
		t.Fatalf("outcome = %s, want provider_rejected", outcome.Kind)
	}
	if outcome.Notice() != "email already in use" {
		t.Errorf("notice = %q", outcome.Notice())
	}
	if !errors.Is(outcome.Err, form.ErrProviderRejected) {
		t.Errorf("outcome error should wrap ErrProviderRejected: %v", outcome.Err)
	}
	if registrar.calls() != 0 {
		t.Error("registrar should not be called after provider rejection")
	}
}

func TestSubmit_RegistrationRejected(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{user: &fakeUser{uid: "uid-1"}}
	registrar := &fakeRegistrar{registration: form.Registration{Success: false, Message: "email taken"}}
	c := form.NewController(form.RegisterMode, provider, registrar)

	outcome, _ := c.Submit(context.Background(), validRegister)
	if outcome.Kind != form.RegistrationRejected {
		t.Fatalf("outcome = %s, want registration_rejected", outcome.Kind)
	}
	if outcome.Message != "email taken" {
		t.Errorf("message = %q, want 'email taken'", outcome.Message)
	}
	if outcome.Redirect != "" {
		t.Error("rejected outcome should not redirect")
	}
}

func TestSubmit_RegistrationRejectedRemovesOrphan(t *testing.T) {
	t.Parallel()
	inner := &fakeProvider{user: &fakeUser{uid: "uid-orphan"}}
	provider := deletingProvider{inner}
	registrar := &fakeRegistrar{registration: form.Registration{Message: "email taken"}}
	c := form.NewController(form.RegisterMode, provider, registrar)

	// provider account is deleted when registration is rejected
	_, _ = c.Submit(context.Background(), validRegister)
	if len(inner.deleted) != 1 || inner.deleted[0] != "uid-orphan" {
		t.Errorf("deleted = %v, want [uid-orphan]", inner.deleted)
	}
}

func TestSubmit_CompensationFailureKeepsOutcome(t *testing.T) {
	t.Parallel()
	inner := &fakeProvider{
		user:      &fakeUser{uid: "uid-1"},
		deleteErr: errors.New("provider down"),
	}
	registrar := &fakeRegistrar{registration: form.Registration{Message: "email taken"}}
	c := form.NewController(form.RegisterMode, deletingProvider{inner}, registrar)

	outcome, _ := c.Submit(context.Background(), validRegister)
	if outcome.Kind != form.RegistrationRejected || outcome.Message != "email taken" {
		t.Errorf("outcome = %s %q", outcome.Kind, outcome.Message)
	}
}

func TestSubmit_CompensationDisabled(t *testing.T) {
	t.Parallel()
	inner := &fakeProvider{user: &fakeUser{uid: "uid-1"}}
	registrar := &fakeRegistrar{registration: form.Registration{Success: false, Message: "email taken"}}
	c := form.NewController(form.RegisterMode, deletingProvider{inner}, registrar,
		form.WithCompensation(false),
	)

	outcome, _ := c.Submit(context.Background(), validRegister)
	if outcome.Kind != form.RegistrationRejected {
		t.Fatalf("outcome = %s, want registration_rejected", outcome.Kind)
	}
	if len(inner.deleted) != 0 {
		t.Errorf("compensation ran while disabled: %v", inner.deleted)
	}
}

func TestSubmit_RegistrarErrorIsUnexpected(t *testing.T) {
	t.Parallel()
	inner := &fakeProvider{user: &fakeUser{uid: "uid-1"}}
	registrar := &fakeRegistrar{registerErr: errors.New("malformed response")}
	c := form.NewController(form.RegisterMode, deletingProvider{inner}, registrar)

	outcome, _ := c.Submit(context.Background(), validRegister)
	if outcome.Kind != form.UnexpectedFailure {
		t.Fatalf("outcome = %s, want unexpected_failure", outcome.Kind)
	}
	if outcome.Notice() != "There was an error: malformed response" {
		t.Errorf("notice = %q", outcome.Notice())
	}
	if !errors.Is(outcome.Err, form.ErrUnexpected) {
		t.Error("outcome error should wrap ErrUnexpected")
	}

	// the registrar may have stored the profile before failing
	if len(inner.deleted) != 0 {
		t.Errorf("account removed after unconfirmed registration: %v", inner.deleted)
	}
}

func TestSubmit_RegistrarTimeoutKeepsAccount(t *testing.T) {
	t.Parallel()
	inner := &fakeProvider{user: &fakeUser{uid: "uid-1"}}
	registrar := &fakeRegistrar{registerErr: fmt.Errorf("register: %w", context.DeadlineExceeded)}
	c := form.NewController(form.RegisterMode, deletingProvider{inner}, registrar)

	outcome, _ := c.Submit(context.Background(), validRegister)
	if outcome.Kind != form.UnexpectedFailure {
		t.Fatalf("outcome = %s, want unexpected_failure", outcome.Kind)
	}
	if len(inner.deleted) != 0 {
		t.Errorf("account removed after timeout: %v", inner.deleted)
	}
}

func TestSubmit_RegistrarPanicKeepsAccount(t *testing.T) {
	t.Parallel()
	inner := &fakeProvider{user: &fakeUser{uid: "uid-1"}}
	registrar := &fakeRegistrar{panicWith: "connection reset"}
	c := form.NewController(form.RegisterMode, deletingProvider{inner}, registrar)

	// the panic is reported, the account stays
	outcome, err := c.Submit(context.Background(), validRegister)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome.Kind != form.UnexpectedFailure || outcome.Message != "connection reset" {
		t.Errorf("outcome = %s %q", outcome.Kind, outcome.Message)
	}
	if len(registrar.registered) != 1 {
		t.Errorf("registrar calls = %d, want 1", len(registrar.registered))
	}
	if len(inner.deleted) != 0 {
		t.Errorf("account removed after panic: %v", inner.deleted)
	}
	if c.State() != form.Idle {
		t.Errorf("state = %s, want idle after panic", c.State())
	}
}

func TestSubmit_LoginSuccess(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{user: &fakeUser{uid: "uid-1", token: "id-token"}}
	registrar := &fakeRegistrar{}
	c := form.NewController(form.LoginMode, provider, registrar)

	// valid login establishes a session and redirects to root
	outcome, err := c.Submit(context.Background(), validLogin)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome.Kind != form.Success || outcome.Redirect != "/" {
		t.Fatalf("outcome = %s redirect=%q", outcome.Kind, outcome.Redirect)
	}
	if outcome.Notice() != "Signed in successfully." {
		t.Errorf("notice = %q", outcome.Notice())
	}
	if len(registrar.tokens) != 1 || registrar.tokens[0] != "id-token" {
		t.Errorf("registrar tokens = %v", registrar.tokens)
	}
	if len(registrar.registered) != 0 {
		t.Error("login flow should not register a user")
	}
}

func TestSubmit_LoginEmptyToken(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{user: &fakeUser{uid: "uid-1", token: ""}}
	registrar := &fakeRegistrar{}
	c := form.NewController(form.LoginMode, provider, registrar)

	// empty token never reaches the registrar
	outcome, _ := c.Submit(context.Background(), validLogin)
	if outcome.Kind != form.ProviderRejected {
		t.Fatalf("outcome = %s, want provider_rejected", outcome.Kind)
	}
	if outcome.Message != "sign-in failed" {
		t.Errorf("message = %q", outcome.Message)
	}
	if outcome.Notice() != "Sign in failed. Please try again." {
		t.Errorf("notice = %q", outcome.Notice())
	}
	if registrar.calls() != 0 {
		t.Error("registrar should not be called without a token")
	}
}

func TestSubmit_LoginBadCredentials(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{err: errors.New("invalid credential")}
	registrar := &fakeRegistrar{}
	c := form.NewController(form.LoginMode, provider, registrar)

	outcome, _ := c.Submit(context.Background(), validLogin)
	if outcome.Kind != form.ProviderRejected || outcome.Message != "invalid credential" {
		t.Errorf("outcome = %s %q", outcome.Kind, outcome.Message)
	}
}

func TestSubmit_LoginTimeoutIsUnexpected(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{err: fmt.Errorf("sign in: %w", context.DeadlineExceeded)}
	c := form.NewController(form.LoginMode, provider, &fakeRegistrar{})

	outcome, _ := c.Submit(context.Background(), validLogin)
	if outcome.Kind != form.UnexpectedFailure {
		t.Errorf("outcome = %s, want unexpected_failure", outcome.Kind)
	}
	if !errors.Is(outcome.Err, context.DeadlineExceeded) {
		t.Error("outcome should keep the deadline error")
	}
}

func TestSubmit_LoginTokenErrorIsUnexpected(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{user: &fakeUser{uid: "uid-1", tokenErr: errors.New("token endpoint 502")}}
	registrar := &fakeRegistrar{}
	c := form.NewController(form.LoginMode, provider, registrar)

	outcome, _ := c.Submit(context.Background(), validLogin)
	if outcome.Kind != form.UnexpectedFailure {
		t.Fatalf("outcome = %s, want unexpected_failure", outcome.Kind)
	}
	if registrar.calls() != 0 {
		t.Error("registrar should not be called after token error")
	}
}

func TestSubmit_EstablishErrorIsUnexpected(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{user: &fakeUser{uid: "uid-1", token: "tok"}}
	registrar := &fakeRegistrar{establishErr: errors.New("session endpoint unreachable")}
	c := form.NewController(form.LoginMode, provider, registrar)

	outcome, _ := c.Submit(context.Background(), validLogin)
	if outcome.Kind != form.UnexpectedFailure {
		t.Fatalf("outcome = %s, want unexpected_failure", outcome.Kind)
	}
	if outcome.Message != "session endpoint unreachable" {
		t.Errorf("message = %q", outcome.Message)
	}
}

func TestSubmit_PanicIsUnexpected(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{panicWith: "malformed response"}
	c := form.NewController(form.LoginMode, provider, &fakeRegistrar{})

	// a collaborator panic is caught at the top level
	outcome, err := c.Submit(context.Background(), validLogin)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if outcome.Kind != form.UnexpectedFailure || outcome.Message != "malformed response" {
		t.Errorf("outcome = %s %q", outcome.Kind, outcome.Message)
	}
	if c.State() != form.Idle {
		t.Errorf("state = %s, want idle after panic", c.State())
	}
}

func TestSubmit_RejectsReentry(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{
		user:    &fakeUser{uid: "uid-1", token: "tok"},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := form.NewController(form.LoginMode, provider, &fakeRegistrar{})

	done := make(chan form.Outcome)
	go func() {
		outcome, _ := c.Submit(context.Background(), validLogin)
		done <- outcome
	}()
	<-provider.entered

	// a second submit while in flight is refused
	if _, err := c.Submit(context.Background(), validLogin); !errors.Is(err, form.ErrSubmitInProgress) {
		t.Errorf("expected ErrSubmitInProgress, got %v", err)
	}
	// fields are locked while in flight
	if err := c.SetField(form.FieldEmail, "bob@example.com"); !errors.Is(err, form.ErrSubmitInProgress) {
		t.Errorf("expected ErrSubmitInProgress from SetField, got %v", err)
	}
	if c.State() != form.Submitting {
		t.Errorf("state = %s, want submitting", c.State())
	}

	close(provider.block)
	if outcome := <-done; outcome.Kind != form.Success {
		t.Errorf("first submit outcome = %s", outcome.Kind)
	}
	if provider.calls() != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls())
	}

	// fields are editable again once idle
	if err := c.SetField(form.FieldEmail, "bob@example.com"); err != nil {
		t.Errorf("SetField after submit: %v", err)
	}
}

func TestController_SetFieldAndValidate(t *testing.T) {
	t.Parallel()
	c := form.NewController(form.RegisterMode, &fakeProvider{}, &fakeRegistrar{})

	if err := c.SetField("nickname", "x"); !errors.Is(err, form.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}

	_ = c.SetField(form.FieldName, "Ada")
	_ = c.SetField(form.FieldEmail, "ada@example.com")
	if errs := c.Validate(); !errs.Has(form.FieldPassword) || len(errs) != 1 {
		t.Errorf("errors = %v, want only password", errs)
	}

	_ = c.SetField(form.FieldPassword, "abc")
	if errs := c.Validate(); !errs.Valid() {
		t.Errorf("expected valid fields, got %v", errs)
	}
	if c.Fields().Name != "Ada" {
		t.Errorf("Fields().Name = %q", c.Fields().Name)
	}
}

func TestController_CustomRedirects(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{user: &fakeUser{uid: "uid-1", token: "tok"}}
	c := form.NewController(form.LoginMode, provider, &fakeRegistrar{},
		form.WithRedirects("/login", "/dashboard"),
	)

	outcome, _ := c.Submit(context.Background(), validLogin)
	if outcome.Redirect != "/dashboard" {
		t.Errorf("redirect = %q, want /dashboard", outcome.Redirect)
	}
}
