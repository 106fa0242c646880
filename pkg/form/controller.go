package form

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "git.sr.ht/~jakintosh/authform/pkg/form"

type State int

const (
	Idle State = iota
	Validating
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

var (
	errEmptyToken = errors.New("provider returned an empty identity token")
	errNoAccount  = errors.New("provider returned no account")
)

type Option func(*Controller)

// WithRedirects sets where a successful registration (login) and a successful
// sign-in (root) send the user.
func WithRedirects(login string, root string) Option {
	return func(c *Controller) {
		c.loginPath = login
		c.rootPath = root
	}
}

// WithCompensation toggles deleting the provider account when the registrar
// refuses a registration after the account was created. On by default.
func WithCompensation(enabled bool) Option {
	return func(c *Controller) {
		c.compensate = enabled
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// Controller holds the state of one form instance. The mutex guards state
// transitions and fields only; it is never held across a remote call.
type Controller struct {
	mode      Mode
	provider  IdentityProvider
	registrar SessionRegistrar

	loginPath  string
	rootPath   string
	compensate bool
	tracer     trace.Tracer

	mu     sync.Mutex
	state  State
	fields Fields
}

func NewController(
	mode Mode,
	provider IdentityProvider,
	registrar SessionRegistrar,
	opts ...Option,
) *Controller {
	c := &Controller{
		mode:       mode,
		provider:   provider,
		registrar:  registrar,
		loginPath:  "/sign-in",
		rootPath:   "/",
		compensate: true,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Mode() Mode {
	return c.mode
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// SetField edits one field. Fields are locked while a submission is in flight.
func (c *Controller) SetField(field string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return ErrSubmitInProgress
	}
	if !c.fields.set(field, value) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// Validate checks the current fields against the controller's mode.
func (c *Controller) Validate() Errors {
	return Validate(c.Fields(), c.mode)
}

// Submit stores fields, validates them and, when valid, runs the remote flow
// of the controller's mode.
//
// A *ValidationError is returned when validation fails; nothing is sent in
// that case. ErrSubmitInProgress is returned when another Submit on the same
// controller has not finished. Every failure past validation is reported in
// the Outcome rather than as an error.
func (c *Controller) Submit(
	ctx context.Context,
	fields Fields,
) (
	Outcome,
	error,
) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}
	c.fields = fields
	c.state = Validating
	errs := Validate(fields, c.mode)
	if !errs.Valid() {
		c.state = Idle
		c.mu.Unlock()
		return Outcome{}, &ValidationError{Errors: errs}
	}
	c.state = Submitting
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = Idle
		c.mu.Unlock()
	}()

	ctx, span := c.tracer.Start(ctx, "form.Submit",
		trace.WithAttributes(attribute.String("form.mode", c.mode.String())),
	)
	defer span.End()

	log.Printf("form: %s submitted for '%s'\n", c.mode, fields.Email)
	outcome := c.run(ctx, fields)

	span.SetAttributes(attribute.String("form.outcome", outcome.Kind.String()))
	if !outcome.Succeeded() {
		span.SetStatus(codes.Error, outcome.Message)
		log.Printf("form: %s for '%s' ended with %s: %v\n", c.mode, fields.Email, outcome.Kind, outcome.Err)
	}
	return outcome, nil
}

func (c *Controller) run(
	ctx context.Context,
	fields Fields,
) (outcome Outcome) {
	// A recovered panic never compensates: like a registrar error, it leaves
	// the registration state unknown.
	defer func() {
		if r := recover(); r != nil {
			outcome = unexpectedFailure(c.mode, fmt.Errorf("%v", r))
		}
	}()

	if c.mode == RegisterMode {
		return c.register(ctx, fields)
	}
	return c.login(ctx, fields)
}

func (c *Controller) register(
	ctx context.Context,
	fields Fields,
) Outcome {
	user, err := c.provider.CreateAccount(ctx, fields.Email, fields.Password)
	if err != nil {
		return c.providerFailure(err)
	}
	if user == nil {
		return unexpectedFailure(c.mode, errNoAccount)
	}

	// An error says nothing about whether the profile was stored, so only an
	// explicit refusal removes the account.
	reg, err := c.registrar.RegisterNewUser(ctx, user.UID(), fields.Name, fields.Email)
	if err != nil {
		log.Printf("form: registration of '%s' unconfirmed, keeping provider account\n", user.UID())
		return unexpectedFailure(c.mode, err)
	}
	if !reg.Success {
		c.removeOrphan(ctx, user.UID())
		return registrationRejected(c.mode, reg.Message)
	}

	return succeeded(c.mode, c.loginPath)
}

func (c *Controller) login(
	ctx context.Context,
	fields Fields,
) Outcome {
	user, err := c.provider.Authenticate(ctx, fields.Email, fields.Password)
	if err != nil {
		return c.providerFailure(err)
	}
	if user == nil {
		return unexpectedFailure(c.mode, errNoAccount)
	}

	token, err := user.Token(ctx)
	if err != nil {
		return unexpectedFailure(c.mode, err)
	}
	if token == "" {
		return providerRejected(c.mode, signInFailed, errEmptyToken)
	}

	if err := c.registrar.EstablishSession(ctx, fields.Email, token); err != nil {
		return unexpectedFailure(c.mode, err)
	}

	return succeeded(c.mode, c.rootPath)
}

// providerFailure surfaces a provider error verbatim, except for context
// expiry which is a transport failure rather than a rejection.
func (c *Controller) providerFailure(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return unexpectedFailure(c.mode, err)
	}
	return providerRejected(c.mode, err.Error(), err)
}

// removeOrphan deletes a provider account the registrar refused. The
// outcome of the submission does not depend on it.
func (c *Controller) removeOrphan(
	ctx context.Context,
	uid string,
) {
	if !c.compensate {
		return
	}
	deleter, ok := c.provider.(AccountDeleter)
	if !ok {
		log.Printf("form: provider account '%s' left without registration\n", uid)
		return
	}
	if err := deleter.DeleteAccount(context.WithoutCancel(ctx), uid); err != nil {
		log.Printf("form: couldn't remove provider account '%s': %v\n", uid, err)
	}
}
