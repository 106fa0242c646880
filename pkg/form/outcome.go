package form

import "fmt"

type OutcomeKind int

const (
	Success OutcomeKind = iota
	ProviderRejected
	RegistrationRejected
	UnexpectedFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ProviderRejected:
		return "provider_rejected"
	case RegistrationRejected:
		return "registration_rejected"
	case UnexpectedFailure:
		return "unexpected_failure"
	default:
		return "unknown"
	}
}

const signInFailed = "sign-in failed"

// Outcome is the result of a submission that reached the collaborators.
//
// Message holds the reason for a rejection (surfaced verbatim) or the raw
// detail of an unexpected failure. Redirect is only set on Success and names
// where the caller should navigate next. Err keeps the underlying cause for
// logging and errors.Is checks.
type Outcome struct {
	Kind     OutcomeKind
	Mode     Mode
	Message  string
	Redirect string
	Err      error
}

func (o Outcome) Succeeded() bool {
	return o.Kind == Success
}

// Notice is the text shown to the user as a transient notification.
func (o Outcome) Notice() string {
	switch o.Kind {
	case Success:
		if o.Mode == RegisterMode {
			return "Account created successfully. Please sign in."
		}
		return "Signed in successfully."
	case ProviderRejected:
		if o.Message == signInFailed {
			return "Sign in failed. Please try again."
		}
		return o.Message
	case RegistrationRejected:
		return o.Message
	default:
		return fmt.Sprintf("There was an error: %s", o.Message)
	}
}

func succeeded(mode Mode, redirect string) Outcome {
	return Outcome{Kind: Success, Mode: mode, Redirect: redirect}
}

func providerRejected(mode Mode, reason string, cause error) Outcome {
	return Outcome{
		Kind:    ProviderRejected,
		Mode:    mode,
		Message: reason,
		Err:     fmt.Errorf("%w: %v", ErrProviderRejected, cause),
	}
}

func registrationRejected(mode Mode, reason string) Outcome {
	return Outcome{
		Kind:    RegistrationRejected,
		Mode:    mode,
		Message: reason,
		Err:     fmt.Errorf("%w: %s", ErrRegistrationRejected, reason),
	}
}

func unexpectedFailure(mode Mode, cause error) Outcome {
	return Outcome{
		Kind:    UnexpectedFailure,
		Mode:    mode,
		Message: cause.Error(),
		Err:     fmt.Errorf("%w: %w", ErrUnexpected, cause),
	}
}
