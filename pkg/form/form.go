// Package form implements the authentication form controller: mode-dependent
// field validation and the submit transition that drives an identity provider
// and a session registrar.
//
// The controller owns no durable state. Account creation, password checks,
// token issuance and sessions all live in the collaborators it is given.
package form

// Mode selects which fields and which remote flow a form uses. It is fixed when
// a Controller is built.
type Mode int

const (
	RegisterMode Mode = iota
	LoginMode
)

func (m Mode) String() string {
	switch m {
	case RegisterMode:
		return "sign-up"
	case LoginMode:
		return "sign-in"
	default:
		return "unknown"
	}
}

// ParseMode maps "sign-up" and "sign-in" back to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "sign-up":
		return RegisterMode, true
	case "sign-in":
		return LoginMode, true
	default:
		return 0, false
	}
}

const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// FieldNames returns the fields a mode shows, in display order.
func FieldNames(mode Mode) []string {
	if mode == RegisterMode {
		return []string{FieldName, FieldEmail, FieldPassword}
	}
	return []string{FieldEmail, FieldPassword}
}

// Fields holds the current value of every form field.
type Fields struct {
	Name     string
	Email    string
	Password string
}

// Value returns the value of a field by name, or "" for an unknown field.
func (f Fields) Value(field string) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldPassword:
		return f.Password
	default:
		return ""
	}
}

func (f *Fields) set(field string, value string) bool {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldPassword:
		f.Password = value
	default:
		return false
	}
	return true
}

// Redacted returns a copy with the password cleared, safe to render back to a
// page or write to a log.
func (f Fields) Redacted() Fields {
	f.Password = ""
	return f
}
