package form

import (
	"github.com/go-playground/validator/v10"
)

// Errors maps a field name to the message of the first rule it violated. An
// empty Errors means the fields are valid.
type Errors map[string]string

func (e Errors) Valid() bool {
	return len(e) == 0
}

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields returns the names of the failing fields in display order.
func (e Errors) Fields() []string {
	names := make([]string, 0, len(e))
	for _, field := range []string{FieldName, FieldEmail, FieldPassword} {
		if e.Has(field) {
			names = append(names, field)
		}
	}
	return names
}

type rule struct {
	tag     string
	message string
}

type fieldRules struct {
	field string
	rules []rule
}

var (
	nameRules = fieldRules{
		field: FieldName,
		rules: []rule{
			{tag: "required", message: "Name is required"},
			{tag: "min=3", message: "Name must contain at least 3 characters"},
		},
	}
	emailRules = fieldRules{
		field: FieldEmail,
		rules: []rule{
			{tag: "required", message: "Email is required"},
			{tag: "email", message: "Invalid email"},
		},
	}
	passwordRules = fieldRules{
		field: FieldPassword,
		rules: []rule{
			{tag: "required", message: "Password is required"},
			{tag: "min=3", message: "Password must contain at least 3 characters"},
		},
	}
)

// LoginMode carries no name rules at all, so name is never validated there.
var ruleTable = map[Mode][]fieldRules{
	RegisterMode: {nameRules, emailRules, passwordRules},
	LoginMode:    {emailRules, passwordRules},
}

// validator.Validate caches parsed tags and is safe for concurrent use.
var rules = validator.New()

// Validate checks fields against the rules of mode. For each field the first
// violated rule wins; messages are never aggregated. Validate is pure: the
// same input always yields the same Errors.
func Validate(fields Fields, mode Mode) Errors {
	errs := Errors{}
	for _, fr := range ruleTable[mode] {
		value := fields.Value(fr.field)
		for _, r := range fr.rules {
			if err := rules.Var(value, r.tag); err != nil {
				errs[fr.field] = r.message
				break
			}
		}
	}
	return errs
}
