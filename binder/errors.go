package binder

import (
	"fmt"

	"github.com/gurre/awsop/schema"
)

// MissingRequiredFieldError reports a required field that was not bound. In
// lenient mode it is recorded as a warning on the RequestContext; in strict
// mode Bind returns it.
type MissingRequiredFieldError struct {
	Operation string
	Field     string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %s", e.Operation, e.Field)
}

// UnknownFieldError reports an input name that matches no field or alias.
type UnknownFieldError struct {
	Operation string
	Name      string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: unknown field %s", e.Operation, e.Name)
}

// DuplicateFieldError reports a field supplied under more than one of its names.
type DuplicateFieldError struct {
	Field string
	Names []string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("field %s supplied more than once (as %v)", e.Field, e.Names)
}

// InvalidValueError reports a value that cannot be converted to its field's type.
type InvalidValueError struct {
	Field string
	Type  schema.FieldType
	Err   error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s value for %s: %v", e.Type, e.Field, e.Err)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}
