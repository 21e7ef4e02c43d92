package schema

import (
	"fmt"
	"regexp"

	"github.com/roach88/livedb/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidModelName    = "E101" // model name must be an identifier
	ErrNoProperties        = "E102" // at least one property required
	ErrDuplicateProperty   = "E103" // property declared twice
	ErrInvalidKind         = "E104" // unknown or invalid property kind
	ErrMultiplePrimaryKeys = "E105" // more than one primary key
	ErrPrimaryKeyKind      = "E106" // primary key must be an integer or string
	ErrPrimaryKeyIgnored   = "E107" // primary key cannot be ignored
	ErrMissingTarget       = "E108" // object/list property without a target
	ErrUnexpectedTarget    = "E109" // target on a non-link property
	ErrUnknownTarget       = "E110" // target names an undeclared model
	ErrDefaultMismatch     = "E111" // default does not fit the property kind
	ErrInvalidPropertyName = "E112" // property name must be an identifier
	ErrDuplicateModel      = "E113" // model declared twice
	ErrLinkDefault         = "E114" // links only default to null or empty
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a single model in isolation.
// Returns all errors found (does not fail-fast). Link targets are not
// resolved here; ValidateAll does that across a set of models.
func Validate(s *ir.ObjectSchema) []ValidationError {
	var errs []ValidationError

	if !identifierPattern.MatchString(s.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("model name %q is not an identifier", s.Name),
			Code:    ErrInvalidModelName,
		})
	}

	if len(s.Properties) == 0 {
		errs = append(errs, ValidationError{
			Field:   s.Name,
			Message: "at least one property is required",
			Code:    ErrNoProperties,
		})
	}

	seen := make(map[string]bool, len(s.Properties))
	primaryKeys := 0
	for _, p := range s.Properties {
		field := s.Name + "." + p.Name

		if !identifierPattern.MatchString(p.Name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("property name %q is not an identifier", p.Name),
				Code:    ErrInvalidPropertyName,
			})
		}
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate property name: %q", p.Name),
				Code:    ErrDuplicateProperty,
			})
		}
		seen[p.Name] = true

		if p.Kind <= ir.KindInvalid || p.Kind > ir.KindList {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid kind %s", p.Kind),
				Code:    ErrInvalidKind,
			})
			continue
		}

		if p.PrimaryKey {
			primaryKeys++
			if !p.Kind.CanBePrimaryKey() {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("primary key must be an integer or string, got %s", p.Kind),
					Code:    ErrPrimaryKeyKind,
				})
			}
			if p.Ignored {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "primary key cannot be ignored",
					Code:    ErrPrimaryKeyIgnored,
				})
			}
		}

		errs = append(errs, validateTarget(field, p)...)
		errs = append(errs, validateDefault(field, p)...)
	}

	if primaryKeys > 1 {
		errs = append(errs, ValidationError{
			Field:   s.Name,
			Message: fmt.Sprintf("%d primary keys declared, at most one allowed", primaryKeys),
			Code:    ErrMultiplePrimaryKeys,
		})
	}

	return errs
}

func validateTarget(field string, p ir.Property) []ValidationError {
	if p.Kind.IsLink() && p.Target == "" {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("%s property needs a target model", p.Kind),
			Code:    ErrMissingTarget,
		}}
	}
	if !p.Kind.IsLink() && p.Target != "" {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("%s property cannot have a target", p.Kind),
			Code:    ErrUnexpectedTarget,
		}}
	}
	return nil
}

func validateDefault(field string, p ir.Property) []ValidationError {
	if p.Default == nil {
		return nil
	}
	if p.Kind.IsLink() {
		empty := ir.IsNull(p.Default)
		if l, ok := p.Default.(ir.List); ok && len(l) == 0 {
			empty = true
		}
		if !empty {
			return []ValidationError{{
				Field:   field,
				Message: "links can only default to null or an empty list",
				Code:    ErrLinkDefault,
			}}
		}
		return nil
	}
	if err := p.Check(p.Default); err != nil {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("default %s: %v", ir.Format(p.Default), err),
			Code:    ErrDefaultMismatch,
		}}
	}
	return nil
}

// ValidateAll validates every model and resolves link targets across the
// set. Duplicate model names are reported once per repeat.
func ValidateAll(schemas []*ir.ObjectSchema) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		if names[s.Name] {
			errs = append(errs, ValidationError{
				Field:   s.Name,
				Message: fmt.Sprintf("duplicate model name: %q", s.Name),
				Code:    ErrDuplicateModel,
			})
		}
		names[s.Name] = true
	}

	for _, s := range schemas {
		errs = append(errs, Validate(s)...)
		for _, p := range s.Properties {
			if p.Kind.IsLink() && p.Target != "" && !names[p.Target] {
				errs = append(errs, ValidationError{
					Field:   s.Name + "." + p.Name,
					Message: fmt.Sprintf("target model %q is not declared", p.Target),
					Code:    ErrUnknownTarget,
				})
			}
		}
	}
	return errs
}
