package token

import (
	"fmt"

	"github.com/finfabric/analytics-gateway/internal/problem"
)

// AuthError is a typed verification failure. Kind drives the HTTP status and
// problem type; Detail is safe to return to the caller.
type AuthError struct {
	Kind   problem.Kind
	Detail string
	err    error
}

func (e *AuthError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *AuthError) Unwrap() error { return e.err }

// ProblemKind implements problem.KindError.
func (e *AuthError) ProblemKind() problem.Kind { return e.Kind }

// ProblemDetail implements problem.KindError.
func (e *AuthError) ProblemDetail() string { return e.Detail }

func authErr(kind problem.Kind, detail string) *AuthError {
	return &AuthError{Kind: kind, Detail: detail}
}

func wrapAuthErr(kind problem.Kind, detail string, err error) *AuthError {
	return &AuthError{Kind: kind, Detail: detail, err: err}
}
