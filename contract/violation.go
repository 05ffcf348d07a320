package contract

import (
	"context"
	"errors"
)

// Kind tells which chain a contract belongs to.
type Kind int

const (
	// KindPrecondition marks a check evaluated before the handler runs.
	KindPrecondition Kind = iota + 1
	// KindPostcondition marks a check evaluated after the handler returned.
	KindPostcondition
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindPostcondition:
		return "postcondition"
	default:
		return "unknown"
	}
}

func (k Kind) label() string {
	if k == KindPostcondition {
		return "Post-condition"
	}

	return "Pre-condition"
}

// Violation is returned by a Checker when an enforced condition evaluates to false.
// The transport layer translates it into a client-visible error with StatusCode and Message.
type Violation struct {
	Kind        Kind
	StatusCode  int
	Message     string
	Description string
	Text        string
}

func newViolation(kind Kind, failed Contract) *Violation {
	v := &Violation{
		Kind:        kind,
		StatusCode:  failed.StatusCode,
		Description: failed.Description,
		Text:        failed.Condition.text,
	}

	if failed.Description != "" {
		v.Message = kind.label() + " violated: " + failed.Description
	}

	return v
}

func (v *Violation) Error() string {
	if v == nil {
		return "<nil>"
	}

	if v.Message != "" {
		return v.Message
	}

	return v.Kind.label() + " violated"
}

// Is makes errors.Is(err, ErrContractViolated) hold for every violation.
func (v *Violation) Is(target error) bool {
	return target == ErrContractViolated
}

// AsViolation extracts a *Violation from err.
func AsViolation(err error) (*Violation, bool) {
	var violation *Violation
	if errors.As(err, &violation) && violation != nil {
		return violation, true
	}

	return nil, false
}

// IsViolation reports whether err is or wraps a *Violation.
func IsViolation(err error) bool {
	return errors.Is(err, ErrContractViolated)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
