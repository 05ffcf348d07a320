package contract

import (
	"errors"
)

// Configuration errors, returned while decorating handlers.
var (
	ErrNilHandler                   = errors.New("nil handler supplied")
	ErrNilCondition                 = errors.New("nil condition supplied")
	ErrNilCapture                   = errors.New("nil capture supplied")
	ErrEmptySnapshotName            = errors.New("empty snapshot name supplied")
	ErrDuplicateSnapshot            = errors.New("duplicate snapshot name")
	ErrSnapshotWithoutPostcondition = errors.New("snapshot decorated without a postcondition defined before")
	ErrUnknownParameter             = errors.New("condition references an unknown parameter")
	ErrReservedParameter            = errors.New("condition references a reserved name it cannot use")
	ErrUnknownSnapshot              = errors.New("postcondition references a snapshot that is not captured")
	ErrInvalidStatusCode            = errors.New("invalid status code supplied")
)

// ErrContractViolated matches every *Violation with errors.Is.
var ErrContractViolated = errors.New("contract violated")

// ErrNotAwaitable is returned when a task is awaited that was never started.
var ErrNotAwaitable = errors.New("task is not awaitable")

const (
	// ResultName is the name under which post-conditions receive the handler result.
	ResultName = "result"

	// OldName is the name under which post-conditions receive the snapshot bag.
	OldName = "OLD"

	oldFieldPrefix = OldName + "."

	// LanguageGo tags conditions implemented as Go functions.
	LanguageGo = "go"

	// DefaultPreconditionStatus is reported when a pre-condition without an explicit status code fails.
	DefaultPreconditionStatus = 422

	// DefaultPostconditionStatus is reported when a post-condition without an explicit status code fails.
	DefaultPostconditionStatus = 500

	anonymousText = "<anonymous>"
)

// ErrHandlerNotComparable is returned when a handler cannot serve as an identity key.
var ErrHandlerNotComparable = errors.New("handler is not comparable, use the handler returned by a decorator")
