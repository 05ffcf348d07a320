package contract

import (
	"context"
	"fmt"
	"time"
)

// Contract is an enforced pre- or post-condition as held by a Checker.
type Contract struct {
	Condition   Condition
	StatusCode  int
	Description string
}

// Checker is the single composed wrapper substituted for a handler once the first enforced
// contract is attached. It owns the ordered pre-condition, snapshot and post-condition chains.
//
// The chains are built while decorating, before the handler serves requests,
// and are only read afterward.
type Checker struct {
	wrapped        Handler
	name           string
	preconditions  []Contract
	snapshots      []Snapshot
	postconditions []Contract
	in             *instrumentation
}

func newChecker(wrapped Handler, in *instrumentation) *Checker {
	return &Checker{
		wrapped: wrapped,
		name:    handlerName(wrapped),
		in:      in,
	}
}

// FindChecker reports whether h is a composed checker.
func FindChecker(h Handler) (*Checker, bool) {
	checker, ok := h.(*Checker)
	return checker, ok && checker != nil
}

// Handle runs pre-conditions, snapshot capture, the wrapped handler and post-conditions, in this order.
// It returns a *Violation for the first condition that does not hold.
// Errors of the handler, a condition or a capture function are returned unchanged.
func (c *Checker) Handle(ctx context.Context, args Args) (any, error) {
	start := time.Now()
	ctx, span := c.in.startSpan(ctx, c.name)

	result, phase, err := c.run(ctx, args)
	c.in.recordOutcome(ctx, span, c.name, start, phase, err)

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Checker) run(ctx context.Context, args Args) (any, string, error) {
	if args == nil {
		args = Args{}
	}

	for _, pre := range c.preconditions {
		ok, err := pre.Condition.evaluate(ctx, args, nil, nil)
		if err != nil {
			return nil, phasePreconditions, err
		}

		if !ok {
			return nil, phasePreconditions, newViolation(KindPrecondition, pre)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, phaseSnapshotCapture, err
	}

	old, err := captureAll(ctx, c.snapshots, args)
	if err != nil {
		return nil, phaseSnapshotCapture, err
	}

	if len(c.snapshots) > 0 {
		c.in.recordValue(ctx, metricSnapshotValues, float64(old.Len()), map[string]string{labelEndpoint: c.name})
	}

	if err := ctx.Err(); err != nil {
		return nil, phaseInvoke, err
	}

	result, err := c.wrapped.Handle(ctx, args)
	if err != nil {
		return nil, phaseInvoke, err
	}

	result, err = resolve(ctx, result)
	if err != nil {
		return nil, phaseInvoke, err
	}

	for _, post := range c.postconditions {
		ok, err := post.Condition.evaluate(ctx, args, result, old)
		if err != nil {
			return nil, phasePostconditions, err
		}

		if !ok {
			return nil, phasePostconditions, newViolation(KindPostcondition, post)
		}
	}

	return result, phasePostconditions, nil
}

// Wrapped returns the original handler.
func (c *Checker) Wrapped() Handler {
	return c.wrapped
}

// Name returns the name of the wrapped handler.
func (c *Checker) Name() string {
	return c.name
}

// Params returns the argument names declared by the wrapped handler.
func (c *Checker) Params() []string {
	params, _ := handlerParams(c.wrapped)
	return params
}

// Preconditions returns a copy of the pre-condition chain in evaluation order.
func (c *Checker) Preconditions() []Contract {
	return append([]Contract(nil), c.preconditions...)
}

// Snapshots returns a copy of the snapshot chain in capture order.
func (c *Checker) Snapshots() []Snapshot {
	return append([]Snapshot(nil), c.snapshots...)
}

// Postconditions returns a copy of the post-condition chain in evaluation order.
func (c *Checker) Postconditions() []Contract {
	return append([]Contract(nil), c.postconditions...)
}

// Validate checks that every snapshot a post-condition depends on is captured.
func (c *Checker) Validate() error {
	captured := make(map[string]struct{}, len(c.snapshots))
	for _, snapshot := range c.snapshots {
		captured[snapshot.Name] = struct{}{}
	}

	for _, post := range c.postconditions {
		for _, field := range post.Condition.oldFields {
			if _, ok := captured[field]; !ok {
				return fmt.Errorf("%w: %s%s in %q of %s", ErrUnknownSnapshot, oldFieldPrefix, field, post.Condition.text, c.name)
			}
		}
	}

	return nil
}

func (c *Checker) prependPrecondition(contract Contract) {
	c.preconditions = append([]Contract{contract}, c.preconditions...)
}

func (c *Checker) prependPostcondition(contract Contract) {
	c.postconditions = append([]Contract{contract}, c.postconditions...)
}

func (c *Checker) prependSnapshot(snapshot Snapshot) {
	c.snapshots = append([]Snapshot{snapshot}, c.snapshots...)
}
