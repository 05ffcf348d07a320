package contract

import (
	"context"
)

// Capturer computes a snapshot value from the handler arguments.
type Capturer interface {
	Capture(ctx context.Context, values Values) (any, error)
}

// CaptureFn computes a snapshot value directly.
// A returned Awaitable is awaited before the value is stored.
type CaptureFn func(ctx context.Context, values Values) (any, error)

// AsyncCaptureFn computes a snapshot value that must be awaited.
type AsyncCaptureFn func(ctx context.Context, values Values) *Task[any]

type directCapturer struct {
	fn CaptureFn
}

func (c directCapturer) Capture(ctx context.Context, values Values) (any, error) {
	value, err := c.fn(ctx, values)
	if err != nil {
		return nil, err
	}

	return resolve(ctx, value)
}

type awaitingCapturer struct {
	fn AsyncCaptureFn
}

func (c awaitingCapturer) Capture(ctx context.Context, values Values) (any, error) {
	value, err := c.fn(ctx, values).Await(ctx)
	if err != nil {
		return nil, err
	}

	return resolve(ctx, value)
}

// Capture is a capture rule: a function over a subset of the handler arguments
// together with its documented text.
type Capture struct {
	capturer  Capturer
	params    []string
	text      string
	language  string
	synthetic bool
}

// CaptureFunc creates a capture rule from a CaptureFn over the declared params.
func CaptureFunc(fn CaptureFn, params ...string) Capture {
	if fn == nil {
		return Capture{}
	}

	text, synthetic := renderFunc(fn)
	c := NewCapture(directCapturer{fn: fn}, text, LanguageGo, params...)
	c.synthetic = synthetic

	return c
}

// CaptureAsync creates a capture rule from an AsyncCaptureFn over the declared params.
func CaptureAsync(fn AsyncCaptureFn, params ...string) Capture {
	if fn == nil {
		return Capture{}
	}

	text, synthetic := renderFunc(fn)
	c := NewCapture(awaitingCapturer{fn: fn}, text, LanguageGo, params...)
	c.synthetic = synthetic

	return c
}

// NewCapture creates a capture rule from any Capturer.
func NewCapture(capturer Capturer, text, language string, params ...string) Capture {
	names, _ := parseParams(params)

	return Capture{
		capturer:  capturer,
		params:    names,
		text:      text,
		language:  language,
		synthetic: text == "",
	}
}

// WithText returns a copy of the capture rule documented with text.
func (c Capture) WithText(text string) Capture {
	c.text = text
	c.synthetic = text == ""

	return c
}

// Text returns the documented form of the capture rule.
func (c Capture) Text() string {
	return c.text
}

// Language returns the language tag of the capture rule.
func (c Capture) Language() string {
	return c.language
}

// Params returns the declared argument names.
func (c Capture) Params() []string {
	return append([]string(nil), c.params...)
}

// IsZero reports whether the capture rule has no capturer.
func (c Capture) IsZero() bool {
	return c.capturer == nil
}

// Snapshot is an enabled, named capture rule as held by a Checker.
type Snapshot struct {
	Name    string
	Capture Capture
}

func (s Snapshot) capture(ctx context.Context, args Args) (any, error) {
	values := make(Values, len(s.Capture.params))
	for _, name := range s.Capture.params {
		if value, ok := args[name]; ok {
			values[name] = value
		}
	}

	return s.Capture.capturer.Capture(ctx, values)
}

// captureAll runs every snapshot against the incoming arguments and freezes the results into one bag.
func captureAll(ctx context.Context, snapshots []Snapshot, args Args) (*Old, error) {
	if len(snapshots) == 0 {
		return emptyOld, nil
	}

	values := make(map[string]any, len(snapshots))
	for _, snapshot := range snapshots {
		value, err := snapshot.capture(ctx, args)
		if err != nil {
			return nil, err
		}

		values[snapshot.Name] = value
	}

	return newOld(values), nil
}
