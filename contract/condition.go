package contract

import (
	"context"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

// Evaluator evaluates a condition to a boolean.
// Implementations either answer directly or await an asynchronous result; callers do not care which.
type Evaluator interface {
	Evaluate(ctx context.Context, values Values) (bool, error)
}

// Predicate is a condition answered directly.
type Predicate func(ctx context.Context, values Values) (bool, error)

// AsyncPredicate is a condition whose answer must be awaited.
type AsyncPredicate func(ctx context.Context, values Values) *Task[bool]

type directEvaluator struct {
	fn Predicate
}

func (e directEvaluator) Evaluate(ctx context.Context, values Values) (bool, error) {
	return e.fn(ctx, values)
}

type awaitingEvaluator struct {
	fn AsyncPredicate
}

func (e awaitingEvaluator) Evaluate(ctx context.Context, values Values) (bool, error) {
	return e.fn(ctx, values).Await(ctx)
}

// Condition is a predicate over a subset of the values available to it,
// together with the textual form used to document it.
type Condition struct {
	evaluator Evaluator
	params    []string
	oldFields []string
	text      string
	language  string
	synthetic bool
}

// Check creates a condition from a Predicate over the declared params.
//
// A param is a handler argument name, ResultName, OldName or "OLD.<snapshot>".
// The latter both requests the snapshot bag and declares that the named snapshot must be captured.
func Check(fn Predicate, params ...string) Condition {
	if fn == nil {
		return Condition{}
	}

	text, synthetic := renderFunc(fn)

	return NewCondition(directEvaluator{fn: fn}, text, LanguageGo, params...).withSynthetic(synthetic)
}

// CheckAsync creates a condition from an AsyncPredicate over the declared params.
func CheckAsync(fn AsyncPredicate, params ...string) Condition {
	if fn == nil {
		return Condition{}
	}

	text, synthetic := renderFunc(fn)

	return NewCondition(awaitingEvaluator{fn: fn}, text, LanguageGo, params...).withSynthetic(synthetic)
}

// NewCondition creates a condition from any Evaluator.
// The text is the documented form of the condition, language tags it (e.g. "go", "cel").
func NewCondition(evaluator Evaluator, text, language string, params ...string) Condition {
	c := Condition{
		evaluator: evaluator,
		text:      text,
		language:  language,
		synthetic: text == "",
	}
	c.params, c.oldFields = parseParams(params)

	return c
}

// WithText returns a copy of the condition documented with text.
func (c Condition) WithText(text string) Condition {
	c.text = text
	c.synthetic = text == ""

	return c
}

func (c Condition) withSynthetic(synthetic bool) Condition {
	c.synthetic = synthetic
	return c
}

// Text returns the documented form of the condition.
// It is empty for anonymous functions without an explicit text.
func (c Condition) Text() string {
	return c.text
}

// Language returns the language tag of the condition.
func (c Condition) Language() string {
	return c.language
}

// Params returns the declared top-level names, including ResultName and OldName when requested.
func (c Condition) Params() []string {
	return append([]string(nil), c.params...)
}

// OldFields returns the snapshot names the condition depends on.
func (c Condition) OldFields() []string {
	return append([]string(nil), c.oldFields...)
}

// IsZero reports whether the condition has no evaluator.
func (c Condition) IsZero() bool {
	return c.evaluator == nil
}

// documentedText returns the text to publish, falling back to the description
// or a placeholder when the predicate cannot be rendered.
func (c Condition) documentedText(description string) (string, bool) {
	return fallbackText(c.text, c.synthetic, description)
}

func (c Condition) evaluate(ctx context.Context, args Args, result any, old *Old) (bool, error) {
	values := make(Values, len(c.params))
	for _, name := range c.params {
		switch name {
		case ResultName:
			values[name] = result
		case OldName:
			values[name] = old
		default:
			if value, ok := args[name]; ok {
				values[name] = value
			}
		}
	}

	return c.evaluator.Evaluate(ctx, values)
}

func fallbackText(text string, synthetic bool, description string) (string, bool) {
	if text != "" && !synthetic {
		return text, false
	}

	if description != "" {
		return description, true
	}

	if text != "" {
		return text, true
	}

	return anonymousText, true
}

// parseParams splits declarations into top-level names and snapshot dependencies.
func parseParams(params []string) ([]string, []string) {
	var (
		names     []string
		oldFields []string
		seen      = make(map[string]struct{}, len(params))
	)

	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, param := range params {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}

		switch {
		case strings.HasPrefix(param, oldFieldPrefix):
			add(OldName)
			oldFields = append(oldFields, strings.TrimPrefix(param, oldFieldPrefix))
		default:
			add(param)
		}
	}

	return names, oldFields
}

var anonymousFuncName = regexp.MustCompile(`(^func\d+$)|(\.func\d+(\.\d+)*$)|(^glob\.\.func\d+$)`)

// renderFunc renders a function value as its declared name.
// Function literals have no name to render; for them the second result is true.
func renderFunc(fn any) (string, bool) {
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func || value.IsNil() {
		return "", true
	}

	runtimeFunc := runtime.FuncForPC(value.Pointer())
	if runtimeFunc == nil {
		return "", true
	}

	return renderFuncName(runtimeFunc.Name())
}

// renderFuncName strips the package path from a runtime function name.
//
//	github.com/acme/books.hasCategory          -> hasCategory
//	github.com/acme/books.(*Store).Has-fm      -> (*Store).Has
//	github.com/acme/books.register.func1       -> anonymous
func renderFuncName(name string) (string, bool) {
	if slash := strings.LastIndex(name, "/"); slash >= 0 {
		name = name[slash+1:]
	}

	if dot := strings.Index(name, "."); dot >= 0 {
		name = name[dot+1:]
	}

	name = strings.TrimSuffix(name, "-fm")

	if name == "" || anonymousFuncName.MatchString(name) {
		return "", true
	}

	return name, false
}
