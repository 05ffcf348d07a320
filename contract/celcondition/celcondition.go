// Package celcondition builds contract conditions and captures from CEL expressions.
//
// The expression source is the documented text of the condition, so inline expressions
// are published verbatim. Identifiers are checked against the handler parameters and the
// reserved names when the expression is compiled, which happens while decorating.
//
//	env, err := celcondition.ForHandler(endpoint)
//	nonBlank, err := env.Condition(`category != ""`)
//	handler, err := contract.Apply(endpoint, reg.Require(nonBlank))
package celcondition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
)

// Language tags conditions and captures written in CEL.
const Language = "cel"

const (
	defaultCostLimit               = 10000
	defaultInterruptCheckFrequency = 100
)

var (
	ErrEmptyExpression = errors.New("empty CEL expression supplied")
	ErrCompile         = errors.New("CEL expression does not compile")
	ErrNotBoolean      = errors.New("CEL condition did not evaluate to a bool")
	ErrEvaluation      = errors.New("CEL expression failed")
)

// Option defines a functional option for configuring an Environment.
type Option func(*Environment) error

// WithCostLimit bounds the evaluation cost of every expression.
func WithCostLimit(limit uint64) Option {
	return func(e *Environment) error {
		if limit == 0 {
			return errors.New("cost limit must be positive")
		}

		e.costLimit = limit

		return nil
	}
}

// WithInterruptCheckFrequency sets how many comprehension iterations run between context checks.
func WithInterruptCheckFrequency(frequency uint) Option {
	return func(e *Environment) error {
		e.interruptCheckFrequency = frequency
		return nil
	}
}

type compiled struct {
	program cel.Program
	params  []string
}

// Environment compiles expressions over the parameters of one handler.
// Compiled programs are cached by expression and safe for concurrent use.
type Environment struct {
	env                     *cel.Env
	variables               map[string]struct{}
	costLimit               uint64
	interruptCheckFrequency uint
	cache                   map[string]compiled
	mu                      sync.RWMutex
}

// NewEnvironment creates an Environment declaring params plus the reserved names
// contract.ResultName and contract.OldName, all dynamically typed.
func NewEnvironment(params []string, options ...Option) (*Environment, error) {
	e := &Environment{
		variables:               make(map[string]struct{}, len(params)+2),
		costLimit:               defaultCostLimit,
		interruptCheckFrequency: defaultInterruptCheckFrequency,
		cache:                   make(map[string]compiled),
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	names := append([]string{contract.ResultName, contract.OldName}, params...)
	declarations := make([]cel.EnvOption, 0, len(names))
	for _, name := range names {
		if _, ok := e.variables[name]; ok {
			continue
		}

		e.variables[name] = struct{}{}
		declarations = append(declarations, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(declarations...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e.env = env

	return e, nil
}

// ForHandler creates an Environment over the parameters h declares.
func ForHandler(h contract.Handler, options ...Option) (*Environment, error) {
	var params []string
	if declarer, ok := h.(contract.ParamDeclarer); ok {
		params = declarer.Params()
	}

	return NewEnvironment(params, options...)
}

// Condition compiles expr into a condition. The expression must evaluate to a bool.
func (e *Environment) Condition(expr string) (contract.Condition, error) {
	c, err := e.compile(expr)
	if err != nil {
		return contract.Condition{}, err
	}

	return contract.NewCondition(conditionEvaluator{compiled: c}, expr, Language, c.params...), nil
}

// Capture compiles expr into a capture rule for a snapshot.
func (e *Environment) Capture(expr string) (contract.Capture, error) {
	c, err := e.compile(expr)
	if err != nil {
		return contract.Capture{}, err
	}

	return contract.NewCapture(captureEvaluator{compiled: c}, expr, Language, c.params...), nil
}

func (e *Environment) compile(expr string) (compiled, error) {
	if expr == "" {
		return compiled{}, ErrEmptyExpression
	}

	e.mu.RLock()
	c, hit := e.cache[expr]
	e.mu.RUnlock()

	if hit {
		return c, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if c, hit = e.cache[expr]; hit {
		return c, nil
	}

	compiledAST, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return compiled{}, fmt.Errorf("%w: %q: %s", ErrCompile, expr, issues.Err())
	}

	program, err := e.env.Program(compiledAST,
		cel.InterruptCheckFrequency(e.interruptCheckFrequency),
		cel.CostLimit(e.costLimit),
	)
	if err != nil {
		return compiled{}, fmt.Errorf("%w: %q: %s", ErrCompile, expr, err)
	}

	params, err := e.referencedParams(compiledAST, expr)
	if err != nil {
		return compiled{}, err
	}

	c = compiled{program: program, params: params}
	e.cache[expr] = c

	return c, nil
}

// referencedParams lists the declared variables expr refers to.
// Fields read from OLD become "OLD.<field>" declarations, so missing snapshots are detected while decorating.
func (e *Environment) referencedParams(compiledAST *cel.Ast, expr string) ([]string, error) {
	checked, err := cel.AstToCheckedExpr(compiledAST)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrCompile, expr, err)
	}

	seen := make(map[string]struct{})
	for _, reference := range checked.GetReferenceMap() {
		name := reference.GetName()
		if _, declared := e.variables[name]; declared {
			seen[name] = struct{}{}
		}
	}

	params := make([]string, 0, len(seen))
	for name := range seen {
		if name != contract.OldName {
			params = append(params, name)
		}
	}
	sort.Strings(params)

	if _, usesOld := seen[contract.OldName]; usesOld {
		params = append(params, contract.OldName)
		for _, field := range oldFields(compiledAST.NativeRep().Expr()) {
			params = append(params, contract.OldName+"."+field)
		}
	}

	return params, nil
}

// oldFields collects the snapshot names read as OLD.<field> or OLD["<field>"].
// Presence tests like has(OLD.field) and keys computed at runtime declare nothing.
func oldFields(root ast.Expr) []string {
	seen := make(map[string]struct{})

	ast.PreOrderVisit(root, ast.NewExprVisitor(func(e ast.Expr) {
		switch e.Kind() {
		case ast.SelectKind:
			sel := e.AsSelect()
			if !sel.IsTestOnly() && isOldIdent(sel.Operand()) {
				seen[sel.FieldName()] = struct{}{}
			}
		case ast.CallKind:
			call := e.AsCall()
			if call.FunctionName() != operators.Index || len(call.Args()) != 2 || !isOldIdent(call.Args()[0]) {
				return
			}

			key := call.Args()[1]
			if key.Kind() != ast.LiteralKind {
				return
			}

			if name, ok := key.AsLiteral().(types.String); ok {
				seen[string(name)] = struct{}{}
			}
		}
	}))

	fields := make([]string, 0, len(seen))
	for field := range seen {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return fields
}

func isOldIdent(e ast.Expr) bool {
	return e.Kind() == ast.IdentKind && e.AsIdent() == contract.OldName
}

func (c compiled) eval(ctx context.Context, values contract.Values) (any, error) {
	activation := make(map[string]any, len(c.params))
	for _, name := range c.params {
		switch name {
		case contract.OldName:
			activation[name] = values.Old().Map()
		default:
			activation[name] = values[name]
		}
	}

	out, _, err := c.program.ContextEval(ctx, activation)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, fmt.Errorf("%w: %s", ErrEvaluation, err)
	}

	return out.Value(), nil
}

type conditionEvaluator struct {
	compiled
}

func (ev conditionEvaluator) Evaluate(ctx context.Context, values contract.Values) (bool, error) {
	out, err := ev.eval(ctx, values)
	if err != nil {
		return false, err
	}

	holds, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBoolean, out)
	}

	return holds, nil
}

type captureEvaluator struct {
	compiled
}

func (ev captureEvaluator) Capture(ctx context.Context, values contract.Values) (any, error) {
	return ev.eval(ctx, values)
}
