package contract

import (
	"context"
	"reflect"
)

// Handler is an endpoint function that contracts can be attached to.
type Handler interface {
	Handle(ctx context.Context, args Args) (any, error)
}

// HandlerFunc adapts a function to a Handler.
// A HandlerFunc is not comparable, so decorators wrap it into an *Endpoint first.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, args Args) (any, error) {
	return f(ctx, args)
}

// ParamDeclarer is implemented by handlers that declare their argument names.
// Conditions attached to such handlers are validated against the declared names.
type ParamDeclarer interface {
	Params() []string
}

// Namer is implemented by handlers that carry a name for logs, metrics and traces.
type Namer interface {
	Name() string
}

// Endpoint is a named handler with declared argument names.
// Its pointer identity is the identity that contracts and metadata are keyed by.
type Endpoint struct {
	name   string
	params []string
	fn     HandlerFunc
}

// NewEndpoint creates an endpoint. Without params, condition parameters are not validated against arguments.
func NewEndpoint(name string, fn HandlerFunc, params ...string) *Endpoint {
	if name == "" {
		name, _ = renderFunc(fn)
	}

	return &Endpoint{
		name:   name,
		params: append([]string(nil), params...),
		fn:     fn,
	}
}

// Handle calls the endpoint function, awaiting an Awaitable result.
func (e *Endpoint) Handle(ctx context.Context, args Args) (any, error) {
	result, err := e.fn(ctx, args)
	if err != nil {
		return nil, err
	}

	return resolve(ctx, result)
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string {
	return e.name
}

// Params returns the declared argument names, or nil when none were declared.
func (e *Endpoint) Params() []string {
	if e.params == nil {
		return nil
	}

	return append([]string(nil), e.params...)
}

// identifiable returns h itself when it can serve as an identity key, or wraps it into an *Endpoint.
func identifiable(h Handler) Handler {
	if f, ok := h.(HandlerFunc); ok {
		return NewEndpoint("", f)
	}

	if !reflect.TypeOf(h).Comparable() {
		params, _ := handlerParams(h)
		return NewEndpoint(handlerName(h), h.Handle, params...)
	}

	return h
}

func handlerName(h Handler) string {
	if named, ok := h.(Namer); ok && named.Name() != "" {
		return named.Name()
	}

	if f, ok := h.(HandlerFunc); ok {
		if name, _ := renderFunc(f); name != "" {
			return name
		}
	}

	return anonymousText
}

func handlerParams(h Handler) ([]string, bool) {
	if declarer, ok := h.(ParamDeclarer); ok {
		params := declarer.Params()
		return params, params != nil
	}

	return nil, false
}
