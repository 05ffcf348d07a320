// Package httpcontract serves contract-checked handlers over HTTP with chi.
//
// Request parameters are bound into contract.Args, the handler (usually a composed
// contract.Checker) is called, and the outcome is written as JSON:
//
//   - a result is written with status 200,
//   - a *contract.Violation is written with its status code and {"detail": message},
//     where an empty message is written as null,
//   - a binding failure is written with status 422,
//   - any other error is logged and written as 500.
//
// Every response carries an X-Request-ID header.
package httpcontract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/contract/openapi"
)

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-ID"

const (
	logMsgRequestServed    = "request served"
	logMsgRequestViolated  = "request rejected by contract"
	logMsgRequestFailed    = "request failed"
	logMsgRouteRegistered  = "route registered"
	logAttrMethod          = "method"
	logAttrPath            = "path"
	logAttrRoute           = "route"
	logAttrStatusCode      = "status_code"
	logAttrRequestID       = "request_id"
	logAttrError           = "error"
	logAttrDurationMS      = "duration_ms"
	internalServerErrorMsg = "Internal Server Error"
)

var (
	ErrNilHandler       = errors.New("nil handler supplied")
	ErrEmptyRouteName   = errors.New("empty route name supplied")
	ErrDuplicateRoute   = errors.New("route already registered")
	ErrDocsRouteExists  = errors.New("a GET route already exists at the documentation path")
	ErrNilSchemaSource  = errors.New("nil metadata source supplied")
	ErrUnknownPathParam = errors.New("path parameter is not part of the route pattern")
	ErrInvalidMethod    = errors.New("unsupported HTTP method")
	ErrInvalidPath      = errors.New("route path must begin with '/'")
)

var supportedMethods = map[string]struct{}{
	http.MethodConnect: {},
	http.MethodDelete:  {},
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodOptions: {},
	http.MethodPatch:   {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodTrace:   {},
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type route struct {
	method          string
	path            string
	name            string
	operationID     string
	handler         contract.Handler
	params          []Param
	includeInSchema bool
	summary         string
}

// Router routes HTTP requests to contract-checked handlers and documents them.
type Router struct {
	mux              *chi.Mux
	routes           []route
	title            string
	version          string
	logger           contract.Logger
	contextualLogger contract.ContextualLogger
	mu               sync.RWMutex
}

// RouterOption defines a functional option for configuring a Router.
type RouterOption func(*Router) error

// WithInfo sets the title and version of the OpenAPI document.
func WithInfo(title, version string) RouterOption {
	return func(r *Router) error {
		if title == "" {
			return errors.New("empty title supplied")
		}

		r.title = title
		r.version = version

		return nil
	}
}

// WithLogger sets the logger for request outcomes.
func WithLogger(logger contract.Logger) RouterOption {
	return func(r *Router) error {
		r.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for request outcomes.
func WithContextualLogger(logger contract.ContextualLogger) RouterOption {
	return func(r *Router) error {
		r.contextualLogger = logger
		return nil
	}
}

// WithMiddleware adds chi middlewares in front of every route.
func WithMiddleware(middlewares ...func(http.Handler) http.Handler) RouterOption {
	return func(r *Router) error {
		r.mux.Use(middlewares...)
		return nil
	}
}

// NewRouter creates a Router with optional configuration.
func NewRouter(options ...RouterOption) (*Router, error) {
	r := &Router{
		mux:     chi.NewRouter(),
		title:   "API",
		version: "0.1.0",
	}

	r.mux.Use(requestID)

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Get registers h for GET requests at path.
func (r *Router) Get(path, name string, h contract.Handler, params ...Param) error {
	return r.Handle(http.MethodGet, path, name, h, params...)
}

// Post registers h for POST requests at path.
func (r *Router) Post(path, name string, h contract.Handler, params ...Param) error {
	return r.Handle(http.MethodPost, path, name, h, params...)
}

// Handle registers h for method requests at path. The params bind the handler arguments.
// Register the handler returned by contract.Apply, so requests run through its checker.
func (r *Router) Handle(method, path, name string, h contract.Handler, params ...Param) error {
	if h == nil {
		return ErrNilHandler
	}

	if name == "" {
		return ErrEmptyRouteName
	}

	method = strings.ToUpper(method)
	if _, ok := supportedMethods[method]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	for _, p := range params {
		if p.in == InPath && !strings.Contains(path, "{"+p.name+"}") {
			return fmt.Errorf("%w: %q in %s", ErrUnknownPathParam, p.name, path)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.routes {
		if existing.method == method && existing.path == path {
			return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, method, path)
		}
	}

	rt := route{
		method:          method,
		path:            path,
		name:            name,
		operationID:     openapi.OperationID(name, path, method),
		handler:         h,
		params:          append([]Param(nil), params...),
		includeInSchema: true,
		summary:         summaryOf(name),
	}

	r.routes = append(r.routes, rt)
	r.mux.Method(method, path, r.serve(rt))

	r.logDebug(context.Background(), logMsgRouteRegistered, logAttrMethod, method, logAttrPath, path, logAttrRoute, name)

	return nil
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Routes lists the registered routes; it makes the Router an openapi.RouteLister.
func (r *Router) Routes() []openapi.Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]openapi.Route, 0, len(r.routes))
	for _, rt := range r.routes {
		routes = append(routes, openapi.Route{
			Name:            rt.name,
			Path:            rt.path,
			Methods:         []string{rt.method},
			OperationID:     rt.operationID,
			Handler:         rt.handler,
			IncludeInSchema: rt.includeInSchema,
		})
	}

	return routes
}

func (r *Router) serve(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		id := w.Header().Get(RequestIDHeader)

		args := make(contract.Args, len(rt.params))
		var bindErrors []*BindError

		for _, p := range rt.params {
			value, err := p.value(req)
			if err != nil {
				var bindErr *BindError
				if errors.As(err, &bindErr) {
					bindErrors = append(bindErrors, bindErr)
				}

				continue
			}

			args[p.name] = value
		}

		if len(bindErrors) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": validationDetail(bindErrors)})
			r.logDebug(req.Context(), logMsgRequestServed, logAttrRoute, rt.name, logAttrStatusCode, http.StatusUnprocessableEntity, logAttrRequestID, id)

			return
		}

		result, err := rt.handler.Handle(req.Context(), args)

		if violation, ok := contract.AsViolation(err); ok {
			var detail any
			if violation.Message != "" {
				detail = violation.Message
			}

			writeJSON(w, violation.StatusCode, map[string]any{"detail": detail})
			r.logInfo(req.Context(), logMsgRequestViolated,
				logAttrRoute, rt.name,
				logAttrStatusCode, violation.StatusCode,
				logAttrRequestID, id)

			return
		}

		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": internalServerErrorMsg})
			r.logError(req.Context(), logMsgRequestFailed,
				logAttrRoute, rt.name,
				logAttrError, err.Error(),
				logAttrRequestID, id)

			return
		}

		writeJSON(w, http.StatusOK, result)
		r.logDebug(req.Context(), logMsgRequestServed,
			logAttrRoute, rt.name,
			logAttrStatusCode, http.StatusOK,
			logAttrRequestID, id,
			logAttrDurationMS, time.Since(start).Milliseconds())
	}
}

func validationDetail(bindErrors []*BindError) []any {
	detail := make([]any, 0, len(bindErrors))
	for _, bindErr := range bindErrors {
		kind := "value_error"
		if errors.Is(bindErr.Err, errMissing) {
			kind = "value_error.missing"
		}

		detail = append(detail, map[string]any{
			"loc":  []any{bindErr.In, bindErr.Name},
			"msg":  bindErr.Err.Error(),
			"type": kind,
		})
	}

	return detail
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonAPI.NewEncoder(w).Encode(v)
}

// requestID reuses the incoming X-Request-ID or issues a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(RequestIDHeader)
		if id == "" {
			id = "req_" + uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, req)
	})
}

func summaryOf(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + word[size:]
	}

	return strings.Join(words, " ")
}
