package httpcontract

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Parameter locations as named by OpenAPI.
const (
	InQuery = "query"
	InPath  = "path"
	InBody  = "body"
)

var (
	errMissing     = errors.New("field required")
	errNotInteger  = errors.New("value is not a valid integer")
	errInvalidBody = errors.New("value is not a valid JSON document")
)

// BindError describes why one request parameter could not be bound.
type BindError struct {
	In   string
	Name string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s parameter %q: %s", e.In, e.Name, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Param binds one handler argument from the request and documents it.
type Param struct {
	name     string
	in       string
	required bool
	schema   map[string]any
	bind     func(r *http.Request, name string) (any, bool, error)
}

// Name returns the argument name the value is bound to.
func (p Param) Name() string {
	return p.name
}

// In returns the parameter location.
func (p Param) In() string {
	return p.in
}

func (p Param) value(r *http.Request) (any, error) {
	value, present, err := p.bind(r, p.name)
	if err != nil {
		return nil, &BindError{In: p.in, Name: p.name, Err: err}
	}

	if !present {
		if p.required {
			return nil, &BindError{In: p.in, Name: p.name, Err: errMissing}
		}

		return nil, nil
	}

	return value, nil
}

func (p Param) document() map[string]any {
	return map[string]any{
		"name":     p.name,
		"in":       p.in,
		"required": p.required,
		"schema":   p.schema,
	}
}

// Query binds a required string query parameter.
func Query(name string) Param {
	return Param{name: name, in: InQuery, required: true, schema: map[string]any{"type": "string"}, bind: bindQuery}
}

// OptionalQuery binds an optional string query parameter; an absent one is bound as nil.
func OptionalQuery(name string) Param {
	p := Query(name)
	p.required = false

	return p
}

// QueryInt binds a required integer query parameter.
func QueryInt(name string) Param {
	return Param{
		name:     name,
		in:       InQuery,
		required: true,
		schema:   map[string]any{"type": "integer"},
		bind: func(r *http.Request, name string) (any, bool, error) {
			raw, present, _ := bindQuery(r, name)
			if !present {
				return nil, false, nil
			}

			value, err := strconv.Atoi(raw.(string))
			if err != nil {
				return nil, true, errNotInteger
			}

			return value, true, nil
		},
	}
}

// Path binds a path parameter declared as {name} in the route pattern.
func Path(name string) Param {
	return Param{
		name:     name,
		in:       InPath,
		required: true,
		schema:   map[string]any{"type": "string"},
		bind: func(r *http.Request, name string) (any, bool, error) {
			value := chi.URLParam(r, name)
			return value, value != "", nil
		},
	}
}

// Body binds the JSON request body, decoded into a T. Unknown fields are rejected.
func Body[T any](name string) Param {
	var zero T

	return Param{
		name:     name,
		in:       InBody,
		required: true,
		schema:   schemaFor(reflect.TypeOf(zero)),
		bind: func(r *http.Request, _ string) (any, bool, error) {
			if r.Body == nil {
				return nil, false, nil
			}

			decoder := jsonAPI.NewDecoder(r.Body)
			decoder.DisallowUnknownFields()

			var value T
			if err := decoder.Decode(&value); err != nil {
				if errors.Is(err, io.EOF) {
					return nil, false, nil
				}

				return nil, true, fmt.Errorf("%w: %s", errInvalidBody, err)
			}

			return value, true, nil
		},
	}
}

func bindQuery(r *http.Request, name string) (any, bool, error) {
	values, present := r.URL.Query()[name]
	if !present || len(values) == 0 {
		return nil, false, nil
	}

	return values[0], true, nil
}

// schemaFor derives a JSON Schema for t from its Go type and json tags.
func schemaFor(t reflect.Type) map[string]any {
	if t == nil {
		return map[string]any{}
	}

	switch t.Kind() {
	case reflect.Ptr:
		return schemaFor(t.Elem())
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaFor(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaFor(t.Elem())}
	case reflect.Struct:
		return structSchema(t)
	default:
		return map[string]any{}
	}
}

func structSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any, t.NumField())
	required := make([]any, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		optional := false

		if tag, ok := field.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, option := range parts[1:] {
				if option == "omitempty" {
					optional = true
				}
			}
		}

		properties[name] = schemaFor(field.Type)
		if !optional && field.Type.Kind() != reflect.Ptr {
			required = append(required, name)
		}
	}

	schema := map[string]any{
		"title":      t.Name(),
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}
