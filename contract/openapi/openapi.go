// Package openapi publishes the contract metadata of handlers in an OpenAPI document.
//
// Every operation whose handler carries contracts gets an "x-contracts" extension:
//
//	"x-contracts": {
//	  "preconditions":  [{"enforced": true, "text": "hasCategory", "language": "go", "statusCode": 404, ...}],
//	  "snapshots":      [{"name": "count", "enabled": true, "text": "countBooks", "language": "go"}],
//	  "postconditions": [...]
//	}
//
// The extension is read by the swagger-ui-plugin-contracts plugin, which SwaggerUIHTML loads.
package openapi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
)

// ExtensionKey is the operation field the contracts are written to.
const ExtensionKey = "x-contracts"

var (
	ErrNilBaseSchema        = errors.New("nil base schema function supplied")
	ErrNilMetadataSource    = errors.New("nil metadata source supplied")
	ErrDuplicateOperationID = errors.New("duplicate contracts for operation id")
	ErrMissingPaths         = errors.New("OpenAPI document has no paths object")
)

// Document is a decoded OpenAPI document.
type Document = map[string]any

// Route describes one registered route as seen by the schema builder.
type Route struct {
	Name            string
	Path            string
	Methods         []string
	OperationID     string
	Handler         contract.Handler
	IncludeInSchema bool
}

// OperationIDs returns the operation id of the route for every method.
// An explicit OperationID is used as is for a single method and suffixed with the method otherwise.
func (r Route) OperationIDs() map[string]string {
	ids := make(map[string]string, len(r.Methods))
	for _, method := range r.Methods {
		switch {
		case r.OperationID == "":
			ids[method] = OperationID(r.Name, r.Path, method)
		case len(r.Methods) == 1:
			ids[method] = r.OperationID
		default:
			ids[method] = r.OperationID + "_" + strings.ToLower(method)
		}
	}

	return ids
}

var nonWord = regexp.MustCompile(`\W`)

// OperationID generates the operation id of a route: the name followed by the path,
// every non-word character replaced by "_", suffixed with "_" and the lower-case method.
//
//	OperationID("books_in_category", "/books_in_category", "GET") == "books_in_category_books_in_category_get"
func OperationID(name, path, method string) string {
	return nonWord.ReplaceAllString(name+path, "_") + "_" + strings.ToLower(method)
}

// MetadataSource provides the contract metadata of handlers; *contract.Registry satisfies it.
type MetadataSource interface {
	Metadata(h contract.Handler) (contract.Record, bool)
}

// RouteLister lists the registered routes.
type RouteLister interface {
	Routes() []Route
}

// RouteList is a static RouteLister.
type RouteList []Route

// Routes implements RouteLister.
func (l RouteList) Routes() []Route {
	return l
}

// SchemaFunc builds an OpenAPI document.
type SchemaFunc func() (Document, error)

type wrapSettings struct {
	validate bool
}

// WrapOption configures WrapWithContracts.
type WrapOption func(*wrapSettings)

// WithValidation validates every written extension against the contracts JSON Schema.
func WithValidation() WrapOption {
	return func(s *wrapSettings) {
		s.validate = true
	}
}

// WrapWithContracts returns a SchemaFunc that builds the document with base and writes the contracts
// of every included route into the matching operations. Register it once while assembling the application.
//
// The routes are listed on the first successful call, whose result is cached and returned afterward.
func WrapWithContracts(source MetadataSource, routes RouteLister, base SchemaFunc, options ...WrapOption) SchemaFunc {
	settings := wrapSettings{}
	for _, option := range options {
		option(&settings)
	}

	var (
		mu     sync.Mutex
		cached Document
	)

	return func() (Document, error) {
		mu.Lock()
		defer mu.Unlock()

		if cached != nil {
			return cached, nil
		}

		if base == nil {
			return nil, ErrNilBaseSchema
		}

		if source == nil {
			return nil, ErrNilMetadataSource
		}

		document, err := base()
		if err != nil {
			return nil, err
		}

		operationContracts, err := collectContracts(source, routes)
		if err != nil {
			return nil, err
		}

		if err = writeContracts(document, operationContracts); err != nil {
			return nil, err
		}

		if settings.validate {
			if err = ValidateExtensions(document); err != nil {
				return nil, err
			}
		}

		cached = document

		return cached, nil
	}
}

func collectContracts(source MetadataSource, routes RouteLister) (map[string]contract.Record, error) {
	operationContracts := make(map[string]contract.Record)
	if routes == nil {
		return operationContracts, nil
	}

	for _, route := range routes.Routes() {
		if !route.IncludeInSchema || route.Handler == nil {
			continue
		}

		record, ok := source.Metadata(route.Handler)
		if !ok {
			continue
		}

		for _, operationID := range route.OperationIDs() {
			if _, exists := operationContracts[operationID]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateOperationID, operationID)
			}

			operationContracts[operationID] = record
		}
	}

	return operationContracts, nil
}

func writeContracts(document Document, operationContracts map[string]contract.Record) error {
	if len(operationContracts) == 0 {
		return nil
	}

	paths, ok := document["paths"].(map[string]any)
	if !ok {
		return ErrMissingPaths
	}

	for _, pathItem := range paths {
		operations, ok := pathItem.(map[string]any)
		if !ok {
			continue
		}

		for _, value := range operations {
			operation, ok := value.(map[string]any)
			if !ok {
				continue
			}

			operationID, _ := operation["operationId"].(string)
			if record, found := operationContracts[operationID]; found && operationID != "" {
				operation[ExtensionKey] = ContractsToJSONable(record)
			}
		}
	}

	return nil
}
