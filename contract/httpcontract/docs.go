package httpcontract

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract/openapi"
)

// BaseDocument builds the OpenAPI document of the registered routes without contracts.
func (r *Router) BaseDocument() (openapi.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make(map[string]any)
	for _, rt := range r.routes {
		if !rt.includeInSchema {
			continue
		}

		pathItem, ok := paths[rt.path].(map[string]any)
		if !ok {
			pathItem = make(map[string]any)
			paths[rt.path] = pathItem
		}

		pathItem[strings.ToLower(rt.method)] = rt.operation()
	}

	return openapi.Document{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   r.title,
			"version": r.version,
		},
		"paths": paths,
	}, nil
}

func (rt route) operation() map[string]any {
	operation := map[string]any{
		"operationId": rt.operationID,
		"summary":     rt.summary,
		"responses": map[string]any{
			"200": map[string]any{
				"description": "Successful Response",
				"content":     map[string]any{"application/json": map[string]any{"schema": map[string]any{}}},
			},
		},
	}

	parameters := make([]any, 0, len(rt.params))
	for _, p := range rt.params {
		if p.in == InBody {
			operation["requestBody"] = map[string]any{
				"required": p.required,
				"content":  map[string]any{"application/json": map[string]any{"schema": p.schema}},
			}

			continue
		}

		parameters = append(parameters, p.document())
	}

	if len(parameters) > 0 {
		operation["parameters"] = parameters
	}

	if len(rt.params) > 0 {
		operation["responses"].(map[string]any)["422"] = map[string]any{"description": "Validation Error"}
	}

	return operation
}

type docsSettings struct {
	docsPath           string
	jsonPath           string
	yamlPath           string
	oauth2RedirectPath string
	initOAuth          map[string]any
	swaggerUI          openapi.SwaggerUIConfig
	wrapOptions        []openapi.WrapOption
}

// DocsOption configures MountDocs.
type DocsOption func(*docsSettings)

// WithDocsPath sets the path of the documentation page; the default is /docs.
func WithDocsPath(path string) DocsOption {
	return func(s *docsSettings) {
		s.docsPath = path
	}
}

// WithOpenAPIPaths sets the paths of the JSON and YAML documents.
func WithOpenAPIPaths(jsonPath, yamlPath string) DocsOption {
	return func(s *docsSettings) {
		s.jsonPath = jsonPath
		s.yamlPath = yamlPath
	}
}

// WithOAuth2Redirect serves the Swagger UI OAuth2 redirect page at path
// and passes initOAuth to ui.initOAuth when it is not nil.
func WithOAuth2Redirect(path string, initOAuth map[string]any) DocsOption {
	return func(s *docsSettings) {
		s.oauth2RedirectPath = path
		s.initOAuth = initOAuth
	}
}

// WithSwaggerUI overrides the asset locations of the documentation page.
func WithSwaggerUI(config openapi.SwaggerUIConfig) DocsOption {
	return func(s *docsSettings) {
		s.swaggerUI = config
	}
}

// WithExtensionValidation validates the written contracts against the contracts JSON Schema.
func WithExtensionValidation() DocsOption {
	return func(s *docsSettings) {
		s.wrapOptions = append(s.wrapOptions, openapi.WithValidation())
	}
}

type validator interface {
	Validate() error
}

// MountDocs serves the OpenAPI document with contracts as JSON and YAML, and the Swagger UI page
// with the contracts plugin. Call it after all routes are registered.
//
// It fails when a GET route already exists at one of the documentation paths.
// A source that can validate itself, like *contract.Registry, is validated first.
func (r *Router) MountDocs(source openapi.MetadataSource, options ...DocsOption) (openapi.SchemaFunc, error) {
	if source == nil {
		return nil, ErrNilSchemaSource
	}

	settings := docsSettings{
		docsPath: openapi.DefaultDocsPath,
		jsonPath: openapi.DefaultOpenAPIJSONPath,
		yamlPath: openapi.DefaultOpenAPIYAMLPath,
	}
	for _, option := range options {
		option(&settings)
	}

	if v, ok := source.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}

	paths := []string{settings.docsPath, settings.jsonPath, settings.yamlPath}
	if settings.oauth2RedirectPath != "" {
		paths = append(paths, settings.oauth2RedirectPath)
	}

	for _, path := range paths {
		if r.hasGetRoute(path) {
			return nil, fmt.Errorf("%w: %s", ErrDocsRouteExists, path)
		}
	}

	schema := openapi.WrapWithContracts(source, r, r.BaseDocument, settings.wrapOptions...)

	uiConfig := settings.swaggerUI
	uiConfig.OpenAPIURL = settings.jsonPath
	uiConfig.OAuth2RedirectURL = settings.oauth2RedirectPath
	uiConfig.InitOAuth = settings.initOAuth
	if uiConfig.Title == "" {
		uiConfig.Title = r.title + " - Swagger UI"
	}

	page, err := openapi.SwaggerUIHTML(uiConfig)
	if err != nil {
		return nil, err
	}

	r.mountStatic(settings.jsonPath, "openapi_json", func(w http.ResponseWriter, req *http.Request) {
		document, err := schema()
		if err != nil {
			r.writeSchemaError(w, req, err)
			return
		}

		encoded, err := openapi.EncodeJSON(document)
		if err != nil {
			r.writeSchemaError(w, req, err)
			return
		}

		writeBytes(w, "application/json", encoded)
	})

	r.mountStatic(settings.yamlPath, "openapi_yaml", func(w http.ResponseWriter, req *http.Request) {
		document, err := schema()
		if err != nil {
			r.writeSchemaError(w, req, err)
			return
		}

		encoded, err := openapi.EncodeYAML(document)
		if err != nil {
			r.writeSchemaError(w, req, err)
			return
		}

		writeBytes(w, "application/yaml", encoded)
	})

	r.mountStatic(settings.docsPath, "swagger_ui_html", func(w http.ResponseWriter, _ *http.Request) {
		writeBytes(w, "text/html; charset=utf-8", page)
	})

	if settings.oauth2RedirectPath != "" {
		r.mountStatic(settings.oauth2RedirectPath, "swagger_ui_redirect", func(w http.ResponseWriter, _ *http.Request) {
			writeBytes(w, "text/html; charset=utf-8", []byte(openapi.OAuth2RedirectHTML))
		})
	}

	return schema, nil
}

// hasGetRoute walks the chi routing tree, so routes mounted directly on the mux are found too.
func (r *Router) hasGetRoute(path string) bool {
	found := false
	_ = chi.Walk(r.mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if method == http.MethodGet && route == path {
			found = true
		}

		return nil
	})

	return found
}

func (r *Router) mountStatic(path, name string, fn http.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, route{
		method:          http.MethodGet,
		path:            path,
		name:            name,
		operationID:     openapi.OperationID(name, path, http.MethodGet),
		includeInSchema: false,
	})
	r.mux.Get(path, fn)
}

func (r *Router) writeSchemaError(w http.ResponseWriter, req *http.Request, err error) {
	r.logError(req.Context(), logMsgRequestFailed, logAttrRoute, "openapi", logAttrError, err.Error())
	writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": internalServerErrorMsg})
}

func writeBytes(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
