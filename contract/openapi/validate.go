package openapi

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://endpoint-contracts.local/x-contracts.schema.json"

//go:embed contracts.schema.json
var contractsSchema []byte

// ErrInvalidExtension is returned when an "x-contracts" value does not match the contracts JSON Schema.
var ErrInvalidExtension = errors.New("invalid x-contracts extension")

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
	numberAPI          = jsoniter.Config{UseNumber: true}.Froze()
)

func extensionSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020

		if err := c.AddResource(schemaURL, bytes.NewReader(contractsSchema)); err != nil {
			compiledSchemaErr = fmt.Errorf("contracts schema load failed: %w", err)
			return
		}

		compiledSchema, compiledSchemaErr = c.Compile(schemaURL)
	})

	return compiledSchema, compiledSchemaErr
}

// ValidateExtensions validates every "x-contracts" value of the document against the contracts JSON Schema.
func ValidateExtensions(document Document) error {
	paths, _ := document["paths"].(map[string]any)
	for path, pathItem := range paths {
		operations, ok := pathItem.(map[string]any)
		if !ok {
			continue
		}

		for method, value := range operations {
			operation, ok := value.(map[string]any)
			if !ok {
				continue
			}

			extension, ok := operation[ExtensionKey]
			if !ok {
				continue
			}

			if err := ValidateExtension(extension); err != nil {
				return fmt.Errorf("%s %s: %w", method, path, err)
			}
		}
	}

	return nil
}

// ValidateExtension validates one "x-contracts" value against the contracts JSON Schema.
func ValidateExtension(extension any) error {
	schema, err := extensionSchema()
	if err != nil {
		return err
	}

	// The validator expects decoded JSON, so the Go values are normalized through an encoding round trip.
	encoded, err := numberAPI.Marshal(extension)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, err)
	}

	var decoded any
	if err = numberAPI.Unmarshal(encoded, &decoded); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, err)
	}

	if err = schema.Validate(decoded); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, err)
	}

	return nil
}
