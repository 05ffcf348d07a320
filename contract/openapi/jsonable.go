package openapi

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ContractsToJSONable converts a metadata record into the JSON-able "x-contracts" value.
// Sequences keep evaluation order; a description appears only when set.
func ContractsToJSONable(record contract.Record) map[string]any {
	preconditions := make([]any, 0, len(record.Preconditions))
	for _, descriptor := range record.Preconditions {
		preconditions = append(preconditions, contractToJSONable(descriptor))
	}

	snapshots := make([]any, 0, len(record.Snapshots))
	for _, descriptor := range record.Snapshots {
		snapshots = append(snapshots, snapshotToJSONable(descriptor))
	}

	postconditions := make([]any, 0, len(record.Postconditions))
	for _, descriptor := range record.Postconditions {
		postconditions = append(postconditions, contractToJSONable(descriptor))
	}

	return map[string]any{
		"preconditions":  preconditions,
		"snapshots":      snapshots,
		"postconditions": postconditions,
	}
}

func contractToJSONable(descriptor contract.ContractDescriptor) map[string]any {
	jsonable := map[string]any{
		"enforced":   descriptor.Enforced,
		"text":       descriptor.Text,
		"language":   descriptor.Language,
		"statusCode": descriptor.StatusCode,
	}

	if descriptor.Description != "" {
		jsonable["description"] = descriptor.Description
	}

	if descriptor.Synthetic {
		jsonable["synthetic"] = true
	}

	return jsonable
}

func snapshotToJSONable(descriptor contract.SnapshotDescriptor) map[string]any {
	jsonable := map[string]any{
		"name":     descriptor.Name,
		"enabled":  descriptor.Enabled,
		"text":     descriptor.Text,
		"language": descriptor.Language,
	}

	if descriptor.Synthetic {
		jsonable["synthetic"] = true
	}

	return jsonable
}

// EncodeJSON encodes the document as indented JSON.
func EncodeJSON(document Document) ([]byte, error) {
	return jsonAPI.MarshalIndent(document, "", "  ")
}

// EncodeYAML encodes the document as YAML.
func EncodeYAML(document Document) ([]byte, error) {
	var buf bytes.Buffer

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(document); err != nil {
		return nil, err
	}

	if err := encoder.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
