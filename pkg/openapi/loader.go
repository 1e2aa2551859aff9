package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// RefPrefix is the prefix of every reference to a named component schema
const RefPrefix = "#/components/schemas/"

// Output formats supported by WriteDocument
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// LoadDocument loads an OpenAPI document from a local file path or an HTTP(S) URL
func LoadDocument(input string) (*openapi3.T, error) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	return LoadDocumentWithLoader(loader, input)
}

// LoadDocumentWithLoader loads an OpenAPI document using a custom loader
func LoadDocumentWithLoader(loader *openapi3.Loader, input string) (*openapi3.T, error) {
	// Try to parse as URL; if it looks like http(s), fetch via URL
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return loader.LoadFromURI(u)
	}
	return loader.LoadFromFile(input)
}

// ValidateDocument loads and validates an OpenAPI document
func ValidateDocument(input string) error {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	doc, err := LoadDocumentWithLoader(loader, input)
	if err != nil {
		return err
	}
	return doc.Validate(loader.Context)
}

// Validate checks the structure of an in-memory document. Generated documents
// hold unresolved local references, so the document is reloaded first.
// Examples come from a static table and are not validated.
func Validate(ctx context.Context, doc *openapi3.T) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	loader := openapi3.NewLoader()
	loaded, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	return loaded.Validate(ctx, openapi3.DisableExamplesValidation())
}

// NewDocument returns an empty document ready to receive component schemas
func NewDocument(title, version, openapiVersion string) *openapi3.T {
	if openapiVersion == "" {
		openapiVersion = "3.0.3"
	}
	if title == "" {
		title = "Schemas"
	}
	if version == "" {
		version = "0.0.0"
	}
	return &openapi3.T{
		OpenAPI: openapiVersion,
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
		},
	}
}

// EnsureComponents makes sure doc has a components schema map and returns it
func EnsureComponents(doc *openapi3.T) openapi3.Schemas {
	if doc.Components == nil {
		doc.Components = &openapi3.Components{}
	}
	if doc.Components.Schemas == nil {
		doc.Components.Schemas = openapi3.Schemas{}
	}
	return doc.Components.Schemas
}

// ParseSchema parses a single schema written as YAML or JSON
func ParseSchema(data []byte) (*openapi3.Schema, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, errors.New("parse schema: expected a mapping")
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	var schema openapi3.Schema
	if err := schema.UnmarshalJSON(encoded); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &schema, nil
}

// WriteDocument encodes doc in the given format
func WriteDocument(w io.Writer, doc *openapi3.T, format string) error {
	switch strings.ToLower(format) {
	case "", FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// RefName returns the component name a reference points to
func RefName(ref string) string {
	if strings.HasPrefix(ref, RefPrefix) {
		return strings.TrimPrefix(ref, RefPrefix)
	}
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}
