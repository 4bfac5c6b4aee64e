// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jsoncfg/tool/internal/jsonc"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Schema struct {
	schema *jsonschema.Schema
}

// CompileSchema loads a JSON Schema (draft 2020-12 unless the schema says
// otherwise). The schema file may itself contain comments.
func CompileSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}

	return compileSchema(filepath.Base(path), data)
}

func compileSchema(name string, data []byte) (*Schema, error) {
	opts := LoadOptions()
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(name, strings.NewReader(jsonc.Strip(string(data), &opts))); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{schema: s}, nil
}

func (s *Schema) Validate(doc *Document) error {
	// the validator expects values as produced by encoding/json
	if err := s.schema.Validate(doc.root); err != nil {
		return fmt.Errorf("document failed schema validation: %w", err)
	}

	return nil
}
