// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package document loads JSON-with-comments configuration files, edits them
// by key path and writes them back as plain JSON, YAML or properties.
package document

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"jsoncfg/tool/internal/jsonc"

	"k8s.io/klog/v2"
)

const pathSeparator = "."

type Document struct {
	root map[string]interface{}
}

// LoadOptions are the stripping options used when none are given: trailing
// commas are accepted since they are common in hand-edited config files.
func LoadOptions() jsonc.Options {
	return jsonc.Options{PreserveWhitespace: true, StripTrailingCommas: true}
}

func Load(path string, opts *jsonc.Options) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	klog.V(5).Infof("Loaded document %q with %d top level keys", path, len(doc.root))

	return doc, nil
}

func Parse(data []byte, opts *jsonc.Options) (*Document, error) {
	if opts == nil {
		defaults := LoadOptions()
		opts = &defaults
	}

	var out interface{}
	if err := jsonc.Unmarshal(data, &out, opts); err != nil {
		return nil, fmt.Errorf("Failed to unmarshal json document: %s", err.Error())
	}

	root, ok := out.(map[string]interface{})
	if !ok {
		return nil, jsonc.NewArgumentError("document", fmt.Errorf("top level value must be an object, got %T", out))
	}

	return &Document{root: root}, nil
}

func (d *Document) Root() map[string]interface{} {
	return d.root
}

// Get resolves a dotted key path. Array elements are addressed by index.
func (d *Document) Get(path string) (interface{}, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, false
	}

	var current interface{} = d.root
	for _, part := range parts {
		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[part]
			if !ok {
				return nil, false
			}
			current = value
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// Set writes value at a dotted key path, creating intermediate objects.
func (d *Document) Set(path string, value interface{}) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	tree := &patchTree{}
	if err := tree.insert(parts, value); err != nil {
		return err
	}
	d.Merge(tree.build())

	return nil
}

// Merge applies patch onto the document. Objects are merged recursively, an
// object patch whose keys are all valid indices edits an existing array in
// place (index len(array) appends), anything else replaces the target.
func (d *Document) Merge(patch map[string]interface{}) {
	d.root = mergeObject(d.root, patch)
}

func mergeObject(target, patch map[string]interface{}) map[string]interface{} {
	if target == nil {
		target = make(map[string]interface{}, len(patch))
	}
	for k, v := range patch {
		target[k] = mergeValue(target[k], v)
	}

	return target
}

func mergeValue(target, patch interface{}) interface{} {
	p, ok := patch.(map[string]interface{})
	if !ok {
		return patch
	}

	switch t := target.(type) {
	case map[string]interface{}:
		return mergeObject(t, p)
	case []interface{}:
		if merged, ok := mergeArray(t, p); ok {
			return merged
		}
	}

	return mergeObject(nil, p)
}

func mergeArray(target []interface{}, patch map[string]interface{}) ([]interface{}, bool) {
	result := append([]interface{}(nil), target...)
	for i := 0; i < len(patch); i++ {
		key := strconv.Itoa(len(result))
		if _, ok := patch[key]; !ok {
			break
		}
		result = append(result, nil)
	}

	for k := range patch {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= len(result) {
			return nil, false
		}
	}
	for k, v := range patch {
		idx, _ := strconv.Atoi(k)
		result[idx] = mergeValue(result[idx], v)
	}

	return result, true
}

// ParseAssignments folds key=value assignments into a single patch. Values
// that are valid JSON are decoded, anything else is kept as a string.
func ParseAssignments(assignments []string) (map[string]interface{}, error) {
	tree := &patchTree{}
	for _, assignment := range assignments {
		key, raw, found := strings.Cut(assignment, "=")
		if !found {
			return nil, jsonc.NewArgumentError(assignment, fmt.Errorf("assignment must have the form key=value"))
		}

		parts, err := splitPath(strings.TrimSpace(key))
		if err != nil {
			return nil, err
		}
		if err := tree.insert(parts, parseValue(raw)); err != nil {
			return nil, jsonc.NewArgumentError(assignment, err)
		}
	}

	return tree.build(), nil
}

func parseValue(raw string) interface{} {
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}

	return value
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, jsonc.NewArgumentError("path", fmt.Errorf("key path is empty"))
	}

	parts := strings.Split(path, pathSeparator)
	for _, part := range parts {
		if part == "" {
			return nil, jsonc.NewArgumentError("path", fmt.Errorf("key path %q has an empty segment", path))
		}
	}

	return parts, nil
}
