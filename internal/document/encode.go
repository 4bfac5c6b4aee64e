// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"jsoncfg/tool/internal/jsonc"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	Json       Format = "json"
	Yaml       Format = "yaml"
	Properties Format = "properties"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Json, Yaml, Properties:
		return f, nil
	case "yml":
		return Yaml, nil
	default:
		return "", jsonc.NewArgumentError("format", fmt.Errorf("unsupported format '%s', only supports json/yaml/properties", s))
	}
}

func (d *Document) Encode(format Format) ([]byte, error) {
	switch format {
	case Json:
		var buf bytes.Buffer
		encoder := json.NewEncoder(&buf)
		encoder.SetEscapeHTML(false)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(d.root); err != nil {
			return nil, fmt.Errorf("Failed to marshal document to json: %s", err.Error())
		}
		return buf.Bytes(), nil
	case Yaml:
		out, err := yaml.Marshal(d.root)
		if err != nil {
			return nil, fmt.Errorf("Failed to marshal document to yaml: %s", err.Error())
		}
		return out, nil
	case Properties:
		return []byte(marshalProperties(d.root)), nil
	}

	return nil, jsonc.NewArgumentError("format", fmt.Errorf("unsupported format '%s'", format))
}

// Save encodes the document and replaces the file at path, keeping its mode
// when it already exists.
func (d *Document) Save(path string, format Format) error {
	out, err := d.Encode(format)
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, out, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// marshalProperties flattens the document into sorted key=value lines, nested
// keys joined with the path separator.
func marshalProperties(root map[string]interface{}) string {
	settings := make(map[string]string)
	flatten("", root, settings)

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stringBuilder := strings.Builder{}
	for _, k := range keys {
		stringBuilder.WriteString(fmt.Sprintf("%s=%s\n", k, settings[k]))
	}

	return stringBuilder.String()
}

func flatten(prefix string, value interface{}, out map[string]string) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + pathSeparator + k
	}

	switch v := value.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(join(k), child, out)
		}
	case []interface{}:
		for i, child := range v {
			flatten(join(strconv.Itoa(i)), child, out)
		}
	case nil:
		out[prefix] = ""
	case string:
		out[prefix] = v
	default:
		b, _ := json.Marshal(v)
		out[prefix] = string(b)
	}
}
