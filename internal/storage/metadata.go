/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"goscreenwriter/internal/screenplay"
)

// Metadata keys consumed by the screenplay; all other keys are kept as extras.
const (
	KeyName       = "name"
	KeyAuthors    = "authors"
	KeyDirector   = "director"
	KeyDate       = "creation-date"
	KeyProduction = "production"
)

var requiredFields = []string{KeyName, KeyAuthors, KeyDirector, KeyDate, KeyProduction}

//go:embed metadata.schema.json
var metadataSchemaJSON []byte

// ErrInvalidMetadata wraps syntax and shape problems in a metadata file.
var ErrInvalidMetadata = errors.New("invalid metadata")

// MissingFieldError reports a required metadata key that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required metadata field %q", e.Field)
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func metadataSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(metadataSchemaJSON))
	})
	return schema, schemaErr
}

// field is one top-level key in file order. Value is a string, nil, []any or map[string]any.
type field struct {
	key   string
	value any
}

// DecodeMetadata decodes a JSON or YAML metadata document, keeping the order of extra keys.
// Required keys are checked first and reported as *MissingFieldError.
func DecodeMetadata(data []byte) (screenplay.Metadata, error) {
	var (
		fields []field
		err    error
	)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		fields, err = jsonFields(trimmed)
	} else {
		fields, err = yamlFields(trimmed)
	}
	if err != nil {
		return screenplay.Metadata{}, err
	}
	if err := validateFields(fields); err != nil {
		return screenplay.Metadata{}, err
	}

	meta := screenplay.Metadata{Extra: screenplay.NewFields()}
	for _, f := range fields {
		switch f.key {
		case KeyName:
			meta.Title, _ = f.value.(string)
		case KeyAuthors:
			authors, aerr := screenplay.AuthorList(f.value)
			if aerr != nil {
				return screenplay.Metadata{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, aerr)
			}
			meta.Authors = authors
		case KeyDirector:
			meta.Director, _ = f.value.(string)
		case KeyDate:
			meta.Date, _ = f.value.(string)
		case KeyProduction:
			meta.Production, _ = f.value.(string)
		default:
			s, _ := f.value.(string)
			meta.Extra.Set(f.key, s)
		}
	}
	return meta, nil
}

func validateFields(fields []field) error {
	doc := make(map[string]any, len(fields))
	for _, f := range fields {
		doc[f.key] = f.value
	}
	s, err := metadataSchema()
	if err != nil {
		return fmt.Errorf("load metadata schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if res.Valid() {
		return nil
	}
	missing := map[string]bool{}
	var problems []string
	for _, re := range res.Errors() {
		if re.Type() == "required" {
			if p, ok := re.Details()["property"].(string); ok {
				missing[p] = true
				continue
			}
		}
		problems = append(problems, re.String())
	}
	for _, k := range requiredFields {
		if missing[k] {
			return &MissingFieldError{Field: k}
		}
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrInvalidMetadata, strings.Join(problems, "; "))
}

func jsonFields(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidMetadata)
	}
	var out []field
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrInvalidMetadata, key, err)
		}
		out = appendField(out, field{key: key, value: jsonValue(v)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return out, nil
}

func jsonValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	case map[string]any:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func yamlFields(data []byte) ([]field, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if doc.Kind == 0 {
		// empty document
		return nil, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping", ErrInvalidMetadata)
	}
	var out []field
	for i := 0; i+1 < len(root.Content); i += 2 {
		out = appendField(out, field{key: root.Content[i].Value, value: yamlValue(root.Content[i+1])})
	}
	return out, nil
}

func yamlValue(n *yaml.Node) any {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		return n.Value
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, yamlValue(c))
		}
		return out
	case yaml.AliasNode:
		if n.Alias != nil {
			return yamlValue(n.Alias)
		}
		return nil
	default:
		return map[string]any{}
	}
}

// appendField replaces an earlier value for the same key in place.
func appendField(fs []field, f field) []field {
	for i := range fs {
		if fs[i].key == f.key {
			fs[i].value = f.value
			return fs
		}
	}
	return append(fs, f)
}

// EncodeMetadata renders metadata as indented JSON, required keys first, then extras in order.
func EncodeMetadata(meta screenplay.Metadata) ([]byte, error) {
	if len(meta.Authors) == 0 {
		return nil, screenplay.ErrNoAuthors
	}
	om := orderedmap.New[string, any]()
	om.Set(KeyName, meta.Title)
	om.Set(KeyAuthors, meta.Authors)
	om.Set(KeyDirector, meta.Director)
	om.Set(KeyDate, meta.Date)
	om.Set(KeyProduction, meta.Production)
	if meta.Extra != nil {
		for p := meta.Extra.Oldest(); p != nil; p = p.Next() {
			if _, reserved := om.Get(p.Key); reserved {
				continue
			}
			om.Set(p.Key, p.Value)
		}
	}
	data, err := json.MarshalIndent(om, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
