// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// unify compiles schema and data, looks up the definition at schemaPath and
// returns the validated unification.
func unify(schema, data []byte, schemaPath string, o parseOptions) (cue.Value, error) {
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if err := schemaValue.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", err)
	}
	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if err := root.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, err)
	}

	userValue := ctx.CompileBytes(data, cue.Filename(o.filename))
	if err := userValue.Err(); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}
	return unified, nil
}

// ParseAndDecode validates data against the schema definition at schemaPath
// (e.g. "#BundleSet") and decodes the result into a T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*T, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	unified, err := unify(schema, data, schemaPath, o)
	if err != nil {
		return nil, err
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &result, nil
}

// ParseToMap validates data against the schema definition at schemaPath and
// decodes the fields the user actually set into a map, ready for
// viper.MergeConfigMap. Concreteness is not required.
func ParseToMap(schema, data []byte, schemaPath string, opts ...Option) (map[string]any, error) {
	o := defaultOptions()
	o.concrete = false
	for _, opt := range opts {
		opt(&o)
	}

	unified, err := unify(schema, data, schemaPath, o)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return result, nil
}
