// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

type (
	// ParseResult is the outcome of a successful decode.
	ParseResult[T any] struct {
		// Value is the decoded document.
		Value *T

		// Unified is the schema-unified CUE value, kept for callers that need
		// to inspect fields the Go struct does not model.
		Unified cue.Value
	}

	// Schema is one definition compiled once and reused for every document
	// checked against it. A cue.Context is not safe for concurrent use, so
	// decodes against the same Schema are serialised.
	Schema struct {
		mu   sync.Mutex
		ctx  *cue.Context
		def  cue.Value
		path string
	}
)

// CompileSchema compiles src and looks up the definition at path
// (e.g. "#BatteryPack").
func CompileSchema(src []byte, path string) (*Schema, error) {
	ctx := cuecontext.New()

	compiled := ctx.CompileBytes(src)
	if compiled.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", compiled.Err())
	}

	def := compiled.LookupPath(cue.ParsePath(path))
	if def.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", path, def.Err())
	}
	return &Schema{ctx: ctx, def: def, path: path}, nil
}

// MustCompileSchema is CompileSchema for schemas embedded in the binary,
// where a failure is a programming error.
func MustCompileSchema(src, path string) *Schema {
	s, err := CompileSchema([]byte(src), path)
	if err != nil {
		panic(err)
	}
	return s
}

// Path returns the definition the schema checks documents against.
func (s *Schema) Path() string { return s.path }

// Decode unifies data with s, validates the result and decodes it into T.
//
// Validation and decode failures are returned through FormatError, so they
// name the file and the offending field path.
func Decode[T any](s *Schema, data []byte, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.ctx.CompileBytes(data, cue.Filename(filename))
	if doc.Err() != nil {
		return nil, FormatError(doc.Err(), filename)
	}

	unified := s.def.Unify(doc)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, filename)
	}
	return &ParseResult[T]{Value: &out, Unified: unified}, nil
}

// ParseAndDecode compiles schema and decodes data against the definition at
// schemaPath in one go. Callers decoding many documents against the same
// schema should hold on to a Schema instead.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	s, err := CompileSchema(schema, schemaPath)
	if err != nil {
		return nil, err
	}
	return Decode[T](s, data, opts...)
}

// ParseAndDecodeString is ParseAndDecode for schemas embedded as strings.
func ParseAndDecodeString[T any](schema string, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return ParseAndDecode[T]([]byte(schema), data, schemaPath, opts...)
}
