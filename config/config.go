// Package config loads annotation declarations from TOML files.
//
// A file declares annotation types, their meta-annotations, definition
// groups, and attribute defaults, along with the annotations of program
// elements. Types are referenced by name; names without a package path are
// qualified with the file's package:
//
//    package = "example.com/shapes"
//
//    [[annotation]]
//    name = "Red"
//    annotations = [{ type = "github.com/jhump/metatype.Metatype" }]
//    definitions = [[{ type = "Red" }, { type = "Color", attrs = { value = "red" } }]]
//
//    [[element]]
//    kind = "constructor"
//    owner = "Square"
//    name = "NewSquare"
//    annotations = [{ type = "Red" }]
//
// A meta-type may also declare override rules, CEL expressions that compute
// attributes of the annotations extracted from it:
//
//    [[annotation.override]]
//    servant = "Digits"
//    set = { integer = "master.integer", fraction = "master.fraction" }
//
// Built files are used directly (see File.Build) or compiled into Go source
// that registers the same declarations (see package codegen).
package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// File is the decoded content of a declaration file.
type File struct {
	// Package qualifies type names that have no package path.
	Package     string           `toml:"package"`
	Annotations []AnnotationDecl `toml:"annotation"`
	Elements    []ElementDecl    `toml:"element"`

	path string
}

// AnnotationRef is a use of an annotation: its type and attribute values.
type AnnotationRef struct {
	Type  string         `toml:"type"`
	Attrs map[string]any `toml:"attrs"`
}

// AnnotationDecl declares an annotation type.
type AnnotationDecl struct {
	Name        string            `toml:"name"`
	Annotations []AnnotationRef   `toml:"annotations"`
	Definitions [][]AnnotationRef `toml:"definitions"`
	Defaults    map[string]any    `toml:"defaults"`
	// Extractor names the extractor used for the type. It is recorded in the
	// type's Metatype annotation.
	Extractor string         `toml:"extractor"`
	Overrides []OverrideDecl `toml:"override"`
}

// OverrideDecl declares an override rule. Set maps attributes of the servant
// to the CEL expressions that compute them.
type OverrideDecl struct {
	Servant string            `toml:"servant"`
	Set     map[string]string `toml:"set"`
}

// ElementDecl declares the annotations of one program element.
type ElementDecl struct {
	Kind        string          `toml:"kind"`
	Owner       string          `toml:"owner"`
	Name        string          `toml:"name"`
	Index       int             `toml:"index"`
	Annotations []AnnotationRef `toml:"annotations"`
}

// Path returns the name of the file that f was loaded from, or the empty
// string if it was parsed from text.
func (f *File) Path() string {
	return f.path
}

// Load reads and parses the declaration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(path, string(data))
}

// Parse parses the given declarations.
func Parse(text string) (*File, error) {
	return parse("", text)
}

func parse(path, text string) (*File, error) {
	var f File
	meta, err := toml.Decode(text, &f)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, NewErrorWithPosition(position(path, text, perr), errors.New(perr.Message))
		}
		return nil, prefixed(path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, prefixed(path, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", ")))
	}
	f.path = path
	return &f, nil
}

func position(path, text string, perr toml.ParseError) token.Position {
	pos := token.Position{Filename: path, Line: perr.Position.Line, Offset: perr.Position.Start}
	if start := perr.Position.Start; start >= 0 && start <= len(text) {
		pos.Column = start - strings.LastIndexByte(text[:start], '\n')
	}
	return pos
}

func prefixed(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}

// ErrorWithPosition is an error that has source position information associated
// with it. The position indicates the location in a declaration file where the
// error was encountered.
type ErrorWithPosition struct {
	err error
	pos token.Position
}

// Error implements the error interface. It includes position information in the
// returned message.
func (e *ErrorWithPosition) Error() string {
	if e.pos.Filename == "" {
		return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.err.Error())
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.pos.Filename, e.pos.Line, e.pos.Column, e.err.Error())
}

// Unwrap returns the underlying error.
func (e *ErrorWithPosition) Unwrap() error {
	return e.err
}

// Pos returns the location in source where the underlying error was
// encountered.
func (e *ErrorWithPosition) Pos() token.Position {
	return e.pos
}

// NewErrorWithPosition returns the given error, but associates it with the
// given source code location.
func NewErrorWithPosition(pos token.Position, err error) *ErrorWithPosition {
	return &ErrorWithPosition{err: err, pos: pos}
}
