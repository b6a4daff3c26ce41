package metatype

import (
	"fmt"
	"reflect"
	"strings"
)

// Type identifies a kind of annotation. It is comparable and is used as a map
// key throughout the package.
type Type struct {
	PackagePath string
	Name        string
}

// ParseType parses a qualified type name of the form "import/path.Name". If
// the given string has no dot, the result has an empty package path.
func ParseType(s string) Type {
	if pos := strings.LastIndexByte(s, '.'); pos >= 0 && !strings.Contains(s[pos:], "/") {
		return Type{PackagePath: s[:pos], Name: s[pos+1:]}
	}
	return Type{Name: s}
}

func (t Type) String() string {
	if t.PackagePath == "" {
		return t.Name
	}
	return t.PackagePath + "." + t.Name
}

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool {
	return t == Type{}
}

// less orders types by package path and then name.
func (t Type) less(o Type) bool {
	if t.PackagePath == o.PackagePath {
		return t.Name < o.Name
	}
	return t.PackagePath < o.PackagePath
}

// Attrs are the attribute values of an annotation, keyed by attribute name.
type Attrs map[string]any

// Annotation is one occurrence of an annotation: its type plus the values of
// its attributes. Annotations are immutable. Accessors that return aggregate
// values return copies.
type Annotation struct {
	typ   Type
	attrs map[string]any
}

// NewAnnotation creates an annotation of the given type. The attribute values
// are copied and normalized (see ValueKind). An error wrapping
// ErrUnsupportedValue is returned if any value cannot be represented.
func NewAnnotation(t Type, attrs Attrs) (Annotation, error) {
	if t.IsZero() {
		return Annotation{}, fmt.Errorf("annotation type must not be empty")
	}
	var norm map[string]any
	if len(attrs) > 0 {
		norm = make(map[string]any, len(attrs))
		for k, v := range attrs {
			nv, err := normalizeValue(v)
			if err != nil {
				return Annotation{}, fmt.Errorf("attribute %s of %v: %w", k, t, err)
			}
			norm[k] = nv
		}
	}
	return Annotation{typ: t, attrs: norm}, nil
}

// MustAnnotation is like NewAnnotation except that it panics on error. It is
// intended for use in package initialization, such as in generated code.
func MustAnnotation(t Type, attrs Attrs) Annotation {
	a, err := NewAnnotation(t, attrs)
	if err != nil {
		panic(err)
	}
	return a
}

// Of is shorthand for MustAnnotation that accepts alternating attribute names
// and values.
//
//    metatype.Of(color, "value", "red")
func Of(t Type, kv ...any) Annotation {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("odd number of attribute arguments for %v", t))
	}
	var attrs Attrs
	if len(kv) > 0 {
		attrs = make(Attrs, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			name, ok := kv[i].(string)
			if !ok {
				panic(fmt.Sprintf("attribute name for %v must be a string, got %T", t, kv[i]))
			}
			attrs[name] = kv[i+1]
		}
	}
	return MustAnnotation(t, attrs)
}

// IsValid returns false for the zero Annotation.
func (a Annotation) IsValid() bool {
	return !a.typ.IsZero()
}

// Type returns the annotation's type.
func (a Annotation) Type() Type {
	return a.typ
}

// Attr returns the value of the named attribute. Aggregate values are copied.
func (a Annotation) Attr(name string) (any, bool) {
	v, ok := a.attrs[name]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// Attrs returns a copy of all attribute values.
func (a Annotation) Attrs() Attrs {
	attrs := make(Attrs, len(a.attrs))
	for k, v := range a.attrs {
		attrs[k] = copyValue(v)
	}
	return attrs
}

// AttrNames returns the names of the annotation's attributes, sorted.
func (a Annotation) AttrNames() []string {
	return sortedKeys(a.attrs)
}

// Int returns the named attribute as an int64. It returns false if the
// attribute is absent or is not a signed integer.
func (a Annotation) Int(name string) (int64, bool) {
	v, ok := a.attrs[name].(int64)
	return v, ok
}

// Uint returns the named attribute as a uint64.
func (a Annotation) Uint(name string) (uint64, bool) {
	v, ok := a.attrs[name].(uint64)
	return v, ok
}

// Float returns the named attribute as a float64.
func (a Annotation) Float(name string) (float64, bool) {
	v, ok := a.attrs[name].(float64)
	return v, ok
}

// Str returns the named attribute as a string.
func (a Annotation) Str(name string) (string, bool) {
	v, ok := a.attrs[name].(string)
	return v, ok
}

// Bool returns the named attribute as a bool.
func (a Annotation) Bool(name string) (bool, bool) {
	v, ok := a.attrs[name].(bool)
	return v, ok
}

// With returns a new annotation of the same type whose attributes are those
// of a with the given values replacing (or adding to) them. The receiver is
// not modified. If the given values are equal to the existing ones, the
// receiver is returned.
func (a Annotation) With(attrs Attrs) (Annotation, error) {
	if len(attrs) == 0 {
		return a, nil
	}
	merged := make(Attrs, len(a.attrs)+len(attrs))
	for k, v := range a.attrs {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	result, err := NewAnnotation(a.typ, merged)
	if err != nil {
		return a, err
	}
	if result.Equal(a) {
		return a, nil
	}
	return result, nil
}

// Equal reports whether a and o have the same type and equal attribute
// values.
func (a Annotation) Equal(o Annotation) bool {
	if a.typ != o.typ || len(a.attrs) != len(o.attrs) {
		return false
	}
	for k, v := range a.attrs {
		ov, ok := o.attrs[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// String renders the annotation in source-like form, for example:
//
//    @example.com/shapes.Color{"value": "red"}
func (a Annotation) String() string {
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteString(a.typ.String())
	if len(a.attrs) > 0 {
		formatValue(&sb, a.attrs)
	}
	return sb.String()
}
