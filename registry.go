package metatype

import (
	"fmt"
	"sort"
	"sync"
)

// Declaration describes an annotation type: the annotations declared on the
// type itself, the annotation groups of its definition (example usage sites
// that annotate a synthetic element with the type alongside other
// annotations), and the default values of its attributes.
type Declaration struct {
	Type Type
	// Annotations declared directly on the type.
	Annotations []Annotation
	// Definitions are groups of annotations that each decorate one usage
	// site in the type's definition. Only groups that include an annotation
	// of the declared type contribute meta-annotations.
	Definitions [][]Annotation
	// Defaults are attribute values used by Registry.New when an attribute
	// is not otherwise given.
	Defaults Attrs
}

func (d *Declaration) clone() Declaration {
	c := Declaration{Type: d.Type}
	if d.Annotations != nil {
		c.Annotations = append([]Annotation(nil), d.Annotations...)
	}
	if d.Definitions != nil {
		c.Definitions = make([][]Annotation, len(d.Definitions))
		for i, g := range d.Definitions {
			c.Definitions[i] = append([]Annotation(nil), g...)
		}
	}
	if d.Defaults != nil {
		c.Defaults = make(Attrs, len(d.Defaults))
		for k, v := range d.Defaults {
			c.Defaults[k] = copyValue(v)
		}
	}
	return c
}

// Registry holds annotation type declarations and the annotations declared on
// program elements. It is the only source of type information consulted
// during resolution. Registration usually happens from package init
// functions, often generated by metagen. A Registry is safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	decls    map[Type]*Declaration
	elements map[Element][]Annotation
	order    []Element
}

// NewRegistry creates a registry that contains declarations for the built-in
// marker types (Metatype, Metaroot, Retention, Target, and Documented).
func NewRegistry() *Registry {
	r := &Registry{
		decls:    map[Type]*Declaration{},
		elements: map[Element][]Annotation{},
	}
	registerBuiltins(r)
	return r
}

// DefaultRegistry is the registry used by the package-level Register*
// functions.
var DefaultRegistry = NewRegistry()

func (r *Registry) declaration(t Type) *Declaration {
	d := r.decls[t]
	if d == nil {
		d = &Declaration{Type: t}
		r.decls[t] = d
	}
	return d
}

// RegisterTypeAnnotation records that annotation type t is annotated with a.
func (r *Registry) RegisterTypeAnnotation(t Type, a Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.declaration(t)
	d.Annotations = append(d.Annotations, a)
}

// RegisterDefinition records one annotation group of t's definition.
func (r *Registry) RegisterDefinition(t Type, group ...Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.declaration(t)
	d.Definitions = append(d.Definitions, append([]Annotation(nil), group...))
}

// RegisterDefault records the default value for the named attribute of t. An
// error is returned if the value cannot be used as an attribute value.
func (r *Registry) RegisterDefault(t Type, attr string, value any) error {
	v, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("default for attribute %s of %v: %w", attr, t, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.declaration(t)
	if d.Defaults == nil {
		d.Defaults = Attrs{}
	}
	d.Defaults[attr] = v
	return nil
}

// RegisterElementAnnotation records that the given element is annotated
// with a. Annotations are kept in registration order.
func (r *Registry) RegisterElementAnnotation(el Element, a Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	annos, ok := r.elements[el]
	if !ok {
		r.order = append(r.order, el)
	}
	r.elements[el] = append(annos, a)
}

// New creates an annotation of type t. Attributes not present in attrs take
// their registered default values.
func (r *Registry) New(t Type, attrs Attrs) (Annotation, error) {
	r.mu.RLock()
	var merged Attrs
	if d := r.decls[t]; d != nil && len(d.Defaults) > 0 {
		merged = make(Attrs, len(d.Defaults)+len(attrs))
		for k, v := range d.Defaults {
			merged[k] = v
		}
	}
	r.mu.RUnlock()
	if merged == nil {
		return NewAnnotation(t, attrs)
	}
	for k, v := range attrs {
		merged[k] = v
	}
	return NewAnnotation(t, merged)
}

// Lookup returns a copy of the declaration for t.
func (r *Registry) Lookup(t Type) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := r.decls[t]
	if d == nil {
		return Declaration{}, false
	}
	return d.clone(), true
}

// declaredAnnotations returns the annotations declared directly on t. The
// returned slice must not be modified.
func (r *Registry) declaredAnnotations(t Type) []Annotation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d := r.decls[t]; d != nil {
		return d.Annotations[:len(d.Annotations):len(d.Annotations)]
	}
	return nil
}

// Types returns all declared annotation types, sorted.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	types := make([]Type, 0, len(r.decls))
	for t := range r.decls {
		types = append(types, t)
	}
	r.mu.RUnlock()
	sort.Slice(types, func(i, j int) bool {
		return types[i].less(types[j])
	})
	return types
}

// ElementAnnotations returns the annotations declared on el.
func (r *Registry) ElementAnnotations(el Element) []Annotation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Annotation(nil), r.elements[el]...)
}

// Elements returns all elements that have annotations, in the order in which
// they were first registered.
func (r *Registry) Elements() []Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Element(nil), r.order...)
}

// Parameters returns the annotated parameters of the given method, function,
// or constructor, ordered by index. Parameters without annotations are not
// included. Parameters are matched by Owner and Name only; the kind of el is
// ignored (see Element.Parameter).
func (r *Registry) Parameters(el Element) []Element {
	r.mu.RLock()
	var params []Element
	for _, p := range r.order {
		if p.Kind == Parameters && p.Owner == el.Owner && p.Name == el.Name {
			params = append(params, p)
		}
	}
	r.mu.RUnlock()
	sort.Slice(params, func(i, j int) bool {
		return params[i].Index < params[j].Index
	})
	return params
}

// IsMetatypeAnnotation returns true if annotations of type t mark other
// annotation types as meta-types. That is the case for Metatype and for any
// type annotated with Metaroot.
func (r *Registry) IsMetatypeAnnotation(t Type) bool {
	if t == Metatype {
		return true
	}
	for _, a := range r.declaredAnnotations(t) {
		if a.Type() == Metaroot {
			return true
		}
	}
	return false
}

// MetatypeOf returns the first annotation declared on t that is a meta-type
// marker (see IsMetatypeAnnotation). It returns false if t is not a
// meta-type.
func (r *Registry) MetatypeOf(t Type) (Annotation, bool) {
	for _, a := range r.declaredAnnotations(t) {
		if r.IsMetatypeAnnotation(a.Type()) {
			return a, true
		}
	}
	return Annotation{}, false
}

// IsMetaAnnotation returns true if t is a meta-type: an annotation type that
// declares a meta-type marker.
func (r *Registry) IsMetaAnnotation(t Type) bool {
	_, ok := r.MetatypeOf(t)
	return ok
}

// RegisterTypeAnnotation registers an annotation of type t with the
// DefaultRegistry.
func RegisterTypeAnnotation(t Type, a Annotation) {
	DefaultRegistry.RegisterTypeAnnotation(t, a)
}

// RegisterDefinition registers a definition group of t with the
// DefaultRegistry.
func RegisterDefinition(t Type, group ...Annotation) {
	DefaultRegistry.RegisterDefinition(t, group...)
}

// RegisterDefault registers an attribute default of t with the
// DefaultRegistry. It panics if the value cannot be used as an attribute
// value.
func RegisterDefault(t Type, attr string, value any) {
	if err := DefaultRegistry.RegisterDefault(t, attr, value); err != nil {
		panic(err)
	}
}

// RegisterElementAnnotation registers an element annotation with the
// DefaultRegistry.
func RegisterElementAnnotation(el Element, a Annotation) {
	DefaultRegistry.RegisterElementAnnotation(el, a)
}
