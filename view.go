package metatype

import "sort"

// View is the resolved, read-only annotation set of one element. Views are
// immutable and may be shared by concurrent readers.
type View struct {
	entries map[Type]*MetaAnnotation
	types   []Type
}

// NewView creates a view of a resolved annotation set, as returned by
// Resolver.Resolve. The map is copied.
func NewView(resolved map[Type]*MetaAnnotation) *View {
	v := &View{
		entries: make(map[Type]*MetaAnnotation, len(resolved)),
		types:   make([]Type, 0, len(resolved)),
	}
	for t, m := range resolved {
		v.entries[t] = m
		v.types = append(v.types, t)
	}
	sort.Slice(v.types, func(i, j int) bool {
		return v.types[i].less(v.types[j])
	})
	return v
}

// IsAnnotationPresent returns true if the element is annotated with t,
// directly or through meta-annotations.
func (v *View) IsAnnotationPresent(t Type) bool {
	_, ok := v.entries[t]
	return ok
}

// Annotation returns the effective annotation of type t.
func (v *View) Annotation(t Type) (Annotation, bool) {
	m, ok := v.entries[t]
	if !ok {
		return Annotation{}, false
	}
	return m.annotation, true
}

// MetaAnnotation returns the resolved entry for type t.
func (v *View) MetaAnnotation(t Type) (*MetaAnnotation, bool) {
	m, ok := v.entries[t]
	return m, ok
}

// Annotations returns all effective annotations, ordered by type.
func (v *View) Annotations() []Annotation {
	annos := make([]Annotation, len(v.types))
	for i, t := range v.types {
		annos[i] = v.entries[t].annotation
	}
	return annos
}

// DeclaredAnnotations returns the effective annotations that are declared
// directly on the element (those at depth 0), ordered by type.
func (v *View) DeclaredAnnotations() []Annotation {
	var annos []Annotation
	for _, t := range v.types {
		if m := v.entries[t]; m.depth == 0 {
			annos = append(annos, m.annotation)
		}
	}
	return annos
}

// MetaAnnotations returns all resolved entries, including their conflicts,
// ordered by type.
func (v *View) MetaAnnotations() []*MetaAnnotation {
	metas := make([]*MetaAnnotation, len(v.types))
	for i, t := range v.types {
		metas[i] = v.entries[t]
	}
	return metas
}

// Len returns the number of effective annotations.
func (v *View) Len() int {
	return len(v.types)
}
