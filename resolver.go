package metatype

import (
	"fmt"

	"github.com/go-logr/logr"
)

// MetaAnnotation is one entry in a resolved annotation set: the winning
// annotation of its type, the depth at which it was found, and any other
// annotations of the same type found at the same depth by another path.
// Depth 0 means the annotation is declared directly on the element; depth 1
// means it is a meta-annotation of a declared annotation, and so on.
type MetaAnnotation struct {
	annotation Annotation
	depth      int
	declaredBy Type
	conflicts  []*MetaAnnotation
}

// Get returns the annotation.
func (m *MetaAnnotation) Get() Annotation {
	return m.annotation
}

// Type returns the annotation's type.
func (m *MetaAnnotation) Type() Type {
	return m.annotation.Type()
}

// Depth returns the shortest distance found from the element's declared
// annotations to this annotation.
func (m *MetaAnnotation) Depth() int {
	return m.depth
}

// DeclaredBy returns the type of the annotation whose meta-annotations
// included this one. It is the zero Type for annotations declared directly on
// the element.
func (m *MetaAnnotation) DeclaredBy() Type {
	return m.declaredBy
}

// Conflicts returns the other annotations of this type that were found at
// the same depth, in discovery order.
func (m *MetaAnnotation) Conflicts() []*MetaAnnotation {
	return append([]*MetaAnnotation(nil), m.conflicts...)
}

func (m *MetaAnnotation) String() string {
	return fmt.Sprintf("%v (depth %d)", m.annotation, m.depth)
}

// addConflict records a, declared by declaredBy, as competing with m. An
// annotation is only ignored when it is the same declaration reached again:
// equal to m or to a recorded conflict and declared by the same type.
func (m *MetaAnnotation) addConflict(a Annotation, declaredBy Type) {
	if m.sameDeclaration(a, declaredBy) {
		return
	}
	for _, c := range m.conflicts {
		if c.sameDeclaration(a, declaredBy) {
			return
		}
	}
	m.conflicts = append(m.conflicts, &MetaAnnotation{annotation: a, depth: m.depth, declaredBy: declaredBy})
}

func (m *MetaAnnotation) sameDeclaration(a Annotation, declaredBy Type) bool {
	return m.declaredBy == declaredBy && m.annotation.Equal(a)
}

// Resolver merges an element's declared annotations with all of their
// meta-annotations, following meta-annotations of meta-annotations to any
// depth. When a type is reachable by more than one path, the closest
// occurrence wins. Resolution is a pure function of the declared annotations
// and the extractors, so a Resolver may be used concurrently.
type Resolver struct {
	extractors *Extractors
	log        logr.Logger
	metrics    *Metrics
}

// NewResolver creates a resolver that finds meta-annotations with the given
// extractors. Only the WithLogger and WithMetrics options apply; without
// them the resolver uses those of x.
func NewResolver(x *Extractors, opts ...Option) *Resolver {
	r := &Resolver{extractors: x, log: x.log, metrics: x.metrics}
	if len(opts) > 0 {
		o := newOptions(opts)
		if o.log.GetSink() != nil {
			r.log = o.log
		}
		if o.metrics != nil {
			r.metrics = o.metrics
		}
	}
	return r
}

// Extractors returns the extractors used by r.
func (r *Resolver) Extractors() *Extractors {
	return r.extractors
}

// Resolve computes the effective annotations for an element that declares
// the given annotations. The result has one entry per annotation type.
//
// All declared annotations are entered at depth 0 before any are unrolled.
// An annotation found at depth d replaces the entry for its type only if
// that entry is deeper than d, and only then are its own meta-annotations
// visited at depth d+1. An annotation found deeper than the existing entry is
// dropped without being visited, which bounds the walk even when annotation
// types refer to each other. An annotation found at the same depth as the
// existing entry is recorded as one of its conflicts.
func (r *Resolver) Resolve(declared []Annotation) map[Type]*MetaAnnotation {
	found := map[Type]*MetaAnnotation{}
	var roots []Annotation
	for _, a := range declared {
		if a.IsValid() && merge(found, a, 0, Type{}) {
			roots = append(roots, a)
		}
	}
	for _, a := range roots {
		r.unroll(a, 1, found)
	}
	r.metrics.resolved()
	r.log.V(1).Info("resolved", "declared", len(declared), "entries", len(found))
	return found
}

func (r *Resolver) unroll(source Annotation, depth int, found map[Type]*MetaAnnotation) {
	for _, a := range r.extractors.Extract(source) {
		if !a.IsValid() {
			continue
		}
		if merge(found, a, depth, source.Type()) {
			r.unroll(a, depth+1, found)
		}
	}
}

// merge enters a, a meta-annotation of declaredBy, into found at the given
// depth. It returns true if a is now the entry for its type.
func merge(found map[Type]*MetaAnnotation, a Annotation, depth int, declaredBy Type) bool {
	existing := found[a.Type()]
	switch {
	case existing == nil || existing.depth > depth:
		found[a.Type()] = &MetaAnnotation{annotation: a, depth: depth, declaredBy: declaredBy}
		return true
	case existing.depth < depth:
		// what we have already is higher priority
		return false
	default:
		existing.addConflict(a, declaredBy)
		return false
	}
}

// View resolves the given declared annotations into a View.
func (r *Resolver) View(declared []Annotation) *View {
	return NewView(r.Resolve(declared))
}
