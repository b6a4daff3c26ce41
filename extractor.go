package metatype

// Extractor computes the meta-annotations of an annotation: the annotations
// that its type declares about itself. Implementations must not modify the
// given annotation. A nil or empty result means the annotation has no
// meta-annotations.
type Extractor interface {
	Extract(a Annotation) []Annotation
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(a Annotation) []Annotation

// Extract implements the Extractor interface.
func (f ExtractorFunc) Extract(a Annotation) []Annotation {
	return f(a)
}

// BasicExtractor is the default extraction strategy. It gathers the
// annotations declared on the annotation's type. If the type is a meta-type,
// it also folds in every definition group that includes an annotation of the
// type itself. Bookkeeping annotations, the type itself, and the meta-type
// marker (unless the marker is itself a meta-type) are removed from the
// result.
//
// When an annotation type appears more than once, the last occurrence wins
// but keeps the position of the first.
type BasicExtractor struct {
	registry *Registry
}

// NewBasicExtractor returns the default extractor for the given registry.
func NewBasicExtractor(r *Registry) *BasicExtractor {
	return &BasicExtractor{registry: r}
}

// Extract implements the Extractor interface.
func (e *BasicExtractor) Extract(a Annotation) []Annotation {
	t := a.Type()
	decl, ok := e.registry.Lookup(t)
	if !ok {
		return nil
	}

	var found annotationSet
	for _, anno := range decl.Annotations {
		found.put(anno)
	}

	marker, isMeta := e.registry.MetatypeOf(t)
	if isMeta {
		for _, group := range decl.Definitions {
			if !containsType(group, t) {
				continue
			}
			for _, anno := range group {
				found.put(anno)
			}
		}
	}

	found.remove(Retention)
	found.remove(Target)
	found.remove(Documented)
	// if the chicken is an egg, carry it forward
	if isMeta && !e.registry.IsMetaAnnotation(marker.Type()) {
		found.remove(marker.Type())
	}
	found.remove(t)

	return found.values()
}

func containsType(annos []Annotation, t Type) bool {
	for _, a := range annos {
		if a.Type() == t {
			return true
		}
	}
	return false
}

// annotationSet is an insertion-ordered set of annotations keyed by type.
type annotationSet struct {
	index map[Type]int
	annos []Annotation
}

func (s *annotationSet) put(a Annotation) {
	if s.index == nil {
		s.index = map[Type]int{}
	}
	if i, ok := s.index[a.Type()]; ok {
		s.annos[i] = a
		return
	}
	s.index[a.Type()] = len(s.annos)
	s.annos = append(s.annos, a)
}

func (s *annotationSet) remove(t Type) {
	i, ok := s.index[t]
	if !ok {
		return
	}
	delete(s.index, t)
	// zero value marks the removed slot
	s.annos[i] = Annotation{}
}

func (s *annotationSet) values() []Annotation {
	var result []Annotation
	for _, a := range s.annos {
		if a.IsValid() {
			result = append(result, a)
		}
	}
	return result
}
