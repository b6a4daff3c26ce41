// Package metatype resolves meta-annotations: annotations that are themselves
// annotated, recursively, with annotations that describe what they mean.
//
// An annotation type becomes a meta-type by declaring the Metatype marker
// (or any marker annotated with Metaroot). The annotations declared on a
// meta-type, and those in the groups of its definition that mention the
// type, are its meta-annotations. An element annotated with a meta-type is
// effectively annotated with all of its meta-annotations as well, and with
// theirs, and so on.
//
// The APIs in this package can be broken into four main categories:
// Declarations, Extraction, Resolution, and Views.
//
// Declarations
//
// Annotation types and annotated elements are described to a Registry. There
// is no language-level annotation metadata in Go, so declarations are
// registered explicitly, typically from package init functions generated by
// the metagen tool (see github.com/jhump/metatype/cmd/metagen) from a TOML
// description. The package-level Register* functions use DefaultRegistry.
//
//    color := metatype.Type{PackagePath: "example.com/shapes", Name: "Color"}
//    red := metatype.Type{PackagePath: "example.com/shapes", Name: "Red"}
//
//    metatype.RegisterTypeAnnotation(red, metatype.Of(metatype.Metatype))
//    metatype.RegisterDefinition(red,
//        metatype.Of(red), metatype.Of(color, "value", "red"))
//
// Extraction
//
// An Extractor computes the meta-annotations of one annotation. The default
// strategy is BasicExtractor. A meta-type may name another strategy in the
// ExtractUsing attribute of its Metatype annotation; named strategies are
// registered with RegisterExtractor. Extractors decides which strategy applies
// to each type and falls back to the default whenever a named strategy cannot
// be created. The override sub-package provides an extractor that rewrites
// meta-annotation attributes using the values of the annotation they were
// extracted from.
//
// Resolution
//
// A Resolver walks the meta-annotation graph of an element's declared
// annotations and keeps, for each annotation type, the occurrence closest to
// the element. Cycles between annotation types terminate because an
// annotation is only visited when it improves the best known depth of its
// type.
//
// Views
//
// A View is the resolved annotation set of an element, with lookup by type
// and access to depths and conflicts. A Cache creates views for the elements
// in a Registry on demand and keeps them.
package metatype
