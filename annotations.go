package metatype

import "fmt"

// PackagePath is the import path of this package. The built-in marker types
// are qualified with it.
const PackagePath = "github.com/jhump/metatype"

var (
	// Metatype marks an annotation type as a meta-type: an annotation whose
	// own annotations (and those of its definition groups) are carried to the
	// elements it annotates. For example:
	//
	//    red := metatype.Type{PackagePath: "example.com/shapes", Name: "Red"}
	//    metatype.RegisterTypeAnnotation(red, metatype.Of(metatype.Metatype))
	//    metatype.RegisterDefinition(red,
	//        metatype.Of(red), metatype.Of(color, "value", "red"))
	//
	// An element annotated with Red is then also annotated with Color("red").
	//
	// Its optional "ExtractUsing" attribute names the extractor, registered
	// with RegisterExtractor, that computes the meta-annotations of the
	// annotated type. When absent or equal to DefaultExtractorName, the
	// default extractor is used.
	Metatype = Type{PackagePath: PackagePath, Name: "Metatype"}

	// Metaroot marks an annotation type as a meta-type marker. Metatype is
	// annotated with it. Other annotation types annotated with Metaroot can be
	// used in place of Metatype to mark meta-types; such markers always use
	// the default extractor.
	Metaroot = Type{PackagePath: PackagePath, Name: "Metaroot"}

	// Retention is bookkeeping for the annotation declaration mechanism. It is
	// never carried to annotated elements.
	Retention = Type{PackagePath: PackagePath, Name: "Retention"}

	// Target is bookkeeping that lists the kinds of elements an annotation type
	// may be used on, in its "Value" attribute. It is never carried to
	// annotated elements.
	Target = Type{PackagePath: PackagePath, Name: "Target"}

	// Documented is bookkeeping that indicates an annotation type should be
	// included in generated documentation. It is never carried to annotated
	// elements.
	Documented = Type{PackagePath: PackagePath, Name: "Documented"}
)

// ExtractUsingAttr is the attribute of a Metatype annotation that names an
// extractor.
const ExtractUsingAttr = "ExtractUsing"

// IsBookkeeping returns true if t is one of the declaration bookkeeping
// types: Retention, Target, or Documented.
func IsBookkeeping(t Type) bool {
	return t == Retention || t == Target || t == Documented
}

// ElementType is an enumeration of the kinds of elements that can be
// annotated.
type ElementType int

const (
	// AnnotationTypes are annotation types. The annotations on an annotation
	// type are its meta-annotations.
	AnnotationTypes ElementType = iota

	// Types are named types.
	Types

	// Fields are fields of struct types. The element's Owner is the name of
	// the enclosing type.
	Fields

	// Methods are methods of named types. The element's Owner is the name of
	// the receiver type.
	Methods

	// Functions are top-level, named functions.
	Functions

	// Constructors are factory functions for a type. The element's Owner is
	// the name of the constructed type and its Name distinguishes overloads
	// (typically the function's name).
	Constructors

	// Parameters are the parameters of a method, function, or constructor.
	// The element's Owner and Name identify the enclosing element and its
	// Index is the parameter's zero-based position.
	Parameters
)

func (et ElementType) String() string {
	switch et {
	case AnnotationTypes:
		return "annotation types"
	case Types:
		return "types"
	case Fields:
		return "fields"
	case Methods:
		return "methods"
	case Functions:
		return "functions"
	case Constructors:
		return "constructors"
	case Parameters:
		return "parameters"
	default:
		return fmt.Sprintf("?%d?", int(et))
	}
}

var elementTypeNames = map[string]ElementType{
	"annotation":  AnnotationTypes,
	"type":        Types,
	"field":       Fields,
	"method":      Methods,
	"function":    Functions,
	"constructor": Constructors,
	"parameter":   Parameters,
}

// Name returns the singular, lower-case name of et, as accepted by
// ParseElementType.
func (et ElementType) Name() string {
	for name, t := range elementTypeNames {
		if t == et {
			return name
		}
	}
	return et.String()
}

// ParseElementType parses the singular, lower-case name of an element type,
// such as "constructor" or "field".
func ParseElementType(s string) (ElementType, error) {
	if et, ok := elementTypeNames[s]; ok {
		return et, nil
	}
	return 0, fmt.Errorf("unknown element kind %q", s)
}

// Element identifies an annotated program element.
type Element struct {
	Kind ElementType
	// Owner is the enclosing type (for fields, methods, and constructors) or
	// the enclosing element's owner (for parameters). It is empty for types
	// and top-level functions.
	Owner string
	// Name is the element's own name. For parameters, it is the name of the
	// enclosing method, function, or constructor.
	Name string
	// Index is the position of a parameter. It is zero for other kinds.
	Index int
}

// Parameter returns the element for the parameter at the given index of e.
// A parameter element records only the Owner and Name of its enclosing
// element, not its kind, so a method and a constructor with the same Owner
// and Name share their parameters.
func (e Element) Parameter(index int) Element {
	return Element{Kind: Parameters, Owner: e.Owner, Name: e.Name, Index: index}
}

func (e Element) String() string {
	var name string
	switch {
	case e.Owner == "":
		name = e.Name
	case e.Name == "":
		name = e.Owner
	default:
		name = e.Owner + "." + e.Name
	}
	if e.Kind == Parameters {
		return fmt.Sprintf("%s[%d]", name, e.Index)
	}
	return name
}
