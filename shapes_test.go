package metatype_test

import (
	"github.com/jhump/metatype"
)

const shapesPkg = "example.com/shapes"

var (
	color     = metatype.Type{PackagePath: shapesPkg, Name: "Color"}
	red       = metatype.Type{PackagePath: shapesPkg, Name: "Red"}
	crimson   = metatype.Type{PackagePath: shapesPkg, Name: "Crimson"}
	green     = metatype.Type{PackagePath: shapesPkg, Name: "Green"}
	darkGreen = metatype.Type{PackagePath: shapesPkg, Name: "DarkGreen"}
	forrest   = metatype.Type{PackagePath: shapesPkg, Name: "Forrest"}
	chicken   = metatype.Type{PackagePath: shapesPkg, Name: "Chicken"}
	egg       = metatype.Type{PackagePath: shapesPkg, Name: "Egg"}

	square   = metatype.Element{Kind: metatype.Types, Name: "Square"}
	circle   = metatype.Element{Kind: metatype.Types, Name: "Circle"}
	triangle = metatype.Element{Kind: metatype.Types, Name: "Triangle"}
	oval     = metatype.Element{Kind: metatype.Types, Name: "Oval"}
	store    = metatype.Element{Kind: metatype.Types, Name: "Store"}
	farm     = metatype.Element{Kind: metatype.Types, Name: "Farm"}
	none     = metatype.Element{Kind: metatype.Types, Name: "None"}
)

func colorOf(value string) metatype.Annotation {
	return metatype.Of(color, "value", value)
}

// declareMetatype registers t as a meta-type whose definition group is t
// itself plus the given annotations.
func declareMetatype(r *metatype.Registry, t metatype.Type, group ...metatype.Annotation) {
	r.RegisterTypeAnnotation(t, metatype.Of(metatype.Metatype))
	r.RegisterTypeAnnotation(t, metatype.Of(metatype.Target, "Value", []string{"annotation", "type"}))
	r.RegisterTypeAnnotation(t, metatype.Of(metatype.Retention, "Value", "runtime"))
	r.RegisterDefinition(t, append([]metatype.Annotation{metatype.Of(t)}, group...)...)
}

// newShapesRegistry declares a family of color annotations, including a pair
// of meta-types that refer to each other, and a few annotated shapes.
func newShapesRegistry() *metatype.Registry {
	r := metatype.NewRegistry()
	r.RegisterTypeAnnotation(color, metatype.Of(metatype.Retention, "Value", "runtime"))

	declareMetatype(r, red, colorOf("red"))
	declareMetatype(r, crimson, metatype.Of(red))
	declareMetatype(r, green, colorOf("green"))
	declareMetatype(r, darkGreen, metatype.Of(green))
	declareMetatype(r, forrest, metatype.Of(darkGreen))
	declareMetatype(r, chicken, colorOf("chicken"), metatype.Of(egg))
	declareMetatype(r, egg, colorOf("egg"), metatype.Of(chicken))

	r.RegisterElementAnnotation(square, metatype.Of(red))
	r.RegisterElementAnnotation(circle, metatype.Of(red))
	r.RegisterElementAnnotation(circle, colorOf("white"))
	r.RegisterElementAnnotation(triangle, metatype.Of(crimson))
	r.RegisterElementAnnotation(oval, metatype.Of(forrest))
	r.RegisterElementAnnotation(store, metatype.Of(egg))
	r.RegisterElementAnnotation(farm, metatype.Of(chicken))
	return r
}
