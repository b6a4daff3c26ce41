package metatype

func registerBuiltins(r *Registry) {
	runtime := Of(Retention, "Value", "runtime")
	onAnnotations := Of(Target, "Value", []string{"annotation"})

	r.RegisterTypeAnnotation(Metatype, Of(Metaroot))
	r.RegisterTypeAnnotation(Metatype, runtime)
	r.RegisterTypeAnnotation(Metatype, onAnnotations)
	_ = r.RegisterDefault(Metatype, ExtractUsingAttr, DefaultExtractorName)

	r.RegisterTypeAnnotation(Metaroot, runtime)
	r.RegisterTypeAnnotation(Metaroot, onAnnotations)

	for _, t := range []Type{Retention, Target, Documented} {
		r.RegisterTypeAnnotation(t, runtime)
		r.RegisterTypeAnnotation(t, onAnnotations)
	}
}
