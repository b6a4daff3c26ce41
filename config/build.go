package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jhump/metatype"
	"github.com/jhump/metatype/override"
)

// Result holds the built declarations of one or more files.
type Result struct {
	// Registry holds the built-in markers plus everything the file declares.
	Registry *metatype.Registry
	// Types are the annotation types declared by the files, in file order.
	Types []metatype.Type
	// Extractors are the override extractors declared by the files, in file
	// order.
	Extractors []ExtractorDecl
	// Options supply the override extractors to metatype.NewExtractors.
	Options []metatype.Option
}

// ExtractorDecl is a named override extractor for one meta-type.
type ExtractorDecl struct {
	Name   string
	Master metatype.Type
	Rules  []RuleDecl
}

// RuleDecl is an override rule with its servant type qualified.
type RuleDecl struct {
	Servant metatype.Type
	Set     map[string]string
}

// Elements returns the annotated elements declared by the files, in file
// order.
func (r *Result) Elements() []metatype.Element {
	return r.Registry.Elements()
}

// NewExtractors creates the extractors for the built registry. The given
// options are applied after those of the result.
func (r *Result) NewExtractors(opts ...metatype.Option) *metatype.Extractors {
	all := append(append([]metatype.Option(nil), r.Options...), opts...)
	return metatype.NewExtractors(r.Registry, all...)
}

// Build validates the file and registers its declarations with a new
// registry. It is shorthand for Build(f).
func (f *File) Build() (*Result, error) {
	return Build(f)
}

// Build validates the given files and registers their declarations, in
// order, with a new registry. Attribute defaults of all files are registered
// before any annotation is created, so annotations anywhere take the defaults
// of their types. An annotation type may be declared only once.
func Build(files ...*File) (*Result, error) {
	b := builder{
		reg:       metatype.NewRegistry(),
		seen:      map[metatype.Type]bool{},
		providers: map[string]metatype.ExtractorFactory{},
	}
	res := &Result{Registry: b.reg}

	types := make([][]metatype.Type, len(files))
	for i, f := range files {
		b.file = f
		var err error
		if types[i], err = b.declare(); err != nil {
			return nil, prefixed(f.path, err)
		}
		res.Types = append(res.Types, types[i]...)
	}
	for i, f := range files {
		b.file = f
		extractors, err := b.build(types[i])
		if err != nil {
			return nil, prefixed(f.path, err)
		}
		res.Extractors = append(res.Extractors, extractors...)
	}

	if len(b.providers) > 0 {
		res.Options = append(res.Options, metatype.WithProviders(b.providers))
	}
	return res, nil
}

type builder struct {
	file      *File
	reg       *metatype.Registry
	seen      map[metatype.Type]bool
	providers map[string]metatype.ExtractorFactory
}

// declare qualifies the names of the file's annotation types and registers
// their defaults.
func (b *builder) declare() ([]metatype.Type, error) {
	types := make([]metatype.Type, len(b.file.Annotations))
	for i, decl := range b.file.Annotations {
		t, err := b.qualify(decl.Name)
		if err != nil {
			return nil, fmt.Errorf("annotation[%d].name: %w", i, err)
		}
		if b.seen[t] {
			return nil, fmt.Errorf("annotation[%d]: %v declared more than once", i, t)
		}
		b.seen[t] = true
		types[i] = t
		for _, attr := range sortedAttrs(decl.Defaults) {
			if err := b.reg.RegisterDefault(t, attr, decl.Defaults[attr]); err != nil {
				return nil, fmt.Errorf("annotation[%d].defaults: %w", i, err)
			}
		}
	}
	return types, nil
}

// build registers the file's annotations and creates its override extractors.
func (b *builder) build(types []metatype.Type) ([]ExtractorDecl, error) {
	var extractors []ExtractorDecl
	for i, decl := range b.file.Annotations {
		t := types[i]
		annos, err := b.annotations(decl.Annotations, fmt.Sprintf("annotation[%d].annotations", i))
		if err != nil {
			return nil, err
		}
		name, err := extractorName(t, decl, annos)
		if err != nil {
			return nil, fmt.Errorf("annotation[%d]: %w", i, err)
		}
		for _, a := range annos {
			b.reg.RegisterTypeAnnotation(t, a)
		}
		for j, group := range decl.Definitions {
			annos, err := b.annotations(group, fmt.Sprintf("annotation[%d].definitions[%d]", i, j))
			if err != nil {
				return nil, err
			}
			b.reg.RegisterDefinition(t, annos...)
		}

		if len(decl.Overrides) == 0 {
			continue
		}
		x := ExtractorDecl{Name: name, Master: t}
		rules := make([]override.Rule, len(decl.Overrides))
		for j, o := range decl.Overrides {
			servant, err := b.qualify(o.Servant)
			if err != nil {
				return nil, fmt.Errorf("annotation[%d].override[%d].servant: %w", i, j, err)
			}
			if len(o.Set) == 0 {
				return nil, fmt.Errorf("annotation[%d].override[%d].set: no attributes", i, j)
			}
			rules[j], err = override.CELRule(servant, t, o.Set)
			if err != nil {
				return nil, fmt.Errorf("annotation[%d].override[%d].set: %w", i, j, err)
			}
			x.Rules = append(x.Rules, RuleDecl{Servant: servant, Set: o.Set})
		}
		if _, ok := b.providers[name]; ok {
			return nil, fmt.Errorf("annotation[%d]: extractor %q declared more than once", i, name)
		}
		b.providers[name] = override.Factory(rules...)
		extractors = append(extractors, x)
	}

	for i, decl := range b.file.Elements {
		el, err := element(decl)
		if err != nil {
			return nil, fmt.Errorf("element[%d]: %w", i, err)
		}
		annos, err := b.annotations(decl.Annotations, fmt.Sprintf("element[%d].annotations", i))
		if err != nil {
			return nil, err
		}
		for _, a := range annos {
			b.reg.RegisterElementAnnotation(el, a)
		}
	}
	return extractors, nil
}

// qualify resolves a type reference. Names without a package path belong to
// the file's package.
func (b *builder) qualify(name string) (metatype.Type, error) {
	if name == "" {
		return metatype.Type{}, errors.New("missing type name")
	}
	t := metatype.ParseType(name)
	if t.PackagePath == "" {
		if b.file.Package == "" {
			return metatype.Type{}, fmt.Errorf("type %q has no package and the file declares none", name)
		}
		t.PackagePath = b.file.Package
	}
	if t.Name == "" {
		return metatype.Type{}, fmt.Errorf("invalid type name %q", name)
	}
	return t, nil
}

func (b *builder) annotations(refs []AnnotationRef, path string) ([]metatype.Annotation, error) {
	annos := make([]metatype.Annotation, len(refs))
	for i, ref := range refs {
		t, err := b.qualify(ref.Type)
		if err != nil {
			return nil, fmt.Errorf("%s[%d].type: %w", path, i, err)
		}
		annos[i], err = b.reg.New(t, ref.Attrs)
		if err != nil {
			return nil, fmt.Errorf("%s[%d].attrs: %w", path, i, err)
		}
	}
	return annos, nil
}

// extractorName determines the extractor of a declared type and records it in
// the type's Metatype annotation, which is updated in place. Types with
// override rules that do not name an extractor use their qualified name.
func extractorName(t metatype.Type, decl AnnotationDecl, annos []metatype.Annotation) (string, error) {
	if decl.Extractor == "" && len(decl.Overrides) == 0 {
		return "", nil
	}
	idx := -1
	for i, a := range annos {
		if a.Type() == metatype.Metatype {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("%v names an extractor but is not annotated with %v", t, metatype.Metatype)
	}
	using, _ := annos[idx].Str(metatype.ExtractUsingAttr)
	if using == metatype.DefaultExtractorName {
		using = ""
	}
	name := decl.Extractor
	switch {
	case name == "" && using == "":
		name = t.String()
	case name == "":
		name = using
	case using != "" && using != name:
		return "", fmt.Errorf("extractor %q conflicts with %s %q of %v", name, metatype.ExtractUsingAttr, using, metatype.Metatype)
	}
	marker, err := annos[idx].With(metatype.Attrs{metatype.ExtractUsingAttr: name})
	if err != nil {
		return "", err
	}
	annos[idx] = marker
	return name, nil
}

func element(decl ElementDecl) (metatype.Element, error) {
	kind, err := metatype.ParseElementType(decl.Kind)
	if err != nil {
		return metatype.Element{}, err
	}
	el := metatype.Element{Kind: kind, Owner: decl.Owner, Name: decl.Name, Index: decl.Index}
	switch {
	case decl.Name == "" && decl.Owner == "":
		return metatype.Element{}, errors.New("element has neither owner nor name")
	case kind != metatype.Parameters && decl.Index != 0:
		return metatype.Element{}, fmt.Errorf("index is only allowed for parameters, not %v", kind)
	case kind == metatype.Parameters && decl.Index < 0:
		return metatype.Element{}, fmt.Errorf("negative parameter index %d", decl.Index)
	case kind == metatype.Parameters && decl.Name == "":
		return metatype.Element{}, errors.New("parameter has no enclosing element name")
	}
	return el, nil
}

func sortedAttrs(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
