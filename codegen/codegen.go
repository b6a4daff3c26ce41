// Package codegen compiles declaration files into Go source. The generated
// file has a single init function that registers the declarations with
// metatype.DefaultRegistry and registers the declared override extractors, so
// that importing the package makes its annotations available at run time.
package codegen

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jhump/gopoet"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/metatype"
	"github.com/jhump/metatype/config"
)

// OutputFactory is a function that creates a writer to an output for the
// given location. The location is the generated file's name joined to its
// package's import path. Output factories typically use os.OpenFile to create
// files but this function allows the behavior to be customized.
type OutputFactory func(path string) (io.WriteCloser, error)

// Config represents the configuration for generating registration code.
// Callers should configure the exported fields and then call the Execute
// method.
type Config struct {
	// Package is the name of the generated package. If empty, the last
	// element of PackagePath is used.
	Package string
	// PackagePath is the import path of the generated package.
	PackagePath string
	// Files are the declaration files to compile. Their declarations are
	// registered in order.
	Files []*config.File
	// OutputFactory creates the generated file. If nil, the result of
	// DefaultOutputFactory("") is used.
	OutputFactory OutputFactory
}

// FileName returns the name of the generated file.
func (cfg *Config) FileName() string {
	return fmt.Sprintf("%s.annos.go", cfg.packageName())
}

func (cfg *Config) packageName() string {
	if cfg.Package != "" {
		return cfg.Package
	}
	return path.Base(cfg.PackagePath)
}

// Execute builds the configured files and writes the generated source.
func (cfg *Config) Execute() error {
	if cfg.PackagePath == "" {
		return errors.New("no package path configured")
	}
	res, err := config.Build(cfg.Files...)
	if err != nil {
		return err
	}

	file := gopoet.NewGoFile(cfg.FileName(), cfg.PackagePath, cfg.packageName())
	file.AddElement(generateInit(res))

	factory := cfg.OutputFactory
	if factory == nil {
		factory = DefaultOutputFactory("")
	}
	out, err := factory(path.Join(cfg.PackagePath, file.Name))
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, "// Code generated by metagen. DO NOT EDIT.\n\n"); err != nil {
		_ = out.Close()
		return err
	}
	if err := gopoet.WriteGoFile(out, file); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// DefaultOutputFactory returns the default OutputFactory used by Execute. If
// the given rootDir is blank, the file is written into the directory that
// holds the sources of its package, as reported by the go tool. Otherwise the
// full path will be <rootDir>/<path>, and the directory is created if
// necessary.
//
// After computing the destination path, os.OpenFile is used to open the file
// for writing (creating the file if necessary, truncating it if it already
// exists).
func DefaultOutputFactory(rootDir string) OutputFactory {
	return func(p string) (io.WriteCloser, error) {
		dest, err := determineOutputDir(rootDir, path.Dir(p))
		if err != nil {
			return nil, err
		}
		dest = filepath.Join(dest, path.Base(p))
		return os.OpenFile(dest, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0666)
	}
}

func determineOutputDir(root, pkgPath string) (string, error) {
	if root != "" {
		out := filepath.Join(root, filepath.FromSlash(pkgPath))
		if err := os.MkdirAll(out, os.ModePerm); err != nil {
			return "", fmt.Errorf("could not create output directory %s: %w", out, err)
		}
		return out, nil
	}
	pkgs, err := packages.Load(&packages.Config{Mode: packages.NeedName | packages.NeedFiles}, pkgPath)
	if err != nil {
		return "", fmt.Errorf("could not locate package %q: %w", pkgPath, err)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return "", fmt.Errorf("could not locate package %q: %v", pkgPath, pkg.Errors[0])
		}
		files := append(pkg.GoFiles, pkg.OtherFiles...)
		if len(files) > 0 {
			return filepath.Dir(files[0]), nil
		}
	}
	return "", fmt.Errorf("could not determine output directory for package %q", pkgPath)
}

var (
	metatypePkg = gopoet.NewPackage(metatype.PackagePath)
	overridePkg = gopoet.NewPackage(metatype.PackagePath + "/override")
	mathPkg     = gopoet.NewPackage("math")
)

var elementKinds = map[metatype.ElementType]string{
	metatype.AnnotationTypes: "AnnotationTypes",
	metatype.Types:           "Types",
	metatype.Fields:          "Fields",
	metatype.Methods:         "Methods",
	metatype.Functions:       "Functions",
	metatype.Constructors:    "Constructors",
	metatype.Parameters:      "Parameters",
}

// generator writes the body of the init function. Annotation types are
// referenced through local variables, declared on first use.
type generator struct {
	fn    *gopoet.FuncSpec
	types map[metatype.Type]string
}

// expr is a fragment of code. Symbols and literal values are kept as
// arguments so that gopoet can qualify references and no value is mistaken
// for a formatting verb.
type expr struct {
	format string
	args   []any
}

func (e *expr) printf(format string, args ...any) {
	e.format += format
	e.args = append(e.args, args...)
}

func (e *expr) add(o expr) {
	e.format += o.format
	e.args = append(e.args, o.args...)
}

func (g *generator) statement(e expr) {
	g.fn.Printlnf(e.format, e.args...)
}

func generateInit(res *config.Result) *gopoet.FuncSpec {
	g := generator{fn: gopoet.NewFunc("init"), types: map[metatype.Type]string{}}
	decls := make([]metatype.Declaration, len(res.Types))
	for i, t := range res.Types {
		decls[i], _ = res.Registry.Lookup(t)
	}

	// defaults must be in place before anything creates annotations
	for _, decl := range decls {
		for _, attr := range sortedAttrs(decl.Defaults) {
			var e expr
			e.printf("%s(", metatypePkg.Symbol("RegisterDefault"))
			e.add(g.typeRef(decl.Type))
			e.printf(", %q, ", attr)
			e.add(value(decl.Defaults[attr]))
			e.printf(")")
			g.statement(e)
		}
	}
	for _, decl := range decls {
		for _, a := range decl.Annotations {
			var e expr
			e.printf("%s(", metatypePkg.Symbol("RegisterTypeAnnotation"))
			e.add(g.typeRef(decl.Type))
			e.printf(", ")
			e.add(g.annotation(a))
			e.printf(")")
			g.statement(e)
		}
		for _, group := range decl.Definitions {
			var e expr
			e.printf("%s(", metatypePkg.Symbol("RegisterDefinition"))
			e.add(g.typeRef(decl.Type))
			e.printf(",\n")
			for _, a := range group {
				e.add(g.annotation(a))
				e.printf(",\n")
			}
			e.printf(")")
			g.statement(e)
		}
	}
	for _, el := range res.Elements() {
		for _, a := range res.Registry.ElementAnnotations(el) {
			var e expr
			e.printf("%s(", metatypePkg.Symbol("RegisterElementAnnotation"))
			e.add(element(el))
			e.printf(", ")
			e.add(g.annotation(a))
			e.printf(")")
			g.statement(e)
		}
	}
	for _, x := range res.Extractors {
		var e expr
		e.printf("%s(%q, %s(\n", metatypePkg.Symbol("RegisterExtractor"), x.Name, overridePkg.Symbol("Factory"))
		for _, r := range x.Rules {
			e.printf("%s(", overridePkg.Symbol("MustCELRule"))
			e.add(g.typeRef(r.Servant))
			e.printf(", ")
			e.add(g.typeRef(x.Master))
			e.printf(", map[string]string{\n")
			for _, attr := range sortedStrings(r.Set) {
				e.printf("%q: %q,\n", attr, r.Set[attr])
			}
			e.printf("}),\n")
		}
		e.printf("))")
		g.statement(e)
	}
	return g.fn
}

// typeRef returns an expression for t. Built-in markers use the exported
// variables of the metatype package. Other types are declared as local
// variables the first time they are referenced, so typeRef must not be called
// while a statement is being printed.
func (g *generator) typeRef(t metatype.Type) expr {
	if t.PackagePath == metatype.PackagePath {
		switch t {
		case metatype.Metatype, metatype.Metaroot, metatype.Retention, metatype.Target, metatype.Documented:
			return expr{format: "%s", args: []any{metatypePkg.Symbol(t.Name)}}
		}
	}
	name, ok := g.types[t]
	if !ok {
		name = fmt.Sprintf("t%d", len(g.types))
		g.types[t] = name
		g.fn.Printlnf("%s := %s{PackagePath: %q, Name: %q}", name, metatypePkg.Symbol("Type"), t.PackagePath, t.Name)
	}
	return expr{format: "%s", args: []any{name}}
}

func element(el metatype.Element) expr {
	return expr{
		format: "%s{Kind: %s, Owner: %q, Name: %q, Index: %d}",
		args:   []any{metatypePkg.Symbol("Element"), metatypePkg.Symbol(elementKinds[el.Kind]), el.Owner, el.Name, el.Index},
	}
}

func (g *generator) annotation(a metatype.Annotation) expr {
	var e expr
	e.printf("%s(", metatypePkg.Symbol("MustAnnotation"))
	e.add(g.typeRef(a.Type()))
	names := a.AttrNames()
	if len(names) == 0 {
		e.printf(", nil)")
		return e
	}
	e.printf(", %s{", metatypePkg.Symbol("Attrs"))
	for i, name := range names {
		if i > 0 {
			e.printf(", ")
		}
		v, _ := a.Attr(name)
		e.printf("%q: ", name)
		e.add(value(v))
	}
	e.printf("})")
	return e
}

// value returns a Go expression that normalizes to v.
func value(v any) expr {
	var e expr
	switch metatype.KindOf(v) {
	case metatype.KindNil:
		e.printf("nil")
	case metatype.KindInt:
		e.printf("%d", v.(int64))
	case metatype.KindUint:
		e.printf("uint64(%d)", v.(uint64))
	case metatype.KindFloat:
		e.add(floatValue(v.(float64)))
	case metatype.KindString:
		e.printf("%q", v.(string))
	case metatype.KindBool:
		e.printf("%t", v.(bool))
	case metatype.KindSlice:
		e.printf("[]any{")
		for i, elem := range v.([]any) {
			if i > 0 {
				e.printf(", ")
			}
			e.add(value(elem))
		}
		e.printf("}")
	case metatype.KindMap:
		m := v.(map[string]any)
		e.printf("map[string]any{")
		for i, k := range sortedAttrs(m) {
			if i > 0 {
				e.printf(", ")
			}
			e.printf("%q: ", k)
			e.add(value(m[k]))
		}
		e.printf("}")
	default:
		panic(fmt.Sprintf("unexpected kind of attribute value: %v", metatype.KindOf(v)))
	}
	return e
}

func floatValue(f float64) expr {
	switch {
	case math.IsNaN(f):
		return expr{format: "%s()", args: []any{mathPkg.Symbol("NaN")}}
	case math.IsInf(f, 1):
		return expr{format: "%s(1)", args: []any{mathPkg.Symbol("Inf")}}
	case math.IsInf(f, -1):
		return expr{format: "%s(-1)", args: []any{mathPkg.Symbol("Inf")}}
	}
	// must not look like an integer literal
	return expr{format: "float64(%s)", args: []any{strconv.FormatFloat(f, 'g', -1, 64)}}
}

func sortedAttrs(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStrings(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
