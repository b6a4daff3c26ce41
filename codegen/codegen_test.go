package codegen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/metatype"
	"github.com/jhump/metatype/config"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func generate(t *testing.T, files ...string) (string, string) {
	var cfg Config
	cfg.PackagePath = "example.com/money/annos"
	for _, name := range files {
		f, err := config.Load(filepath.Join("../config/testdata", name))
		require.NoError(t, err)
		cfg.Files = append(cfg.Files, f)
	}
	var out bufferCloser
	var path string
	cfg.OutputFactory = func(p string) (io.WriteCloser, error) {
		path = p
		return &out, nil
	}
	require.NoError(t, cfg.Execute())
	assert.True(t, out.closed)
	return path, out.String()
}

func TestExecute_Currency(t *testing.T) {
	path, src := generate(t, "currency.toml")
	assert.Equal(t, "example.com/money/annos/annos.annos.go", path)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "annos.annos.go", src, parser.ParseComments)
	require.NoError(t, err, src)
	assert.Equal(t, "annos", file.Name.Name)
	var imports []string
	for _, imp := range file.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		require.NoError(t, err)
		imports = append(imports, p)
	}
	assert.ElementsMatch(t, []string{metatype.PackagePath, metatype.PackagePath + "/override"}, imports)

	assert.Contains(t, src, "// Code generated by metagen. DO NOT EDIT.")
	assert.Contains(t, src, `t0 := metatype.Type{PackagePath: "example.com/money", Name: "Digits"}`)
	assert.Contains(t, src, `metatype.RegisterDefault(t0, "fraction", 0)`)
	assert.Contains(t, src, `t1 := metatype.Type{PackagePath: "example.com/money", Name: "Currency"}`)
	assert.Contains(t, src, `metatype.RegisterDefault(t1, "integer", 7)`)
	assert.Contains(t, src, `metatype.RegisterTypeAnnotation(t1, metatype.MustAnnotation(metatype.Metatype, metatype.Attrs{"ExtractUsing": "example.com/money.Currency"}))`)
	assert.Contains(t, src, `metatype.RegisterTypeAnnotation(t1, metatype.MustAnnotation(t2, metatype.Attrs{"regexp": "\\d*"}))`)
	assert.Contains(t, src, `metatype.RegisterElementAnnotation(metatype.Element{Kind: metatype.Fields, Owner: "Invoice", Name: "Item2", Index: 0}, metatype.MustAnnotation(t1, metatype.Attrs{"fraction": 0, "integer": 9}))`)
	assert.Contains(t, src, `metatype.RegisterExtractor("example.com/money.Currency", override.Factory(`)
	assert.Contains(t, src, `override.MustCELRule(t0, t1, map[string]string{`)
	assert.Contains(t, src, `"integer":  "master.integer",`)

	// defaults come before everything else
	assert.Less(t, bytes.LastIndex([]byte(src), []byte("RegisterDefault(")), bytes.Index([]byte(src), []byte("RegisterTypeAnnotation(")))
}

// initTokens returns the tokens of the body of src's init function, without
// semicolons, so that the comparison ignores layout.
func initTokens(t *testing.T, src []byte) []string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", src, 0)
	require.NoError(t, err)
	var body *ast.BlockStmt
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name.Name == "init" {
			body = fn.Body
		}
	}
	require.NotNil(t, body, "no init function")
	start, end := fset.Position(body.Pos()).Offset, fset.Position(body.End()).Offset
	text := src[start:end]

	var s scanner.Scanner
	s.Init(token.NewFileSet().AddFile("body", -1, len(text)), text, nil, 0)
	var toks []string
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			return toks
		}
		if tok == token.SEMICOLON {
			continue
		}
		if lit != "" {
			toks = append(toks, lit)
		} else {
			toks = append(toks, tok.String())
		}
	}
}

func TestExecute_MatchesCheckedInPackage(t *testing.T) {
	_, src := generate(t, "currency.toml")
	checkedIn, err := os.ReadFile("internal/money/money.annos.go")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(checkedIn, []byte("// Code generated by metagen. DO NOT EDIT.\n")))
	assert.Equal(t, initTokens(t, checkedIn), initTokens(t, []byte(src)), src)
}

func TestExecute_MultipleFiles(t *testing.T) {
	_, src := generate(t, "shapes.toml", "currency.toml")
	_, err := parser.ParseFile(token.NewFileSet(), "annos.annos.go", src, 0)
	require.NoError(t, err, src)
	assert.Contains(t, src, "metatype.RegisterDefinition(")
	assert.Contains(t, src, `metatype.Element{Kind: metatype.Parameters, Owner: "Store", Name: "Paint", Index: 1}`)
	assert.Contains(t, src, `metatype.MustAnnotation(metatype.Target, metatype.Attrs{"Value": []any{"annotation", "type"}})`)
}

func TestExecute_Errors(t *testing.T) {
	var cfg Config
	assert.EqualError(t, cfg.Execute(), "no package path configured")

	f, err := config.Parse("[[annotation]]\nname = \"A\"\n")
	require.NoError(t, err)
	cfg = Config{PackagePath: "p", Files: []*config.File{f}}
	assert.Error(t, cfg.Execute())

	f, err = config.Parse("package = \"p\"\n")
	require.NoError(t, err)
	cfg = Config{
		PackagePath: "p",
		Files:       []*config.File{f},
		OutputFactory: func(string) (io.WriteCloser, error) {
			return nil, os.ErrPermission
		},
	}
	assert.ErrorIs(t, cfg.Execute(), os.ErrPermission)
}

func TestFileName(t *testing.T) {
	cfg := Config{PackagePath: "example.com/shapes"}
	assert.Equal(t, "shapes.annos.go", cfg.FileName())
	cfg.Package = "shapes_test"
	assert.Equal(t, "shapes_test.annos.go", cfg.FileName())
}

func TestDefaultOutputFactory_Root(t *testing.T) {
	root := t.TempDir()
	w, err := DefaultOutputFactory(root)("example.com/shapes/shapes.annos.go")
	require.NoError(t, err)
	_, err = io.WriteString(w, "package shapes\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(root, "example.com", "shapes", "shapes.annos.go"))
	require.NoError(t, err)
	assert.Equal(t, "package shapes\n", string(data))
}

func TestValue(t *testing.T) {
	testCases := []struct {
		name string
		val  any
		want string
	}{
		{name: "nil", val: nil, want: "nil"},
		{name: "int", val: int64(-3), want: "-3"},
		{name: "uint", val: uint64(3), want: "uint64(3)"},
		{name: "float", val: 2.0, want: "float64(2)"},
		{name: "fraction", val: 0.25, want: "float64(0.25)"},
		{name: "string", val: "a\"b", want: `"a\"b"`},
		{name: "bool", val: true, want: "true"},
		{name: "slice", val: []any{int64(1), "x"}, want: `[]any{1, "x"}`},
		{name: "map", val: map[string]any{"b": false, "a": []any{}}, want: `map[string]any{"a": []any{}, "b": false}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := value(tc.val)
			assert.Equal(t, tc.want, fmt.Sprintf(e.format, e.args...))
		})
	}

	e := floatValue(math.Inf(-1))
	require.Len(t, e.args, 1)
	assert.Equal(t, "%s(-1)", e.format)
}
