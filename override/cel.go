package override

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"

	"github.com/jhump/metatype"
)

// CELRule creates a rule whose override values are computed by CEL
// expressions, keyed by the servant attribute they set. Expressions can refer
// to the attributes of both annotations through the variables "servant" and
// "master", which are maps keyed by attribute name:
//
//    override.CELRule(digits, currency, map[string]string{
//        "integer":  "master.integer",
//        "fraction": "has(master.fraction) ? master.fraction : servant.fraction",
//    })
func CELRule(servant, master metatype.Type, exprs map[string]string) (Rule, error) {
	env, err := cel.NewEnv(
		cel.Variable("servant", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("master", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return Rule{}, err
	}

	attrs := make([]string, 0, len(exprs))
	for attr := range exprs {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	programs := make([]cel.Program, len(attrs))
	for i, attr := range attrs {
		ast, iss := env.Compile(exprs[attr])
		if iss.Err() != nil {
			return Rule{}, fmt.Errorf("attribute %s: %w", attr, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return Rule{}, fmt.Errorf("attribute %s: %w", attr, err)
		}
		programs[i] = prg
	}

	return Rule{
		Servant: servant,
		Master:  master,
		Override: func(s, m metatype.Annotation) (metatype.Attrs, error) {
			vars := map[string]any{
				"servant": map[string]any(s.Attrs()),
				"master":  map[string]any(m.Attrs()),
			}
			out := make(metatype.Attrs, len(attrs))
			for i, attr := range attrs {
				val, _, err := programs[i].Eval(vars)
				if err != nil {
					return nil, fmt.Errorf("attribute %s: %w", attr, err)
				}
				out[attr] = val.Value()
			}
			return out, nil
		},
	}, nil
}

// MustCELRule is like CELRule except that it panics if an expression does not
// compile. It is intended for use in package initialization, such as in
// generated code.
func MustCELRule(servant, master metatype.Type, exprs map[string]string) Rule {
	r, err := CELRule(servant, master, exprs)
	if err != nil {
		panic(fmt.Sprintf("override rule for %v from %v: %v", servant, master, err))
	}
	return r
}
