package override_test

import (
	"errors"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/metatype"
	"github.com/jhump/metatype/override"
)

const pkg = "example.com/money"

var (
	currency = metatype.Type{PackagePath: pkg, Name: "Currency"}
	digits   = metatype.Type{PackagePath: pkg, Name: "Digits"}
	pattern  = metatype.Type{PackagePath: pkg, Name: "Pattern"}

	item  = metatype.Element{Kind: metatype.Fields, Owner: "Invoice", Name: "Item"}
	item2 = metatype.Element{Kind: metatype.Fields, Owner: "Invoice", Name: "Item2"}
)

func digitsFromCurrency() override.Rule {
	return override.MustCELRule(digits, currency, map[string]string{
		"integer":  "master.integer",
		"fraction": "master.fraction",
	})
}

// newCurrencyRegistry declares Currency as a meta-type, extracted with the
// named extractor, that carries a Pattern and a Digits annotation.
func newCurrencyRegistry(t *testing.T, extractor string) *metatype.Registry {
	r := metatype.NewRegistry()
	r.RegisterTypeAnnotation(currency, metatype.Of(metatype.Metatype, metatype.ExtractUsingAttr, extractor))
	r.RegisterTypeAnnotation(currency, metatype.Of(pattern, "regexp", `\d*`))
	r.RegisterTypeAnnotation(currency, metatype.Of(digits, "integer", 0, "fraction", 0))
	r.RegisterTypeAnnotation(currency, metatype.Of(metatype.Retention, "Value", "runtime"))
	require.NoError(t, r.RegisterDefault(currency, "integer", 7))
	require.NoError(t, r.RegisterDefault(currency, "fraction", 2))

	defaults, err := r.New(currency, nil)
	require.NoError(t, err)
	r.RegisterElementAnnotation(item, defaults)
	explicit, err := r.New(currency, metatype.Attrs{"integer": 9, "fraction": 0})
	require.NoError(t, err)
	r.RegisterElementAnnotation(item2, explicit)
	return r
}

func resolveDigits(t *testing.T, x *metatype.Extractors, el metatype.Element) metatype.Annotation {
	c := metatype.NewCache(metatype.NewResolver(x))
	v := c.View(el)
	assert.True(t, v.IsAnnotationPresent(pattern))
	d, ok := v.MetaAnnotation(digits)
	require.True(t, ok)
	assert.Equal(t, 1, d.Depth())
	return d.Get()
}

func assertDigits(t *testing.T, a metatype.Annotation, integer, fraction int64) {
	t.Helper()
	i, ok := a.Int("integer")
	require.True(t, ok)
	f, ok := a.Int("fraction")
	require.True(t, ok)
	assert.Equal(t, integer, i, "integer")
	assert.Equal(t, fraction, f, "fraction")
}

func TestCurrencyOverridesDigits(t *testing.T) {
	r := newCurrencyRegistry(t, "currency")
	x := metatype.NewExtractors(r,
		metatype.WithLogger(testr.New(t)),
		metatype.WithProviders(map[string]metatype.ExtractorFactory{
			"currency": override.Factory(digitsFromCurrency()),
		}))

	assertDigits(t, resolveDigits(t, x, item), 7, 2)
	assertDigits(t, resolveDigits(t, x, item2), 9, 0)
}

func TestCurrencyWithoutOverride(t *testing.T) {
	r := newCurrencyRegistry(t, metatype.DefaultExtractorName)
	x := metatype.NewExtractors(r)

	assertDigits(t, resolveDigits(t, x, item), 0, 0)
	assertDigits(t, resolveDigits(t, x, item2), 0, 0)
}

func TestFactory_IncompleteRuleFallsBack(t *testing.T) {
	r := newCurrencyRegistry(t, "currency")
	x := metatype.NewExtractors(r,
		metatype.WithLogger(testr.New(t)),
		metatype.WithProviders(map[string]metatype.ExtractorFactory{
			"currency": override.Factory(override.Rule{Servant: digits, Master: currency}),
		}))

	// the factory fails, so the default extractor applies and nothing is
	// overridden
	assert.Same(t, x.Default(), x.Resolve(currency))
	assertDigits(t, resolveDigits(t, x, item), 0, 0)
}

func TestPipeline_AscendingPriority(t *testing.T) {
	master := metatype.Of(currency, "integer", 5, "fraction", 1)
	servant := metatype.Of(digits, "integer", 0, "fraction", 0, "name", "d")

	var seen []int64
	first := override.Rule{
		Servant: digits,
		Master:  currency,
		Override: func(s, m metatype.Annotation) (metatype.Attrs, error) {
			i, _ := s.Int("integer")
			seen = append(seen, i)
			mi, _ := m.Int("integer")
			return metatype.Attrs{"integer": mi, "fraction": 3}, nil
		},
	}
	second := override.Rule{
		Servant: digits,
		Master:  currency,
		Override: func(s, m metatype.Annotation) (metatype.Attrs, error) {
			i, _ := s.Int("integer")
			seen = append(seen, i)
			return metatype.Attrs{"integer": i * 10}, nil
		},
	}
	unrelated := override.Rule{
		Servant: pattern,
		Master:  currency,
		Override: func(s, m metatype.Annotation) (metatype.Attrs, error) {
			t.Fatal("rule for another servant type should not run")
			return nil, nil
		},
	}

	p := override.NewPipeline(first, unrelated, second)
	require.NoError(t, p.Validate())
	result, err := p.Apply(servant, master)
	require.NoError(t, err)

	// each rule sees the output of the one before it
	assert.Equal(t, []int64{0, 5}, seen)
	assertDigits(t, result, 50, 3)
	name, _ := result.Str("name")
	assert.Equal(t, "d", name)
	// inputs are untouched
	assertDigits(t, servant, 0, 0)

	// the same inputs give an equal result
	again, err := p.Apply(servant, master)
	require.NoError(t, err)
	assert.True(t, result.Equal(again), "%v != %v", result, again)
	assert.Equal(t, []int64{0, 5, 0, 5}, seen)
}

func TestPipeline_NoChangeReturnsServant(t *testing.T) {
	servant := metatype.Of(digits, "integer", 1)
	master := metatype.Of(currency, "integer", 1)
	p := override.NewPipeline(override.MustCELRule(digits, currency, map[string]string{
		"integer": "master.integer",
	}))
	result, err := p.Apply(servant, master)
	require.NoError(t, err)
	assert.True(t, result.Equal(servant))

	// master type does not match
	result, err = p.Apply(servant, metatype.Of(pattern))
	require.NoError(t, err)
	assert.True(t, result.Equal(servant))
}

func TestPipeline_Validate(t *testing.T) {
	fn := func(s, m metatype.Annotation) (metatype.Attrs, error) { return nil, nil }
	testCases := []struct {
		name string
		rule override.Rule
		ok   bool
	}{
		{name: "complete", rule: override.Rule{Servant: digits, Master: currency, Override: fn}, ok: true},
		{name: "no servant", rule: override.Rule{Master: currency, Override: fn}},
		{name: "no master", rule: override.Rule{Servant: digits, Override: fn}},
		{name: "no function", rule: override.Rule{Servant: digits, Master: currency}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := override.NewPipeline(tc.rule).Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestExtractor_FailedOverrideKeepsValue(t *testing.T) {
	r := newCurrencyRegistry(t, "currency")
	boom := errors.New("boom")
	failing := override.Rule{
		Servant: digits,
		Master:  currency,
		Override: func(s, m metatype.Annotation) (metatype.Attrs, error) {
			return nil, boom
		},
	}
	e := override.NewExtractor(metatype.NewBasicExtractor(r), override.NewPipeline(failing),
		override.WithLogger(testr.New(t)))

	extracted := e.Extract(metatype.Of(currency, "integer", 7, "fraction", 2))
	require.Len(t, extracted, 2)
	assert.Equal(t, pattern, extracted[0].Type())
	assertDigits(t, extracted[1], 0, 0)

	_, err := override.NewPipeline(failing).Apply(extracted[1], metatype.Of(currency))
	assert.ErrorIs(t, err, boom)
}

func TestCELRule(t *testing.T) {
	master := metatype.Of(currency, "integer", 4, "symbol", "$", "codes", []string{"USD", "CAD"})
	servant := metatype.Of(digits, "integer", 0, "fraction", 2)

	r, err := override.CELRule(digits, currency, map[string]string{
		"integer":  "master.integer * 2",
		"fraction": "has(master.fraction) ? master.fraction : servant.fraction + 1",
		"label":    `master.symbol + "/" + master.codes[0]`,
		"codes":    "master.codes",
	})
	require.NoError(t, err)
	assert.True(t, r.Applies(digits, currency))
	assert.False(t, r.Applies(currency, digits))

	result, err := override.NewPipeline(r).Apply(servant, master)
	require.NoError(t, err)
	assertDigits(t, result, 8, 3)
	label, _ := result.Str("label")
	assert.Equal(t, "$/USD", label)
	codes, _ := result.Attr("codes")
	assert.Equal(t, []any{"USD", "CAD"}, codes)

	again, err := override.NewPipeline(r).Apply(servant, master)
	require.NoError(t, err)
	assert.True(t, result.Equal(again))
}

func TestCELRule_Errors(t *testing.T) {
	_, err := override.CELRule(digits, currency, map[string]string{
		"integer": "master.integer +",
	})
	assert.ErrorContains(t, err, "attribute integer")

	assert.Panics(t, func() {
		override.MustCELRule(digits, currency, map[string]string{"integer": ")"})
	})

	// a missing key is an evaluation error
	r := override.MustCELRule(digits, currency, map[string]string{"integer": "master.missing"})
	_, err = override.NewPipeline(r).Apply(metatype.Of(digits), metatype.Of(currency))
	assert.ErrorContains(t, err, "attribute integer")
}
