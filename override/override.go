package override

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/jhump/metatype"
)

// Func computes replacement attribute values for servant, an annotation
// extracted from master. The returned attributes replace those of the
// servant; attributes not returned keep their values. Implementations must
// not retain or modify either annotation.
type Func func(servant, master metatype.Annotation) (metatype.Attrs, error)

// Rule overrides attributes of annotations of the Servant type with values
// computed from annotations of the Master type.
type Rule struct {
	Servant  metatype.Type
	Master   metatype.Type
	Override Func
}

// Applies returns true if the rule rewrites servant annotations of the first
// type in the context of master annotations of the second.
func (r Rule) Applies(servant, master metatype.Type) bool {
	return r.Servant == servant && r.Master == master
}

func (r Rule) validate() error {
	switch {
	case r.Servant.IsZero():
		return errors.New("rule has no servant type")
	case r.Master.IsZero():
		return errors.New("rule has no master type")
	case r.Override == nil:
		return fmt.Errorf("rule for %v from %v has no override function", r.Servant, r.Master)
	}
	return nil
}

// Pipeline is an ordered chain of rules, in ascending priority. Every rule
// that applies runs, each one seeing the result of the ones before it, so the
// last rule to set an attribute wins.
type Pipeline struct {
	rules []Rule
}

// NewPipeline creates a pipeline with the given rules, lowest priority first.
func NewPipeline(rules ...Rule) *Pipeline {
	return &Pipeline{rules: append([]Rule(nil), rules...)}
}

// Rules returns the pipeline's rules, lowest priority first.
func (p *Pipeline) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Validate returns an error if any rule is incomplete.
func (p *Pipeline) Validate() error {
	for i, r := range p.rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Apply returns servant with its attributes overridden by every applicable
// rule. Neither argument is modified; if no rule changes anything, servant
// itself is returned.
func (p *Pipeline) Apply(servant, master metatype.Annotation) (metatype.Annotation, error) {
	result := servant
	for _, r := range p.rules {
		if !r.Applies(result.Type(), master.Type()) {
			continue
		}
		attrs, err := r.Override(result, master)
		if err != nil {
			return servant, fmt.Errorf("overriding %v from %v: %w", servant.Type(), master.Type(), err)
		}
		result, err = result.With(attrs)
		if err != nil {
			return servant, fmt.Errorf("overriding %v from %v: %w", servant.Type(), master.Type(), err)
		}
	}
	return result, nil
}

// Extractor extracts meta-annotations with a base extractor and then passes
// each one through a pipeline, with the annotation they were extracted from
// as the master. An annotation whose override fails is kept unchanged and the
// failure is logged.
type Extractor struct {
	base     metatype.Extractor
	pipeline *Pipeline
	log      logr.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report failed overrides.
func WithLogger(l logr.Logger) Option {
	return func(e *Extractor) {
		e.log = l
	}
}

// NewExtractor creates an overriding extractor.
func NewExtractor(base metatype.Extractor, p *Pipeline, opts ...Option) *Extractor {
	e := &Extractor{base: base, pipeline: p, log: logr.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements the metatype.Extractor interface.
func (e *Extractor) Extract(master metatype.Annotation) []metatype.Annotation {
	extracted := e.base.Extract(master)
	if len(extracted) == 0 {
		return extracted
	}
	result := make([]metatype.Annotation, len(extracted))
	for i, servant := range extracted {
		overridden, err := e.pipeline.Apply(servant, master)
		if err != nil {
			e.log.Error(err, "override failed; keeping extracted value", "servant", servant.Type().String(), "master", master.Type().String())
		}
		result[i] = overridden
	}
	return result
}

// Factory returns an extractor factory, suitable for
// metatype.RegisterExtractor, that creates overriding extractors with the
// given rules on top of the registry's BasicExtractor. The factory fails if
// any rule is incomplete.
func Factory(rules ...Rule) metatype.ExtractorFactory {
	return func(r *metatype.Registry) (metatype.Extractor, error) {
		p := NewPipeline(rules...)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return NewExtractor(metatype.NewBasicExtractor(r), p), nil
	}
}
