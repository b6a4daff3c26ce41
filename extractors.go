package metatype

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Option configures Extractors and Resolver values.
type Option func(*options)

type options struct {
	defaultExtractor Extractor
	custom           map[Type]Extractor
	providers        map[string]ExtractorFactory
	log              logr.Logger
	metrics          *Metrics
}

func newOptions(opts []Option) options {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDefaultExtractor sets the extraction strategy used for meta-types that
// do not name an extractor.
func WithDefaultExtractor(e Extractor) Option {
	return func(o *options) {
		o.defaultExtractor = e
	}
}

// WithExtractor maps an annotation type to the extractor used for it. An
// explicit mapping takes precedence over the type's meta-type marker and
// applies even if the type is not a meta-type.
func WithExtractor(t Type, e Extractor) Option {
	return func(o *options) {
		if o.custom == nil {
			o.custom = map[Type]Extractor{}
		}
		o.custom[t] = e
	}
}

// WithProviders supplies named extractor factories that are consulted before
// those registered with RegisterExtractor.
func WithProviders(providers map[string]ExtractorFactory) Option {
	return func(o *options) {
		if o.providers == nil {
			o.providers = map[string]ExtractorFactory{}
		}
		for name, f := range providers {
			o.providers[name] = f
		}
	}
}

// WithLogger sets the logger used to report diagnostics, such as extractors
// that could not be created.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics sets the counters updated during extraction and resolution.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Extractors decides which extraction strategy applies to each annotation
// type. Named extractors are created at most once per Extractors value. If a
// named extractor is not registered, or its factory fails or panics, the
// default strategy is used instead and the failure is logged.
type Extractors struct {
	registry  *Registry
	def       Extractor
	custom    map[Type]Extractor
	providers map[string]ExtractorFactory
	log       logr.Logger
	metrics   *Metrics

	mu        sync.Mutex
	instances map[string]Extractor
}

// NewExtractors creates the extractor registry for the given declarations.
// Without WithDefaultExtractor, the default strategy is the one registered
// under DefaultExtractorName, if any, or else a BasicExtractor.
func NewExtractors(r *Registry, opts ...Option) *Extractors {
	o := newOptions(opts)
	x := &Extractors{
		registry:  r,
		def:       o.defaultExtractor,
		custom:    o.custom,
		providers: o.providers,
		log:       o.log,
		metrics:   o.metrics,
		instances: map[string]Extractor{},
	}
	if x.def == nil {
		x.def = x.discoverDefault()
	}
	return x
}

func (x *Extractors) discoverDefault() Extractor {
	if f, ok := x.lookup(DefaultExtractorName); ok {
		e, err := instantiate(f, x.registry)
		if err == nil {
			return e
		}
		x.log.Error(err, "default extractor could not be created; using basic extractor")
		x.metrics.fellBack(DefaultExtractorName)
	}
	return NewBasicExtractor(x.registry)
}

func (x *Extractors) lookup(name string) (ExtractorFactory, bool) {
	if f, ok := x.providers[name]; ok {
		return f, true
	}
	return LookupExtractor(name)
}

// Registry returns the declarations used by x.
func (x *Extractors) Registry() *Registry {
	return x.registry
}

// Default returns the default extraction strategy.
func (x *Extractors) Default() Extractor {
	return x.def
}

// Resolve returns the extractor for annotations of type t. It never returns
// nil: types without a custom extractor get the default.
func (x *Extractors) Resolve(t Type) Extractor {
	if e, ok := x.custom[t]; ok {
		return e
	}
	marker, ok := x.registry.MetatypeOf(t)
	if !ok || marker.Type() != Metatype {
		return x.def
	}
	name, _ := marker.Str(ExtractUsingAttr)
	if name == "" || name == DefaultExtractorName {
		return x.def
	}
	return x.named(t, name)
}

// Extract returns the meta-annotations of a. Annotations whose type is not a
// meta-type, and has no explicitly mapped extractor, have none.
func (x *Extractors) Extract(a Annotation) []Annotation {
	t := a.Type()
	if e, ok := x.custom[t]; ok {
		return e.Extract(a)
	}
	if !x.registry.IsMetaAnnotation(t) {
		return nil
	}
	return x.Resolve(t).Extract(a)
}

func (x *Extractors) named(t Type, name string) Extractor {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.instances[name]; ok {
		return e
	}
	var err error
	var e Extractor
	if f, ok := x.lookup(name); ok {
		e, err = instantiate(f, x.registry)
	} else {
		err = ErrUnknownExtractor
	}
	if err != nil {
		x.log.Error(err, "extractor could not be created; using default", "type", t.String(), "extractor", name)
		x.metrics.fellBack(name)
		e = x.def
	}
	x.instances[name] = e
	return e
}

func instantiate(f ExtractorFactory, r *Registry) (e Extractor, err error) {
	defer func() {
		if p := recover(); p != nil {
			e, err = nil, fmt.Errorf("extractor factory panicked: %v", p)
		}
	}()
	e, err = f(r)
	if err == nil && e == nil {
		err = errors.New("extractor factory returned nil")
	}
	return e, err
}
