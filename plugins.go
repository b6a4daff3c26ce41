package metatype

import (
	"errors"
	"sort"
	"sync"
)

// DefaultExtractorName is the extractor name that selects the default
// extraction strategy. A Metatype annotation whose ExtractUsing attribute is
// empty or equal to this name uses the default. A factory registered under
// this name replaces BasicExtractor as the default for Extractors that are
// not given an explicit default.
const DefaultExtractorName = "default"

// ErrUnknownExtractor is reported when a meta-type names an extractor that
// has not been registered.
var ErrUnknownExtractor = errors.New("no extractor registered with that name")

// ExtractorFactory creates an Extractor that reads declarations from the
// given registry.
type ExtractorFactory func(r *Registry) (Extractor, error)

var registryLock sync.Mutex

var registeredFactories = map[string]ExtractorFactory{}

// RegisterExtractor registers the given extractor factory under the given
// name, replacing any factory previously registered with that name.
func RegisterExtractor(name string, f ExtractorFactory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registeredFactories[name] = f
}

// LookupExtractor returns the extractor factory registered under the given
// name.
func LookupExtractor(name string) (ExtractorFactory, bool) {
	registryLock.Lock()
	defer registryLock.Unlock()
	f, ok := registeredFactories[name]
	return f, ok
}

// AllRegisteredExtractors returns the names of all registered extractor
// factories, sorted.
func AllRegisteredExtractors() []string {
	registryLock.Lock()
	defer registryLock.Unlock()
	names := make([]string, 0, len(registeredFactories))
	for n := range registeredFactories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
