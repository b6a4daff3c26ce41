package metatype

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache resolves the annotations registered for program elements and keeps
// the resulting views. Each element is resolved at most once, even when
// several goroutines ask for it at the same time.
type Cache struct {
	resolver *Resolver
	registry *Registry

	mu    sync.RWMutex
	views map[Element]*View

	group singleflight.Group
}

// NewCache creates a cache of views for the elements registered with the
// resolver's registry.
func NewCache(r *Resolver) *Cache {
	return &Cache{
		resolver: r,
		registry: r.extractors.registry,
		views:    map[Element]*View{},
	}
}

// View returns the resolved view of el. Elements without annotations have an
// empty view.
func (c *Cache) View(el Element) *View {
	c.mu.RLock()
	v, ok := c.views[el]
	c.mu.RUnlock()
	if ok {
		c.resolver.metrics.cacheHit()
		return v
	}

	res, _, _ := c.group.Do(cacheKey(el), func() (interface{}, error) {
		// check cache inside singleflight
		c.mu.RLock()
		v, ok := c.views[el]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		c.resolver.metrics.cacheMiss()
		v = c.resolver.View(c.registry.ElementAnnotations(el))

		c.mu.Lock()
		c.views[el] = v
		c.mu.Unlock()
		return v, nil
	})
	return res.(*View)
}

// ParameterViews returns one view per parameter of the given method,
// function, or constructor, up to its last annotated parameter. Parameters
// without annotations have empty views. It returns nil if no parameter is
// annotated.
func (c *Cache) ParameterViews(el Element) []*View {
	params := c.registry.Parameters(el)
	if len(params) == 0 {
		return nil
	}
	views := make([]*View, params[len(params)-1].Index+1)
	for i := range views {
		views[i] = c.View(el.Parameter(i))
	}
	return views
}

// cacheKey identifies el in the singleflight group. Owner and Name are quoted
// so that separators inside them cannot make two elements share a key.
func cacheKey(el Element) string {
	return fmt.Sprintf("%d|%q|%q|%d", el.Kind, el.Owner, el.Name, el.Index)
}
