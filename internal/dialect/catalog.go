package dialect

import (
	"sort"
	"strings"
	"sync"

	"github.com/roach88/dacore/internal/dberr"
)

// FunctionCatalog maps function names to encoders for one backend.
// Names are case-insensitive.
type FunctionCatalog struct {
	backend  string
	encoders map[string]FunctionEncoder
}

// NewFunctionCatalog creates an empty catalog for backend.
func NewFunctionCatalog(backend string) *FunctionCatalog {
	return &FunctionCatalog{
		backend:  strings.ToUpper(backend),
		encoders: make(map[string]FunctionEncoder),
	}
}

// Backend returns the backend key the catalog serves.
func (c *FunctionCatalog) Backend() string { return c.backend }

// Register adds or replaces the encoder for name.
func (c *FunctionCatalog) Register(name string, enc FunctionEncoder) {
	c.encoders[strings.ToUpper(name)] = enc
}

// Lookup returns the encoder for name.
func (c *FunctionCatalog) Lookup(name string) (FunctionEncoder, bool) {
	enc, ok := c.encoders[strings.ToUpper(name)]
	return enc, ok
}

// Names returns the registered names, sorted.
func (c *FunctionCatalog) Names() []string {
	names := make([]string, 0, len(c.encoders))
	for n := range c.encoders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FunctionCatalogManager holds the function catalogs of every backend plus
// the generic catalog of standard SQL functions used as n-ary fallback.
//
// A manager is created once by the application and shared by the registry
// and all dialects. It is safe for concurrent use.
type FunctionCatalogManager struct {
	mu       sync.RWMutex
	catalogs map[string]*FunctionCatalog
	generic  *FunctionCatalog
}

// NewFunctionCatalogManager creates a manager whose generic catalog holds
// the standard SQL scalar and aggregate functions.
func NewFunctionCatalogManager() *FunctionCatalogManager {
	return &FunctionCatalogManager{
		catalogs: make(map[string]*FunctionCatalog),
		generic:  genericCatalog(),
	}
}

// Add registers c, replacing any catalog for the same backend.
func (m *FunctionCatalogManager) Add(c *FunctionCatalog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[c.backend] = c
}

// ensure registers the catalog built by build unless backend already has one.
func (m *FunctionCatalogManager) ensure(backend string, build func(*FunctionCatalog)) {
	key := strings.ToUpper(backend)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalogs[key]; ok {
		return
	}
	c := NewFunctionCatalog(key)
	build(c)
	m.catalogs[key] = c
}

// Catalog returns the catalog registered for backend.
func (m *FunctionCatalogManager) Catalog(backend string) (*FunctionCatalog, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.catalogs[strings.ToUpper(backend)]
	return c, ok
}

// Generic returns the catalog of standard SQL functions.
func (m *FunctionCatalogManager) Generic() *FunctionCatalog { return m.generic }

// Backends returns the backend keys with a registered catalog, sorted.
func (m *FunctionCatalogManager) Backends() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.catalogs))
	for k := range m.catalogs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Find resolves the encoder for function name on backend: the backend
// catalog first, then the generic catalog when fallback is allowed.
// A name found in neither yields an unsupported-operation error naming the
// backend and the function.
func (m *FunctionCatalogManager) Find(backend, name string, fallback bool) (FunctionEncoder, error) {
	if c, ok := m.Catalog(backend); ok {
		if enc, ok := c.Lookup(name); ok {
			return enc, nil
		}
	}
	if fallback {
		if enc, ok := m.generic.Lookup(name); ok {
			return enc, nil
		}
	}
	return nil, dberr.NewUnsupportedFunctionError(backend, name)
}

func genericCatalog() *FunctionCatalog {
	c := NewFunctionCatalog("")
	for _, fn := range []Call{
		{Name: "ABS", Min: 1, Max: 1},
		{Name: "AVG", Min: 1, Max: 1},
		{Name: "COALESCE", Min: 1, Max: -1},
		{Name: "COUNT", Min: 1, Max: 1},
		{Name: "LENGTH", Min: 1, Max: 1},
		{Name: "LOWER", Min: 1, Max: 1},
		{Name: "MAX", Min: 1, Max: 1},
		{Name: "MIN", Min: 1, Max: 1},
		{Name: "NULLIF", Min: 2, Max: 2},
		{Name: "REPLACE", Min: 3, Max: 3},
		{Name: "ROUND", Min: 1, Max: 2},
		{Name: "SUBSTR", Min: 2, Max: 3},
		{Name: "SUM", Min: 1, Max: 1},
		{Name: "TRIM", Min: 1, Max: 1},
		{Name: "UPPER", Min: 1, Max: 1},
	} {
		c.Register(fn.Name, fn)
	}
	return c
}
