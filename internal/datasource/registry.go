package datasource

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/dialect"
)

// ErrUnknownType is returned by Make for a type with no registered driver.
var ErrUnknownType = errors.New("unknown data source type")

// Params is everything a driver factory needs to build a closed DataSource.
type Params struct {
	ID           string
	Type         string
	Info         ConnectionInfo
	Capabilities capability.DataSourceCapabilities
	Catalogs     *dialect.FunctionCatalogManager
}

// Factory builds a closed DataSource.
type Factory func(p Params) (DataSource, error)

// Driver describes one backend type.
type Driver struct {
	// Type is the backend key, e.g. "SQLITE". Matched case-insensitively.
	Type string

	// Capabilities is the published descriptor of the backend.
	Capabilities capability.DataSourceCapabilities

	Factory Factory
}

// Registry maps backend type keys to drivers. It is constructed explicitly
// and passed to whoever creates data sources.
//
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	drivers  map[string]Driver
	catalogs *dialect.FunctionCatalogManager
	ids      IDGenerator
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIDGenerator replaces the UUIDv7 instance ID generator.
func WithIDGenerator(g IDGenerator) RegistryOption {
	return func(r *Registry) { r.ids = g }
}

// WithCatalogs shares an existing function catalog manager.
func WithCatalogs(m *dialect.FunctionCatalogManager) RegistryOption {
	return func(r *Registry) { r.catalogs = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		drivers: make(map[string]Driver),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.catalogs == nil {
		r.catalogs = dialect.NewFunctionCatalogManager()
	}
	return r
}

// Register adds a driver. Registering a type twice is an error.
func (r *Registry) Register(d Driver) error {
	key := strings.ToUpper(strings.TrimSpace(d.Type))
	if key == "" {
		return fmt.Errorf("register driver: empty type")
	}
	if d.Factory == nil {
		return fmt.Errorf("register driver %s: nil factory", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.drivers[key]; dup {
		return fmt.Errorf("register driver %s: already registered", key)
	}
	d.Type = key
	d.Capabilities = d.Capabilities.Clone()
	r.drivers[key] = d
	slog.Debug("driver registered", "type", key)
	return nil
}

// Make parses conn and creates a closed DataSource of the given type.
func (r *Registry) Make(typ, conn string) (DataSource, error) {
	info, err := ParseConnectionInfo(conn)
	if err != nil {
		return nil, err
	}
	return r.MakeWithInfo(typ, info)
}

// MakeWithInfo creates a closed DataSource of the given type.
func (r *Registry) MakeWithInfo(typ string, info ConnectionInfo) (DataSource, error) {
	key := strings.ToUpper(strings.TrimSpace(typ))

	r.mu.RLock()
	d, ok := r.drivers[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	ds, err := d.Factory(Params{
		ID:           r.ids.Generate(),
		Type:         key,
		Info:         info.Clone(),
		Capabilities: d.Capabilities.Clone(),
		Catalogs:     r.catalogs,
	})
	if err != nil {
		return nil, fmt.Errorf("make %s data source: %w", key, err)
	}
	slog.Debug("data source created", "type", key, "id", ds.ID(), "info", info.Redacted())
	return ds, nil
}

// Types lists the registered type keys, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.drivers))
}

// Capabilities returns a copy of the published capabilities of typ.
func (r *Registry) Capabilities(typ string) (capability.DataSourceCapabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[strings.ToUpper(typ)]
	if !ok {
		return capability.DataSourceCapabilities{}, false
	}
	return d.Capabilities.Clone(), true
}

// SetCapabilities replaces the published capabilities of typ. Sources made
// before the call keep the capabilities they were created with.
func (r *Registry) SetCapabilities(typ string, caps capability.DataSourceCapabilities) error {
	key := strings.ToUpper(typ)

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drivers[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	d.Capabilities = caps.Clone()
	r.drivers[key] = d
	return nil
}

// ApplyProfiles overrides published capabilities with loaded profiles.
// Profiles naming unregistered types are skipped with a warning.
func (r *Registry) ApplyProfiles(profiles map[string]capability.DataSourceCapabilities) {
	for _, typ := range slices.Sorted(maps.Keys(profiles)) {
		if err := r.SetCapabilities(typ, profiles[typ]); err != nil {
			slog.Warn("capability profile skipped", "type", typ, "error", err)
			continue
		}
		slog.Info("capability profile applied", "type", typ)
	}
}

// Catalogs returns the function catalog manager shared by the drivers.
func (r *Registry) Catalogs() *dialect.FunctionCatalogManager {
	return r.catalogs
}
