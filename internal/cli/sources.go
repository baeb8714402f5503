package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/dacore/internal/config"
	"github.com/roach88/dacore/internal/datasource"
	"github.com/roach88/dacore/internal/driver/duckdb"
	"github.com/roach88/dacore/internal/driver/postgis"
	"github.com/roach88/dacore/internal/driver/sqlite"
)

// drivers lists the built-in driver registrations.
var drivers = []func(*datasource.Registry) error{
	sqlite.Register,
	duckdb.Register,
	postgis.Register,
}

// NewRegistry registers the built-in drivers and applies the configured
// capability profiles.
func NewRegistry(cfg *config.Config) (*datasource.Registry, error) {
	r := datasource.NewRegistry()
	for _, register := range drivers {
		if err := register(r); err != nil {
			return nil, err
		}
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	r.ApplyProfiles(profiles)
	return r, nil
}

// sourceError reports that a data source is not configured.
type sourceError struct {
	name  string
	known []string
}

func (e *sourceError) Error() string {
	if len(e.known) == 0 {
		return fmt.Sprintf("data source %q is not configured", e.name)
	}
	return fmt.Sprintf("data source %q is not configured (known: %s)", e.name, strings.Join(e.known, ", "))
}

// openSource creates and opens the named data source. The caller closes it.
func openSource(ctx context.Context, opts *RootOptions, name string) (datasource.DataSource, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, err
	}
	sc, ok := cfg.DataSource(name)
	if !ok {
		known := make([]string, 0, len(cfg.DataSources))
		for _, ds := range cfg.DataSources {
			known = append(known, ds.Name)
		}
		return nil, &sourceError{name: name, known: known}
	}

	r, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	info, err := sc.ConnectionInfo()
	if err != nil {
		return nil, err
	}
	ds, err := r.MakeWithInfo(sc.Type, info)
	if err != nil {
		return nil, err
	}
	slog.Debug("opening data source", "name", name, "type", ds.Type(), "id", ds.ID())
	if err := ds.Open(ctx); err != nil {
		return nil, err
	}
	return ds, nil
}

// failOpen reports an openSource error.
func failOpen(f *OutputFormatter, name string, err error) error {
	var se *sourceError
	switch {
	case errors.As(err, &se):
		return f.Fail(ErrCodeUnknownSource, "unknown data source", err)
	case errors.Is(err, datasource.ErrUnknownType):
		return f.Fail(ErrCodeUnknownType, "unknown driver", err)
	default:
		return f.Fail(ErrCodeGeneric, "failed to open data source "+name, err)
	}
}
