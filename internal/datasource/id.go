package datasource

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces DataSource instance identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers, so sources
// created later sort later in logs.
//
// Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined identifiers in order. Tests use it to
// make source IDs predictable.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order and panics
// once they are exhausted.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next identifier.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("FixedGenerator: all %d ids exhausted", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
