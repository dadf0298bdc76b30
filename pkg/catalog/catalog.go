package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/policylab/internal/logging"
	"github.com/aretw0/policylab/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed content/*.yaml
var builtin embed.FS

var (
	// ErrDuplicate is returned when a simulation id is registered twice.
	ErrDuplicate = errors.New("simulation already registered")
	// ErrEmpty is returned when a content file decodes to nothing.
	ErrEmpty = errors.New("empty simulation document")
)

// Catalog is a read-mostly set of validated simulations, kept in registration order.
// Simulations handed out by the catalog are shared and must not be mutated.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Simulation
	order  []string
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used to report loaded content.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		byID:   make(map[string]*domain.Simulation),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns a catalog holding the built-in simulations.
func Default(opts ...Option) (*Catalog, error) {
	c := New(opts...)
	if err := c.LoadFS(builtin, "content"); err != nil {
		return nil, fmt.Errorf("failed to load built-in simulations: %w", err)
	}
	return c, nil
}

// LoadDir registers every simulation file (*.yaml, *.yml) found in dir.
func (c *Catalog) LoadDir(dir string) error {
	return c.LoadFS(os.DirFS(dir), ".")
}

// LoadFS registers every simulation file under root in fsys, in lexical file order.
// concepts.yaml is reserved for concept descriptions and skipped.
func (c *Catalog) LoadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name() == conceptsFile {
			continue
		}
		switch path.Ext(e.Name()) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return err
		}
		sim, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := c.Register(sim); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		c.logger.Debug("Simulation loaded", "simulation_id", sim.ID, "file", name, "steps", len(sim.Steps))
	}
	return nil
}

// Register normalizes, validates and adds sim to the catalog.
func (c *Catalog) Register(sim *domain.Simulation) error {
	sim.Normalize()
	if err := sim.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byID[sim.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, sim.ID)
	}
	c.byID[sim.ID] = sim
	c.order = append(c.order, sim.ID)
	return nil
}

// Get returns the simulation with the given id.
func (c *Catalog) Get(id string) (*domain.Simulation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sim, ok := c.byID[id]
	return sim, ok
}

// All returns every simulation in registration order.
func (c *Catalog) All() []*domain.Simulation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Simulation, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the registered simulation ids in registration order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Parse decodes a single YAML simulation document.
// Unknown keys are rejected, and null deltas are dropped rather than read as zero.
func Parse(data []byte) (*domain.Simulation, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse simulation: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}

	var sim domain.Simulation
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &sim,
		TagName:     "mapstructure",
		ErrorUnused: true,
		DecodeHook:  dropNullValues,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode simulation: %w", err)
	}
	if strings.TrimSpace(sim.ID) == "" {
		return nil, fmt.Errorf("failed to decode simulation: missing id")
	}
	return &sim, nil
}

var (
	effectsType = reflect.TypeOf(domain.Effects{})
	stateType   = reflect.TypeOf(domain.State{})
)

// dropNullValues removes nil entries from maps decoded into Effects or State.
func dropNullValues(from, to reflect.Type, data any) (any, error) {
	if to != effectsType && to != stateType {
		return data, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v != nil {
			out[k] = v
		}
	}
	return out, nil
}
