// Package registry holds the named data sources, their adapters, and each
// source's layer state. It is the single owner of layer mutation: fetch
// completions and visibility toggles on one source are serialized through a
// per-source lock, while distinct sources fetch independently.
package registry

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/internal/source"
)

// entry pairs a source's immutable config and adapter with its mutable layer
// state. The mutex makes replace-on-fetch-success and toggles atomic per
// source; there is no cross-source lock.
type entry struct {
	mu      sync.Mutex
	cfg     model.SourceConfig
	adapter source.Adapter
	state   model.LayerState
}

// Registry is the aggregation registry. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	searchMu sync.RWMutex
	search   *model.SearchPoint
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Register inserts a source or, for an existing id, replaces its config and
// resets its layer state. The config is immutable afterwards.
func (r *Registry) Register(cfg model.SourceConfig, adapter source.Adapter) error {
	if cfg.ID == "" {
		return eris.New("registry: source id is required")
	}
	if !cfg.Kind.Valid() {
		return eris.Errorf("registry: unknown source kind %q", cfg.Kind)
	}
	if adapter == nil {
		return eris.Errorf("registry: source %s has no adapter", cfg.ID)
	}
	if cfg.Color == "" {
		cfg.Color = model.DefaultLayerColor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[cfg.ID]; !exists {
		r.order = append(r.order, cfg.ID)
	}
	r.entries[cfg.ID] = &entry{
		cfg:     cfg,
		adapter: adapter,
		state: model.LayerState{
			SourceID: cfg.ID,
			Name:     cfg.DisplayName,
			Visible:  cfg.DefaultVisible,
			Color:    cfg.Color,
			Features: model.NewFeatureCollection(),
		},
	}

	zap.L().Info("registered source",
		zap.String("source", cfg.ID),
		zap.String("kind", string(cfg.Kind)),
	)
	return nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, &model.NotFoundError{ID: id}
	}
	return e, nil
}

// Config returns the immutable config for a registered source.
func (r *Registry) Config(id string) (model.SourceConfig, error) {
	e, err := r.lookup(id)
	if err != nil {
		return model.SourceConfig{}, err
	}
	return e.cfg, nil
}

// Fetch runs the source's adapter and, on success, atomically replaces the
// layer's feature set. The first successful fetch applies the config's
// default visibility; later fetches preserve the current toggle. On failure
// the prior features are left untouched and the error surfaces to the
// caller — retry policy is a caller concern.
func (r *Registry) Fetch(ctx context.Context, id string, params source.FetchParams) (*model.FeatureCollection, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	// The network call happens outside the entry lock so a slow upstream
	// never blocks toggles or reads of the current state.
	fc, err := e.adapter.Fetch(ctx, params)
	if err != nil {
		if ferr, ok := err.(*model.FetchError); ok && ferr.SourceID == "" {
			ferr.SourceID = id
		}
		zap.L().Warn("fetch failed, keeping prior features",
			zap.String("source", id),
			zap.Error(err),
		)
		return nil, err
	}

	e.mu.Lock()
	e.state.Features = fc
	if !e.state.Loaded {
		e.state.Loaded = true
		e.state.Visible = e.cfg.DefaultVisible
	}
	e.mu.Unlock()

	zap.L().Info("fetched source",
		zap.String("source", id),
		zap.Int("features", fc.Len()),
	)
	return fc, nil
}

// FetchAll fetches every registered source concurrently. Per-source failures
// are collected and returned keyed by source id; one source failing never
// aborts or corrupts the others.
func (r *Registry) FetchAll(ctx context.Context, params source.FetchParams) map[string]error {
	r.mu.RLock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	r.mu.RUnlock()

	var (
		failMu sync.Mutex
		fails  = map[string]error{}
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := r.Fetch(ctx, id, params); err != nil {
				failMu.Lock()
				fails[id] = err
				failMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return fails
}

// ToggleVisibility flips the layer's visibility flag and returns the new
// value. The lifecycle status stays Unloaded until a first fetch regardless
// of the flag. Unknown ids fail with NotFoundError.
func (r *Registry) ToggleVisibility(id string) (bool, error) {
	e, err := r.lookup(id)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.state.Visible = !e.state.Visible
	v := e.state.Visible
	e.mu.Unlock()
	return v, nil
}

// Layer returns a snapshot of one source's layer state.
func (r *Registry) Layer(id string) (model.LayerState, error) {
	e, err := r.lookup(id)
	if err != nil {
		return model.LayerState{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

// Layers returns snapshots of every layer in registration order.
func (r *Registry) Layers() []model.LayerState {
	return r.snapshot(func(model.LayerState) bool { return true })
}

// VisibleLayers returns, in registration order, every layer currently marked
// visible.
func (r *Registry) VisibleLayers() []model.LayerState {
	return r.snapshot(func(ls model.LayerState) bool { return ls.Visible })
}

func (r *Registry) snapshot(keep func(model.LayerState) bool) []model.LayerState {
	r.mu.RLock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	entries := make([]*entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, r.entries[id])
	}
	r.mu.RUnlock()

	out := []model.LayerState{}
	for _, e := range entries {
		e.mu.Lock()
		ls := e.state
		e.mu.Unlock()
		if keep(ls) {
			out = append(out, ls)
		}
	}
	return out
}

// SetSearchPoint records the last query center (lat, lon). Last writer wins;
// there is no queue of search requests.
func (r *Registry) SetSearchPoint(lat, lon float64) {
	r.searchMu.Lock()
	r.search = &model.SearchPoint{Lat: lat, Lon: lon}
	r.searchMu.Unlock()
}

// SearchPoint returns the current search center, or false when none is set.
func (r *Registry) SearchPoint() (model.SearchPoint, bool) {
	r.searchMu.RLock()
	defer r.searchMu.RUnlock()
	if r.search == nil {
		return model.SearchPoint{}, false
	}
	return *r.search, true
}
