package model

// SourceKind selects the adapter variant for a registered source.
type SourceKind string

const (
	KindStatic        SourceKind = "static"
	KindHTTPGeneric   SourceKind = "http_generic"
	KindRegistryOAuth SourceKind = "registry_oauth"
)

// Valid reports whether k names a known adapter variant.
func (k SourceKind) Valid() bool {
	switch k {
	case KindStatic, KindHTTPGeneric, KindRegistryOAuth:
		return true
	}
	return false
}

// DefaultLayerColor is the display hint applied when a source does not set one.
// The core passes colors through without interpreting them.
const DefaultLayerColor = "#3388ff"

// SourceConfig describes one registered data source. Configs are immutable
// after registration; re-registering the same ID replaces the config and
// resets the layer state.
type SourceConfig struct {
	ID             string     `json:"id" yaml:"id"`
	Kind           SourceKind `json:"kind" yaml:"kind"`
	DisplayName    string     `json:"display_name" yaml:"display_name"`
	URL            string     `json:"url,omitempty" yaml:"url,omitempty"`
	DefaultVisible bool       `json:"default_visible" yaml:"default_visible"`
	Color          string     `json:"color,omitempty" yaml:"color,omitempty"`

	// CredentialRef names the config credential used by registry_oauth
	// sources; empty means anonymous access.
	CredentialRef string `json:"credential_ref,omitempty" yaml:"credential_ref,omitempty"`

	// RegistryOAuth search defaults.
	DefaultRadiusMeters int `json:"default_radius_meters,omitempty" yaml:"default_radius_meters,omitempty"`
	MaxRows             int `json:"max_rows,omitempty" yaml:"max_rows,omitempty"`
}

// LayerStatus is the observable lifecycle state of a source's layer.
type LayerStatus string

const (
	LayerUnloaded LayerStatus = "unloaded"
	LayerVisible  LayerStatus = "visible"
	LayerHidden   LayerStatus = "hidden"
)

// LayerState tracks, per source, visibility and the currently materialized
// feature set. Never destroyed during process lifetime; reset only by
// re-registration.
type LayerState struct {
	SourceID string             `json:"source_id"`
	Name     string             `json:"name"`
	Visible  bool               `json:"visible"`
	Color    string             `json:"color"`
	Features *FeatureCollection `json:"features,omitempty"`

	// Loaded flips true on the first successful fetch and stays true.
	Loaded bool `json:"loaded"`
}

// Status derives the lifecycle state. Loaded is a transient step between a
// fetch completing and the default-visibility flag applying, so it never
// shows up here.
func (ls *LayerState) Status() LayerStatus {
	if !ls.Loaded {
		return LayerUnloaded
	}
	if ls.Visible {
		return LayerVisible
	}
	return LayerHidden
}

// SearchPoint is the last spatial-search center set by a caller,
// in (latitude, longitude) order. At most one is outstanding at a time.
type SearchPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
