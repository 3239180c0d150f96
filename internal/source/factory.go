package source

import (
	"github.com/rotisserie/eris"

	"github.com/nordatlas/atlas-cli/internal/model"
	"github.com/nordatlas/atlas-cli/pkg/aedregistry"
)

// ForConfig builds the adapter matching the config's kind. The registry
// client is shared across registry_oauth sources so they reuse one token;
// it may be nil only when no such source is configured.
func ForConfig(cfg model.SourceConfig, client *aedregistry.Client) (Adapter, error) {
	switch cfg.Kind {
	case model.KindStatic:
		if cfg.URL != "" {
			return NewStaticFile(cfg.ID, cfg.URL), nil
		}
		return NewStatic(cfg.ID), nil
	case model.KindHTTPGeneric:
		if cfg.URL == "" {
			return nil, eris.Errorf("source %s: http_generic requires a url", cfg.ID)
		}
		return NewHTTPGeneric(cfg.ID, cfg.URL, nil), nil
	case model.KindRegistryOAuth:
		if client == nil {
			return nil, eris.Errorf("source %s: registry client not configured", cfg.ID)
		}
		return NewRegistryOAuth(cfg, client), nil
	default:
		return nil, eris.Errorf("source %s: unknown kind %q", cfg.ID, cfg.Kind)
	}
}
