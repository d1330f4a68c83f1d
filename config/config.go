// Package config loads the global and flow configuration Conductor runs
// against, accepting JSON (mandatory), YAML and TOML dialects that all
// decode to the same logical structure (§6.1).
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/conductorhq/conductor/flow"
	"github.com/conductorhq/conductor/logging"
	yaml "go.yaml.in/yaml/v2"
)

// GlobalConfig is the process-wide configuration block (§6, "Global").
type GlobalConfig struct {
	Env                 map[string]string    `json:"env" yaml:"env" toml:"env"`
	SharedState         map[string]any       `json:"shared_state" yaml:"shared_state" toml:"shared_state"`
	RemoteLogging       logging.RemoteConfig `json:"remote_logging" yaml:"remote_logging" toml:"remote_logging"`
	Dependencies        []string             `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	ContainerRegistries []string             `json:"container_registries" yaml:"container_registries" toml:"container_registries"`
	ProcessPoolSize     int                  `json:"process_pool_size" yaml:"process_pool_size" toml:"process_pool_size"`
	MaxConcurrency      int                  `json:"max_concurrency" yaml:"max_concurrency" toml:"max_concurrency"`
	ResourceLocations   map[string]string    `json:"resource_locations" yaml:"resource_locations" toml:"resource_locations"`
	CodeLocations       map[string]string    `json:"code_locations" yaml:"code_locations" toml:"code_locations"`
	ResourceCacheDir    string               `json:"resource_cache_dir" yaml:"resource_cache_dir" toml:"resource_cache_dir"`
}

// Defaults fills zero-valued fields with the spec's documented defaults
// (process_pool_size: 1, max_concurrency: 4).
func (g *GlobalConfig) Defaults() {
	if g.ProcessPoolSize == 0 {
		g.ProcessPoolSize = 1
	}
	if g.MaxConcurrency == 0 {
		g.MaxConcurrency = 4
	}
}

// Format names a supported decode dialect.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// DetectFormat infers a Format from a file extension. Unrecognised
// extensions default to JSON, the mandatory format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// DecodeGlobal decodes raw bytes into a GlobalConfig per format.
func DecodeGlobal(raw []byte, format Format) (GlobalConfig, error) {
	var g GlobalConfig
	if err := decode(raw, format, &g); err != nil {
		return GlobalConfig{}, err
	}
	g.Defaults()
	return g, nil
}

// DecodeFlow decodes raw bytes into a flow.FlowDefinition per format, then
// validates the structural invariants (§3).
func DecodeFlow(raw []byte, format Format) (flow.FlowDefinition, error) {
	var f flow.FlowDefinition
	if err := decode(raw, format, &f); err != nil {
		return flow.FlowDefinition{}, err
	}
	if err := f.Validate(); err != nil {
		return flow.FlowDefinition{}, err
	}
	return f, nil
}

func decode(raw []byte, format Format, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(raw, v)
	case FormatYAML:
		return yaml.Unmarshal(raw, v)
	case FormatTOML:
		return toml.Unmarshal(raw, v)
	default:
		return fmt.Errorf("config: unknown format %q", format)
	}
}
