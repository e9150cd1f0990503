package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

// DoubleQuoteString forces double-quoted YAML style on re-marshal, matching
// how config.yaml.tmpl writes string defaults.
type DoubleQuoteString string

// MarshalYAML implements the yaml.Marshaler interface.
func (s DoubleQuoteString) MarshalYAML() (any, error) {
	node := yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.DoubleQuotedStyle,
		Value: string(s),
	}
	return &node, nil
}

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// BrokerConfig configures the handoff broker's HTTP surface (§4.5, §6.1).
	BrokerConfig struct {
		ListenAddr             string       `yaml:"listen_addr" validate:"required,hostname_port"`
		APIKey                 SecretString `yaml:"api_key,omitempty"`
		JobTTLSeconds          int          `yaml:"job_ttl_seconds" validate:"min=1"`
		LongPollTimeoutSeconds int          `yaml:"long_poll_timeout_seconds" validate:"min=1"`
		MaxQueueDepth          int          `yaml:"max_queue_depth" validate:"min=1"`
		MaxChunkBytes          int          `yaml:"max_chunk_bytes" validate:"min=1024"`
	}

	// CaptureConfig configures the capture agent (§4.1).
	CaptureConfig struct {
		BrokerURL                  string  `yaml:"broker_url" validate:"required,url"`
		UserAgent                  string  `yaml:"user_agent" validate:"required"`
		StabilizationQuietWindowMS int     `yaml:"stabilization_quiet_window_ms" validate:"min=0"`
		StabilizationTimeoutMS     int     `yaml:"stabilization_timeout_ms" validate:"min=0"`
		MaxDOMNodes                int     `yaml:"max_dom_nodes" validate:"min=1"`
		AssetFetchConcurrency      int     `yaml:"asset_fetch_concurrency" validate:"min=1"`
		AssetFetchTimeoutMS        int     `yaml:"asset_fetch_timeout_ms" validate:"min=0"`
		RasterizeScaleFactor       float64 `yaml:"rasterize_scale_factor" validate:"gte=0.0"`
	}

	// ImporterConfig configures the node-builder side of the pipeline (§4.7,
	// §4.8).
	ImporterConfig struct {
		MaxPayloadBytes   int64  `yaml:"max_payload_bytes" validate:"min=1"`
		FontCacheDir      string `yaml:"font_cache_dir,omitempty" sanitize:"path_clean,assure_dir_exists"`
		DefaultFontFamily string `yaml:"default_font_family" validate:"required"`
	}

	// EnhancerConfig tunes the optional post-capture annotation pass (§4.6).
	EnhancerConfig struct {
		EnableOCR                 bool    `yaml:"enable_ocr"`
		EnableClassification      bool    `yaml:"enable_classification"`
		SpacingScaleTolerance     float64 `yaml:"spacing_scale_tolerance" validate:"gte=0.0"`
		MinNodesForNormalization int     `yaml:"min_nodes_for_normalization" validate:"min=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Broker    BrokerConfig   `yaml:"broker"`
		Capture   CaptureConfig  `yaml:"capture"`
		Importer  ImporterConfig `yaml:"importer"`
		Enhancer  EnhancerConfig `yaml:"enhancer"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
