package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for a flat YAML configuration file.
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider.
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// LoadConfig loads the complete configuration from the YAML file, filling in
// defaults for anything the file leaves zero-valued.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	raw, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	cfg := &ConfigData{Pipeline: DefaultPipelineParams()}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	if cfg.Pipeline.WorkerCount == 0 {
		cfg.Pipeline.WorkerCount = DefaultPipelineParams().WorkerCount
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Catalogues.FlareSource == "" {
		cfg.Catalogues.FlareSource = "csv"
	}

	return cfg, nil
}

// GetPipelineParams loads the configuration and returns just the pipeline section.
func (y *YAMLProvider) GetPipelineParams() (*PipelineParams, error) {
	cfg, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	p := cfg.Pipeline
	return &p, nil
}

// GetDatabaseConfig loads the configuration and returns just the database section.
func (y *YAMLProvider) GetDatabaseConfig() (*DatabaseData, error) {
	cfg, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	d := cfg.Database
	return &d, nil
}

func (y *YAMLProvider) IsReadOnly() bool { return false }

func (y *YAMLProvider) Close() error { return nil }
