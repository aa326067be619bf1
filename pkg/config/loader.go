package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no config file is given explicitly.
const DefaultPath = ".fusion-sync.hcl"

// Load loads a configuration file, with the format determined by extension:
// - .hcl for HCL
// - .yaml or .yml for YAML
// - .json for JSON
// A missing file at DefaultPath is not an error: the built-in defaults
// describe the fork completely, the file only exists to override them.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			logger.Debug().Str("path", path).Msg("no config file, using defaults")
			return Default(), nil
		}
		return nil, errors.Errorf("reading config file: %w", err)
	}

	// Explicit values overlay the defaults, they never have to restate them.
	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		err = loadHCL(data, path, cfg)
	case ".yaml", ".yml":
		err = loadYAML(data, cfg)
	case ".json":
		err = loadJSON(data, cfg)
	default:
		return nil, errors.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	logger.Debug().Str("path", path).Msg("loaded configuration")
	return cfg, nil
}

// loadJSON loads a configuration from JSON data
func loadJSON(data []byte, cfg *Config) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return errors.Errorf("parsing JSON: %w", err)
	}
	return nil
}

// loadYAML loads a configuration from YAML data
func loadYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return errors.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// loadHCL loads a configuration from HCL data
func loadHCL(data []byte, filename string, cfg *Config) error {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	// HCL schema, separate from the model so every field stays optional.
	type hclRemote struct {
		Name string `hcl:"name,optional"`
		Repo string `hcl:"repo,optional"`
		URL  string `hcl:"url,optional"`
	}
	type hclConfig struct {
		Branch             string     `hcl:"branch,optional"`
		Origin             *hclRemote `hcl:"origin,block"`
		Upstream           *hclRemote `hcl:"upstream,block"`
		CommitMessage      string     `hcl:"commit_message,optional"`
		TestCommand        []string   `hcl:"test_command,optional"`
		AllowedChangeGlobs []string   `hcl:"allowed_change_globs,optional"`
		Force              bool       `hcl:"force,optional"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}

	overlayRemote := func(dst *Remote, src *hclRemote) {
		if src == nil {
			return
		}
		if src.Name != "" {
			dst.Name = src.Name
		}
		if src.Repo != "" {
			dst.Repo = src.Repo
		}
		if src.URL != "" {
			dst.URL = src.URL
		}
	}

	if hclCfg.Branch != "" {
		cfg.Branch = hclCfg.Branch
	}
	overlayRemote(&cfg.Origin, hclCfg.Origin)
	overlayRemote(&cfg.Upstream, hclCfg.Upstream)
	if hclCfg.CommitMessage != "" {
		cfg.CommitMessage = hclCfg.CommitMessage
	}
	if len(hclCfg.TestCommand) > 0 {
		cfg.TestCommand = hclCfg.TestCommand
	}
	if len(hclCfg.AllowedChangeGlobs) > 0 {
		cfg.AllowedChangeGlobs = hclCfg.AllowedChangeGlobs
	}
	if hclCfg.Force {
		cfg.Force = true
	}
	return nil
}
