package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// ErrDuplicateConfigFiles is returned when more than one config file exists
// at the same location (e.g. both .jsonc and .yaml).
var ErrDuplicateConfigFiles = errors.New("duplicate config files")

// configExtensions are tried in order at every config location.
var configExtensions = []string{".json", ".jsonc", ".yaml", ".yml"}

// Config holds the application configuration.
//
// Exactly one of Mounts, Root and Paths declares the sandbox. The same
// struct decodes from JSONC and YAML.
type Config struct {
	StrictTraversal *bool `json:"strict_traversal,omitempty" yaml:"strict_traversal,omitempty"`
	MaxReadChars    int   `json:"max_read_chars,omitempty" yaml:"max_read_chars,omitempty"`

	Mounts []MountConfig         `json:"mounts,omitempty" yaml:"mounts,omitempty"`
	Root   *RootConfig           `json:"root,omitempty" yaml:"root,omitempty"`
	Paths  map[string]PathConfig `json:"paths,omitempty" yaml:"paths,omitempty"`

	// Resolved (not serialized)
	EffectiveCwd      string            `json:"-" yaml:"-"`
	LoadedConfigFiles map[string]string `json:"-" yaml:"-"`
}

// MountConfig is one entry of "mounts".
type MountConfig struct {
	HostDir       string   `json:"host_dir" yaml:"host_dir"`
	MountPoint    string   `json:"mount_point" yaml:"mount_point"`
	Mode          string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Suffixes      []string `json:"suffixes,omitempty" yaml:"suffixes,omitempty"`
	MaxFileBytes  int64    `json:"max_file_bytes,omitempty" yaml:"max_file_bytes,omitempty"`
	WriteApproval *bool    `json:"write_approval,omitempty" yaml:"write_approval,omitempty"`
	ReadApproval  bool     `json:"read_approval,omitempty" yaml:"read_approval,omitempty"`
}

// RootConfig is the single-root form: one host directory mounted at "/".
type RootConfig struct {
	HostDir       string   `json:"host_dir" yaml:"host_dir"`
	ReadOnly      bool     `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Suffixes      []string `json:"suffixes,omitempty" yaml:"suffixes,omitempty"`
	MaxFileBytes  int64    `json:"max_file_bytes,omitempty" yaml:"max_file_bytes,omitempty"`
	WriteApproval *bool    `json:"write_approval,omitempty" yaml:"write_approval,omitempty"`
	ReadApproval  bool     `json:"read_approval,omitempty" yaml:"read_approval,omitempty"`
}

// PathConfig is one entry of "paths", mounted at "/<name>".
type PathConfig struct {
	Root          string   `json:"root" yaml:"root"`
	Mode          string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Suffixes      []string `json:"suffixes,omitempty" yaml:"suffixes,omitempty"`
	MaxFileBytes  int64    `json:"max_file_bytes,omitempty" yaml:"max_file_bytes,omitempty"`
	WriteApproval *bool    `json:"write_approval,omitempty" yaml:"write_approval,omitempty"`
	ReadApproval  bool     `json:"read_approval,omitempty" yaml:"read_approval,omitempty"`
}

// Source converts the declared mounts into a sandbox configuration source.
func (c *Config) Source() (sandbox.Source, error) {
	var mounts []sandbox.Mount

	if c.Mounts != nil {
		mounts = make([]sandbox.Mount, 0, len(c.Mounts))
		for _, m := range c.Mounts {
			mounts = append(mounts, sandbox.Mount{
				HostDir:       m.HostDir,
				MountPoint:    m.MountPoint,
				Mode:          sandbox.Mode(m.Mode),
				Suffixes:      m.Suffixes,
				MaxFileBytes:  m.MaxFileBytes,
				WriteApproval: m.WriteApproval,
				ReadApproval:  m.ReadApproval,
			})
		}
	}

	var root *sandbox.Root

	if c.Root != nil {
		root = &sandbox.Root{
			HostDir:       c.Root.HostDir,
			ReadOnly:      c.Root.ReadOnly,
			Suffixes:      c.Root.Suffixes,
			MaxFileBytes:  c.Root.MaxFileBytes,
			WriteApproval: c.Root.WriteApproval,
			ReadApproval:  c.Root.ReadApproval,
		}
	}

	var paths sandbox.NamedPaths

	if c.Paths != nil {
		paths = make(sandbox.NamedPaths, len(c.Paths))
		for name, p := range c.Paths {
			paths[name] = sandbox.PathConfig{
				Root:          p.Root,
				Mode:          sandbox.Mode(p.Mode),
				Suffixes:      p.Suffixes,
				MaxFileBytes:  p.MaxFileBytes,
				WriteApproval: p.WriteApproval,
				ReadApproval:  p.ReadApproval,
			}
		}
	}

	return sandbox.SourceOf(mounts, root, paths)
}

// declaresSource reports whether any of mounts, root or paths is set.
func (c *Config) declaresSource() bool {
	return c.Mounts != nil || c.Root != nil || c.Paths != nil
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // --config flag value
	Env             map[string]string // Environment variables (for XDG_CONFIG_HOME and HOME)
}

// LoadConfig loads configuration with the following precedence (later overrides earlier):
//  1. Global config: $XDG_CONFIG_HOME/fs-sandbox/config.{json,jsonc,yaml,yml}
//     (defaults to ~/.config/fs-sandbox/) - always loaded if exists
//  2. Project config OR --config path (not both):
//     - Without --config: .fs-sandbox.{json,jsonc,yaml,yml} in workDir
//     - With --config: uses that path instead of project config
//
// JSON files support comments via tailscale/hujson. If more than one file
// exists at the same location, it's an error. Relative host directories are
// resolved against the directory of the file declaring them.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	if !filepath.IsAbs(workDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}

		workDir = filepath.Join(cwd, workDir)
	}

	cfg := Config{LoadedConfigFiles: map[string]string{}}

	globalConfigBasePath, err := getUserConfigBasePath(input.Env)
	if err != nil {
		return Config{}, err
	}

	err = loadOptional(&cfg, "global", globalConfigBasePath)
	if err != nil {
		return Config{}, err
	}

	if input.ConfigPath != "" {
		configPath := input.ConfigPath
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(workDir, configPath)
		}

		explicitCfg, err := loadConfigFile(configPath)
		if err != nil {
			return Config{}, err
		}

		cfg = mergeConfigs(&cfg, &explicitCfg)
		cfg.LoadedConfigFiles["explicit"] = configPath
	} else {
		err = loadOptional(&cfg, "project", filepath.Join(workDir, ".fs-sandbox"))
		if err != nil {
			return Config{}, err
		}
	}

	cfg.EffectiveCwd = workDir

	return cfg, nil
}

// loadOptional merges the config file at basePath into cfg if one exists.
func loadOptional(cfg *Config, label, basePath string) error {
	path, err := findConfigFile(basePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return err
	}

	loaded, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	*cfg = mergeConfigs(cfg, &loaded)
	cfg.LoadedConfigFiles[label] = path

	return nil
}

// findConfigFile finds a config file at basePath (directory + base name
// without extension). It returns os.ErrNotExist if there is none and an
// error if there are several.
func findConfigFile(basePath string) (string, error) {
	var found []string

	for _, ext := range configExtensions {
		path := basePath + ext

		exists, err := fileExists(path)
		if err != nil {
			return "", err
		}

		if exists {
			found = append(found, path)
		}
	}

	switch len(found) {
	case 0:
		return "", os.ErrNotExist
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s exist; remove all but one", ErrDuplicateConfigFiles, strings.Join(found, " and "))
	}
}

// fileExists checks if a file exists and is not a directory.
// Returns (true, nil) if file exists, (false, nil) if not found,
// or (false, error) for other errors (e.g., permission denied).
func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("checking file %s: %w", path, err)
	}

	if info.IsDir() {
		return false, nil
	}

	return true, nil
}

// loadConfigFile loads and parses a JSON/JSONC or YAML config file, chosen
// by extension.
func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		standardized, err := hujson.Standardize(data)
		if err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}

		err = json.Unmarshal(standardized, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if cfg.declaresSource() {
		_, err = cfg.Source()
		if err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	resolveHostDirs(&cfg, filepath.Dir(path))

	return cfg, nil
}

// resolveHostDirs makes relative host directories absolute against dir.
// "~" paths are left for the sandbox to expand.
func resolveHostDirs(cfg *Config, dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) || p == "~" || strings.HasPrefix(p, "~/") {
			return p
		}

		return filepath.Join(dir, p)
	}

	for i := range cfg.Mounts {
		cfg.Mounts[i].HostDir = abs(cfg.Mounts[i].HostDir)
	}

	if cfg.Root != nil {
		cfg.Root.HostDir = abs(cfg.Root.HostDir)
	}

	for name, p := range cfg.Paths {
		p.Root = abs(p.Root)
		cfg.Paths[name] = p
	}
}

// mergeConfigs merges override into base, with override taking precedence.
// A file declaring any source replaces the whole source of base.
func mergeConfigs(base, override *Config) Config {
	result := *base

	if override.declaresSource() {
		result.Mounts = override.Mounts
		result.Root = override.Root
		result.Paths = override.Paths
	}

	if override.StrictTraversal != nil {
		result.StrictTraversal = override.StrictTraversal
	}

	if override.MaxReadChars > 0 {
		result.MaxReadChars = override.MaxReadChars
	}

	return result
}

// getUserConfigBasePath returns the user config base path (without extension).
// Uses env map for XDG_CONFIG_HOME and HOME instead of os.Getenv().
func getUserConfigBasePath(env map[string]string) (string, error) {
	if xdg, ok := env["XDG_CONFIG_HOME"]; ok && xdg != "" {
		return filepath.Join(xdg, "fs-sandbox", "config"), nil
	}

	home, err := homeDir(env)
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "fs-sandbox", "config"), nil
}

func homeDir(env map[string]string) (string, error) {
	if home, ok := env["HOME"]; ok && home != "" {
		return home, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return home, nil
}
