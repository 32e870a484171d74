package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/fs-sandbox/sandbox"
	"github.com/calvinalkan/fs-sandbox/toolset"
)

// app carries what every command needs to build its sandbox. Commands build
// the sandbox on demand so that help output works without a config.
type app struct {
	cfg    *Config
	env    map[string]string
	logger zerolog.Logger

	// derive is nil unless a derivation flag was given.
	derive *sandbox.DeriveOptions
}

// NewSandbox builds the root sandbox from the loaded config and, when
// derivation flags were given, derives the child from it.
func (a *app) NewSandbox() (*sandbox.Sandbox, error) {
	root, err := a.rootSandbox()
	if err != nil {
		return nil, err
	}

	if a.derive == nil {
		return root, nil
	}

	child, err := root.Derive(*a.derive)
	if err != nil {
		return nil, err
	}

	return child, nil
}

func (a *app) rootSandbox() (*sandbox.Sandbox, error) {
	src, err := a.cfg.Source()
	if err != nil {
		return nil, fmt.Errorf("%w (add mounts, root or paths to .fs-sandbox.jsonc or pass --config)", err)
	}

	home, err := homeDir(a.env)
	if err != nil {
		return nil, err
	}

	strict := a.cfg.StrictTraversal != nil && *a.cfg.StrictTraversal

	return sandbox.NewWithEnvironment(&sandbox.Config{
		Source:          src,
		StrictTraversal: strict,
		Debugf:          debugfTo(a.logger),
	}, sandbox.Environment{HomeDir: home, WorkDir: a.cfg.EffectiveCwd})
}

// NewToolset wraps a fresh sandbox in a toolset.
func (a *app) NewToolset() (*toolset.Toolset, error) {
	sb, err := a.NewSandbox()
	if err != nil {
		return nil, err
	}

	return toolset.New(sb, toolset.Options{
		MaxReadChars: a.cfg.MaxReadChars,
		Debugf:       debugfTo(a.logger),
	}), nil
}
