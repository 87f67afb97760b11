// Package preset expands abstract entries (a GitHub readme, a glob over a
// repository snapshot, ...) into concrete, extractor-bound entries.
package preset

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/kb/pkg/fetch"
	"github.com/grovetools/kb/pkg/github"
	"github.com/grovetools/kb/pkg/models"
)

// Func transforms one entry. Presets receive their own copy of the entry.
type Func func(ctx context.Context, entry models.Entry, env *Env) (Result, error)

// Preset is a named transformation.
type Preset struct {
	Name        string
	Description string
	Resolve     Func
}

// Env carries the services presets may use.
type Env struct {
	Fetcher *fetch.Fetcher
	GitHub  github.Client
	Logger  *logrus.Entry

	// BaseDir anchors relative glob folders, normally the project folder.
	BaseDir string
	// ScratchRoot is where presets create scratch directories. Empty means
	// the system temp dir.
	ScratchRoot string
	// ArchiveBaseURL serves repository snapshots. Empty means github.com.
	ArchiveBaseURL string

	mu      sync.Mutex
	scratch []string
}

// ScratchDir creates a scratch directory that lives until Cleanup.
func (e *Env) ScratchDir(pattern string) (string, error) {
	dir, err := os.MkdirTemp(e.ScratchRoot, pattern)
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	e.mu.Lock()
	e.scratch = append(e.scratch, dir)
	e.mu.Unlock()
	return dir, nil
}

// Cleanup removes every scratch directory created so far.
func (e *Env) Cleanup() {
	e.mu.Lock()
	dirs := e.scratch
	e.scratch = nil
	e.mu.Unlock()
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil && e.Logger != nil {
			e.Logger.WithError(err).WithField("dir", dir).Warn("Failed to remove scratch directory")
		}
	}
}

func (e *Env) logger() *logrus.Entry {
	if e.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return e.Logger
}

// Resolver is a registry of presets.
type Resolver struct {
	presets map[string]Preset
	env     *Env
}

// NewResolver creates an empty resolver.
func NewResolver(env *Env) *Resolver {
	if env == nil {
		env = &Env{}
	}
	return &Resolver{presets: map[string]Preset{}, env: env}
}

// Default creates a resolver with every built-in preset registered.
func Default(env *Env) *Resolver {
	r := NewResolver(env)
	for _, p := range builtins() {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a preset.
func (r *Resolver) Register(p Preset) {
	r.presets[p.Name] = p
}

// Has reports whether a preset is registered under name.
func (r *Resolver) Has(name string) bool {
	_, ok := r.presets[name]
	return ok
}

// Presets returns the registered presets sorted by name.
func (r *Resolver) Presets() []Preset {
	out := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Env returns the environment handed to presets.
func (r *Resolver) Env() *Env { return r.env }

// Resolve runs one resolution step. Entries without a type or a target,
// and entries whose type has no preset, are terminal.
func (r *Resolver) Resolve(ctx context.Context, entry models.Entry) (Result, error) {
	if entry.Type == "" || !entry.HasTarget() {
		return TerminalResult(), nil
	}
	p, ok := r.presets[entry.Type]
	if !ok {
		return TerminalResult(), nil
	}
	res, err := p.Resolve(ctx, entry.Clone(), r.env)
	if err != nil {
		return Result{}, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return res, nil
}
