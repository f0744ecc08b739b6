// Package hooks manages the cargohook manifest and the lifecycle of the git
// hook shims it describes: scaffolding, shim generation, installation into
// .git/hooks, validation, and removal.
package hooks

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cargohook/cargohook/internal/pipeline"
	"github.com/cargohook/cargohook/internal/schema"
	"github.com/cargohook/cargohook/pkg/exitcode"
	"github.com/cargohook/cargohook/pkg/safeio"
	"gopkg.in/yaml.v3"
)

const (
	// HookPreCommit and HookPrePush are the hook types cargohook manages.
	HookPreCommit = "pre-commit"
	HookPrePush   = "pre-push"

	// ManifestVersion is the current manifest format version.
	ManifestVersion = "1.0.0"

	manifestSchema = "hooks-manifest-v1.0.0"
)

// ErrManifestNotFound reports a missing manifest file, which callers may
// treat as "use the default pipeline".
var ErrManifestNotFound = errors.New("hooks manifest not found")

// KnownHooks returns the hook types cargohook manages, in a stable order.
func KnownHooks() []string {
	return []string{HookPreCommit, HookPrePush}
}

// KnownHook reports whether hookType is one cargohook manages.
func KnownHook(hookType string) bool {
	return hookType == HookPreCommit || hookType == HookPrePush
}

// StageSpec is one stage entry in the hooks manifest.
type StageSpec struct {
	Name            string   `yaml:"name"`
	Command         string   `yaml:"command"`
	Args            []string `yaml:"args,omitempty"`
	Advisory        bool     `yaml:"advisory,omitempty"`
	RequiresChannel string   `yaml:"requires_channel,omitempty"`
	Paths           []string `yaml:"paths,omitempty"`
	Priority        int      `yaml:"priority,omitempty"`
	Timeout         string   `yaml:"timeout,omitempty"`
}

// Manifest is the parsed hooks manifest (.cargohook/hooks.yaml).
type Manifest struct {
	Version string                 `yaml:"version"`
	Hooks   map[string][]StageSpec `yaml:"hooks"`
}

// Default returns the pipeline cargohook runs when a repository carries no
// manifest: format the tree, attempt a nightly clippy autofix, then lint with
// warnings treated as errors.
func Default(cargoBin string) *Manifest {
	if cargoBin == "" {
		cargoBin = "cargo"
	}
	return &Manifest{
		Version: ManifestVersion,
		Hooks: map[string][]StageSpec{
			HookPreCommit: {
				{
					Name:     "fmt",
					Command:  cargoBin,
					Args:     []string{"fmt"},
					Priority: 10,
				},
				{
					Name:            "clippy-fix",
					Command:         cargoBin,
					Args:            []string{"+nightly", "clippy", "--fix", "-Z", "unstable-options", "--allow-dirty", "--allow-staged"},
					Advisory:        true,
					RequiresChannel: "nightly",
					Priority:        20,
				},
				{
					Name:     "clippy",
					Command:  cargoBin,
					Args:     []string{"clippy", "--all-targets", "--", "-D", "warnings"},
					Priority: 30,
				},
			},
		},
	}
}

// Load reads and validates the manifest at path. A missing file is reported
// as ErrManifestNotFound; any other failure is a configuration error.
func Load(path string) (*Manifest, error) {
	clean, err := safeio.CleanUserPath(path)
	if err != nil {
		return nil, exitcode.WithCode(fmt.Errorf("invalid manifest path: %w", err), exitcode.ConfigError)
	}
	data, err := os.ReadFile(clean) // #nosec G304 -- path sanitized with safeio.CleanUserPath
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, clean)
		}
		return nil, exitcode.WithCode(fmt.Errorf("read manifest %s: %w", clean, err), exitcode.FileSystemError)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", clean, err)
	}
	return m, nil
}

// Parse validates manifest bytes against the embedded schema and decodes them.
func Parse(data []byte) (*Manifest, error) {
	validator, err := schema.GetEmbeddedValidator(manifestSchema)
	if err != nil {
		return nil, err
	}
	res, err := validator.ValidateBytes(data)
	if err != nil {
		return nil, exitcode.WithCode(fmt.Errorf("parse manifest: %w", err), exitcode.ConfigError)
	}
	if !res.Valid {
		return nil, exitcode.WithCode(fmt.Errorf("manifest failed validation: %s", formatValidationErrors(res.Errors)), exitcode.ConfigError)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, exitcode.WithCode(fmt.Errorf("decode manifest: %w", err), exitcode.ConfigError)
	}
	return &m, nil
}

func formatValidationErrors(errs []schema.ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Path, e.Message))
	}
	return strings.Join(parts, "; ")
}

// Marshal renders the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// StagesFor converts the manifest entries for a hook type into pipeline
// stages. An invalid stage timeout is a configuration error.
func (m *Manifest) StagesFor(hookType string) ([]pipeline.Stage, error) {
	specs := m.Hooks[hookType]
	stages := make([]pipeline.Stage, 0, len(specs))
	for _, s := range specs {
		st := pipeline.Stage{
			Name:            s.Name,
			Command:         s.Command,
			Args:            s.Args,
			Advisory:        s.Advisory,
			RequiresChannel: s.RequiresChannel,
			Paths:           s.Paths,
			Priority:        s.Priority,
		}
		if s.Timeout != "" {
			d, err := time.ParseDuration(s.Timeout)
			if err != nil {
				return nil, exitcode.WithCode(
					fmt.Errorf("stage %s: invalid timeout %q: %w", s.Name, s.Timeout, err),
					exitcode.ConfigError)
			}
			st.Timeout = d
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// HookTypes returns the hook types the manifest configures, in the order
// KnownHooks lists them.
func (m *Manifest) HookTypes() []string {
	var types []string
	for _, h := range KnownHooks() {
		if len(m.Hooks[h]) > 0 {
			types = append(types, h)
		}
	}
	return types
}
