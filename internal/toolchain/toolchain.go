// Package toolchain detects the Cargo project layout and the Rust toolchains
// available on the machine. Detection never fails hard: a missing or broken
// manifest is cargo's problem to report, not ours.
package toolchain

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Project represents a detected Cargo project with workspace information
type Project struct {
	// Name is the package name from [package], empty for pure workspace roots
	Name string
	// CargoTomlPath is the path to the Cargo.toml file
	CargoTomlPath string
	// RootPath is the directory containing the Cargo.toml
	RootPath string
	// IsWorkspace indicates if this is a workspace root
	IsWorkspace bool
	// WorkspaceRootPath is the path to the enclosing workspace root (if member)
	WorkspaceRootPath string
}

// cargoManifest is the subset of Cargo.toml the detector cares about.
type cargoManifest struct {
	Package *struct {
		Name      string `toml:"name"`
		Workspace string `toml:"workspace"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// Walk up at most this many levels when looking for manifests
const maxParentWalk = 10

// DetectProject detects the Cargo project enclosing dir.
// Returns nil if no Cargo.toml is found within maxParentWalk levels.
func DetectProject(dir string) *Project {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}

	var project *Project
	current := abs
	for i := 0; i <= maxParentWalk; i++ {
		manifestPath := filepath.Join(current, "Cargo.toml")
		if _, err := os.Stat(manifestPath); err == nil {
			info := analyzeManifest(manifestPath)

			if project == nil {
				project = info
				if project.IsWorkspace || project.WorkspaceRootPath != "" {
					// Workspace root, or a member that names its root explicitly
					break
				}
			} else if info.IsWorkspace {
				// Nearest ancestor workspace root claims the member
				project.WorkspaceRootPath = info.RootPath
				break
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root
			break
		}
		current = parent
	}

	return project
}

// analyzeManifest parses a Cargo.toml to determine package and workspace status.
// Parse failures are tolerated: the file's presence is the signal, and cargo
// itself reports malformed manifests far better than we could.
func analyzeManifest(manifestPath string) *Project {
	project := &Project{
		CargoTomlPath: manifestPath,
		RootPath:      filepath.Dir(manifestPath),
	}

	content, err := os.ReadFile(manifestPath) // #nosec G304 -- path is filepath.Join of a walked directory and "Cargo.toml"
	if err != nil {
		return project
	}

	var manifest cargoManifest
	if err := toml.Unmarshal(content, &manifest); err != nil {
		return project
	}

	if manifest.Package != nil {
		project.Name = manifest.Package.Name
		if manifest.Package.Workspace != "" {
			// package.workspace points at the workspace root directly
			wsRoot := manifest.Package.Workspace
			if !filepath.IsAbs(wsRoot) {
				wsRoot = filepath.Join(project.RootPath, wsRoot)
			}
			project.WorkspaceRootPath = filepath.Clean(wsRoot)
		}
	}
	project.IsWorkspace = manifest.Workspace != nil

	return project
}

// EffectiveRoot returns the path where Rust tools should be executed.
// For workspace members, this returns the workspace root.
// For standalone crates or workspace roots, this returns the project root.
func (p *Project) EffectiveRoot() string {
	if p == nil {
		return ""
	}
	if p.WorkspaceRootPath != "" {
		return p.WorkspaceRootPath
	}
	return p.RootPath
}

// Rustup probes installed toolchain channels via the rustup CLI.
type Rustup struct {
	Bin string
}

// NewRustup returns a Rustup prober for the given binary ("" means "rustup").
func NewRustup(bin string) *Rustup {
	return &Rustup{Bin: bin}
}

func (r *Rustup) bin() string {
	if r.Bin != "" {
		return r.Bin
	}
	return "rustup"
}

// Available reports whether the rustup binary resolves on PATH.
func (r *Rustup) Available() bool {
	_, err := exec.LookPath(r.bin())
	return err == nil
}

// Channels returns the installed toolchain names as reported by
// `rustup toolchain list`, e.g. "nightly-x86_64-unknown-linux-gnu".
func (r *Rustup) Channels(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, r.bin(), "toolchain", "list") // #nosec G204 -- binary from config, args fixed
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var channels []string
	for _, line := range strings.Split(string(output), "\n") {
		// Lines look like "nightly-x86_64-unknown-linux-gnu (default)"
		fields := strings.Fields(line)
		if len(fields) > 0 {
			channels = append(channels, fields[0])
		}
	}
	return channels, nil
}

// HasChannel reports whether channels contains a toolchain for the given
// channel name. Installed toolchains carry a host triple suffix, so a plain
// channel like "nightly" matches by prefix.
func HasChannel(channels []string, channel string) bool {
	for _, c := range channels {
		if c == channel || strings.HasPrefix(c, channel+"-") {
			return true
		}
	}
	return false
}

// CargoAvailable reports whether the cargo binary resolves on PATH.
func CargoAvailable(bin string) bool {
	if bin == "" {
		bin = "cargo"
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

var versionPattern = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// ToolVersion runs `<bin> --version` and extracts a semver-looking version
// from the output. Returns "" when the tool is missing or prints nothing
// recognizable.
func ToolVersion(ctx context.Context, bin string, args ...string) string {
	if bin == "" {
		return ""
	}
	invocation := append(append([]string(nil), args...), "--version")
	cmd := exec.CommandContext(ctx, bin, invocation...) // #nosec G204 -- binary from config, args fixed by callers
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	matches := versionPattern.FindStringSubmatch(string(output))
	if len(matches) >= 2 {
		return matches[1]
	}
	return ""
}
