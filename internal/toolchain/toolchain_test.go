package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeTool writes a fake tool binary for tests and prepends it to PATH.
func writeFakeTool(t *testing.T, name, script string) string {
	t.Helper()

	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}

	toolPath := filepath.Join(binDir, name)
	if err := os.WriteFile(toolPath, []byte(script), 0o755); err != nil {
		t.Fatalf("write %s script: %v", name, err)
	}

	oldPath := os.Getenv("PATH")
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath)

	return binDir
}

func TestDetectProject_StandaloneCrate(t *testing.T) {
	tmpDir := t.TempDir()

	cargoContent := `[package]
name = "my-crate"
version = "0.1.0"
edition = "2021"

[dependencies]
`
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte(cargoContent), 0644)
	require.NoError(t, err)

	project := DetectProject(tmpDir)
	require.NotNil(t, project)

	assert.Equal(t, "my-crate", project.Name)
	assert.Equal(t, filepath.Join(tmpDir, "Cargo.toml"), project.CargoTomlPath)
	assert.Equal(t, tmpDir, project.RootPath)
	assert.False(t, project.IsWorkspace)
	assert.Empty(t, project.WorkspaceRootPath)
	assert.Equal(t, tmpDir, project.EffectiveRoot())
}

func TestDetectProject_FromNestedDir(t *testing.T) {
	tmpDir := t.TempDir()
	srcDir := filepath.Join(tmpDir, "src", "bin")
	require.NoError(t, os.MkdirAll(srcDir, 0755))

	cargoContent := `[package]
name = "nested"
version = "0.1.0"
`
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte(cargoContent), 0644)
	require.NoError(t, err)

	project := DetectProject(srcDir)
	require.NotNil(t, project)

	assert.Equal(t, "nested", project.Name)
	assert.Equal(t, tmpDir, project.RootPath)
}

func TestDetectProject_WorkspaceRoot(t *testing.T) {
	tmpDir := t.TempDir()

	cargoContent := `[workspace]
members = ["crates/*"]
resolver = "2"
`
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte(cargoContent), 0644)
	require.NoError(t, err)

	project := DetectProject(tmpDir)
	require.NotNil(t, project)

	assert.True(t, project.IsWorkspace)
	assert.Empty(t, project.Name)
	assert.Equal(t, tmpDir, project.EffectiveRoot())
}

func TestDetectProject_WorkspaceMemberExplicit(t *testing.T) {
	tmpDir := t.TempDir()
	memberDir := filepath.Join(tmpDir, "crates", "my-lib")
	require.NoError(t, os.MkdirAll(memberDir, 0755))

	wsCargoContent := `[workspace]
members = ["crates/*"]
resolver = "2"
`
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte(wsCargoContent), 0644)
	require.NoError(t, err)

	// Member declares its workspace root directly
	memberCargoContent := `[package]
name = "my-lib"
version = "0.1.0"
edition = "2021"
workspace = "../.."

[dependencies]
`
	err = os.WriteFile(filepath.Join(memberDir, "Cargo.toml"), []byte(memberCargoContent), 0644)
	require.NoError(t, err)

	project := DetectProject(memberDir)
	require.NotNil(t, project)

	assert.Equal(t, "my-lib", project.Name)
	assert.False(t, project.IsWorkspace)
	assert.Equal(t, tmpDir, project.WorkspaceRootPath)
	assert.Equal(t, tmpDir, project.EffectiveRoot(), "EffectiveRoot should return workspace root")
}

func TestDetectProject_WorkspaceMemberByAncestor(t *testing.T) {
	tmpDir := t.TempDir()
	memberDir := filepath.Join(tmpDir, "crates", "my-bin")
	require.NoError(t, os.MkdirAll(memberDir, 0755))

	wsCargoContent := `[workspace]
members = ["crates/*"]
`
	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte(wsCargoContent), 0644)
	require.NoError(t, err)

	// Member relies on directory nesting, no package.workspace key
	memberCargoContent := `[package]
name = "my-bin"
version = "0.1.0"
`
	err = os.WriteFile(filepath.Join(memberDir, "Cargo.toml"), []byte(memberCargoContent), 0644)
	require.NoError(t, err)

	project := DetectProject(memberDir)
	require.NotNil(t, project)

	assert.Equal(t, "my-bin", project.Name)
	assert.Equal(t, tmpDir, project.WorkspaceRootPath)
	assert.Equal(t, tmpDir, project.EffectiveRoot())
}

func TestDetectProject_NotCargo(t *testing.T) {
	tmpDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tmpDir, "main.go"), []byte("package main"), 0644)
	require.NoError(t, err)

	project := DetectProject(tmpDir)
	assert.Nil(t, project)
}

func TestDetectProject_MalformedManifest(t *testing.T) {
	tmpDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tmpDir, "Cargo.toml"), []byte("[package\nname ="), 0644)
	require.NoError(t, err)

	// Presence wins; cargo reports the syntax error itself
	project := DetectProject(tmpDir)
	require.NotNil(t, project)
	assert.Empty(t, project.Name)
	assert.Equal(t, tmpDir, project.RootPath)
}

func TestEffectiveRoot_NilProject(t *testing.T) {
	var project *Project
	assert.Empty(t, project.EffectiveRoot())
}

func TestHasChannel(t *testing.T) {
	channels := []string{
		"stable-x86_64-unknown-linux-gnu",
		"nightly-x86_64-unknown-linux-gnu",
	}

	assert.True(t, HasChannel(channels, "nightly"))
	assert.True(t, HasChannel(channels, "stable"))
	assert.True(t, HasChannel(channels, "nightly-x86_64-unknown-linux-gnu"))
	assert.False(t, HasChannel(channels, "beta"))
	assert.False(t, HasChannel(channels, "night"))
	assert.False(t, HasChannel(nil, "nightly"))
}

func TestRustupChannels(t *testing.T) {
	writeFakeTool(t, "rustup", `#!/bin/sh
if [ "$1" = "toolchain" ] && [ "$2" = "list" ]; then
  echo "stable-x86_64-unknown-linux-gnu (default)"
  echo "nightly-x86_64-unknown-linux-gnu"
  exit 0
fi
exit 1
`)

	rustup := NewRustup("")
	require.True(t, rustup.Available())

	channels, err := rustup.Channels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 2)

	assert.Equal(t, "stable-x86_64-unknown-linux-gnu", channels[0])
	assert.Equal(t, "nightly-x86_64-unknown-linux-gnu", channels[1])
	assert.True(t, HasChannel(channels, "nightly"))
	assert.False(t, HasChannel(channels, "beta"))
}

func TestRustupUnavailable(t *testing.T) {
	rustup := NewRustup(filepath.Join(t.TempDir(), "missing-rustup"))
	assert.False(t, rustup.Available())

	_, err := rustup.Channels(context.Background())
	assert.Error(t, err)
}

func TestCargoAvailable(t *testing.T) {
	writeFakeTool(t, "cargo", "#!/bin/sh\necho \"cargo 1.84.0 (66221abde 2024-11-19)\"\n")

	assert.True(t, CargoAvailable(""))
	assert.True(t, CargoAvailable("cargo"))
	assert.False(t, CargoAvailable(filepath.Join(t.TempDir(), "missing-cargo")))
}

func TestToolVersion(t *testing.T) {
	writeFakeTool(t, "cargo", "#!/bin/sh\necho \"cargo 1.84.0 (66221abde 2024-11-19)\"\n")

	version := ToolVersion(context.Background(), "cargo")
	assert.Equal(t, "1.84.0", version)
}

func TestToolVersionMissingTool(t *testing.T) {
	version := ToolVersion(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Empty(t, version)

	assert.Empty(t, ToolVersion(context.Background(), ""))
}
