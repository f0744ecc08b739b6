package hooks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aymerick/raymond"
	"github.com/cargohook/cargohook/internal/assets"
	"github.com/cargohook/cargohook/pkg/exitcode"
	"github.com/cargohook/cargohook/pkg/safeio"
)

// BinaryName is the executable the generated shims dispatch to.
const BinaryName = "cargohook"

// managedMarker identifies hook files written by cargohook. Install and
// remove use it to tell our shims apart from hand-written hooks.
const managedMarker = "Generated by cargohook"

const shimTemplate = "hook.sh.hbs"

// RenderShim renders the POSIX shim for a hook type. The shim is a thin
// dispatcher into the binary, so every platform shares one pipeline
// implementation; git for Windows runs sh hooks through its bundled shell.
func RenderShim(hookType, version string) (string, error) {
	tpl, err := assets.GetHookTemplate(shimTemplate)
	if err != nil {
		return "", err
	}
	out, err := raymond.Render(string(tpl), map[string]string{
		"hook":    hookType,
		"binary":  BinaryName,
		"version": version,
	})
	if err != nil {
		return "", fmt.Errorf("render %s shim: %w", hookType, err)
	}
	return out, nil
}

// Generate writes a shim into sourceDir for every hook type the manifest
// configures. The source directory is repo-tracked content and is created
// when missing.
func Generate(m *Manifest, sourceDir string) ([]string, error) {
	types := m.HookTypes()
	if len(types) == 0 {
		return nil, exitcode.WithCode(fmt.Errorf("manifest configures no hooks"), exitcode.ConfigError)
	}
	if err := os.MkdirAll(sourceDir, 0o750); err != nil {
		return nil, exitcode.WithCode(fmt.Errorf("create hook source directory: %w", err), exitcode.FileSystemError)
	}
	var written []string
	for _, hookType := range types {
		content, err := RenderShim(hookType, m.Version)
		if err != nil {
			return written, err
		}
		dst := filepath.Join(sourceDir, hookType)
		if err := safeio.WriteFileExecutable(dst, []byte(content)); err != nil {
			return written, exitcode.WithCode(fmt.Errorf("write %s: %w", dst, err), exitcode.FileSystemError)
		}
		written = append(written, dst)
	}
	return written, nil
}
