package hooks

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cargohook/cargohook/pkg/exitcode"
	"github.com/cargohook/cargohook/pkg/safeio"
)

// IsManaged reports whether hook file contents were written by cargohook.
func IsManaged(data []byte) bool {
	return bytes.Contains(data, []byte(managedMarker))
}

// InstallResult reports what Install changed.
type InstallResult struct {
	Installed []string
	BackedUp  []string
}

// Install copies every hook script from sourceDir into hooksDir and marks it
// executable. hooksDir must already exist: its absence means the checkout is
// not a normal git repository, which is a setup problem to surface, not to
// paper over. Re-running is safe; hooks we previously installed are simply
// overwritten. A hook file written by something else is preserved as .backup
// before being replaced.
func Install(sourceDir, hooksDir string) (*InstallResult, error) {
	info, err := os.Stat(hooksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exitcode.WithCode(fmt.Errorf("hooks directory %s does not exist", hooksDir), exitcode.FileSystemError)
		}
		return nil, exitcode.WithCode(fmt.Errorf("stat hooks directory %s: %w", hooksDir, err), exitcode.FileSystemError)
	}
	if !info.IsDir() {
		return nil, exitcode.WithCode(fmt.Errorf("%s is not a directory", hooksDir), exitcode.FileSystemError)
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exitcode.WithCode(
				fmt.Errorf("hook source directory %s does not exist, run '%s hooks generate' first", sourceDir, BinaryName),
				exitcode.ConfigError)
		}
		return nil, exitcode.WithCode(fmt.Errorf("read hook source directory %s: %w", sourceDir, err), exitcode.FileSystemError)
	}

	result := &InstallResult{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		src := filepath.Join(sourceDir, entry.Name())
		dst := filepath.Join(hooksDir, entry.Name())

		data, err := safeio.ReadFileContained(sourceDir, src)
		if err != nil {
			return result, exitcode.WithCode(fmt.Errorf("read hook source %s: %w", src, err), exitcode.FileSystemError)
		}
		if existing, err := os.ReadFile(dst); err == nil && !IsManaged(existing) { // #nosec G304
			backup := dst + ".backup"
			if err := os.Rename(dst, backup); err != nil {
				return result, exitcode.WithCode(fmt.Errorf("back up existing hook %s: %w", dst, err), exitcode.FileSystemError)
			}
			result.BackedUp = append(result.BackedUp, backup)
		}
		if err := safeio.WriteFileExecutable(dst, data); err != nil {
			return result, exitcode.WithCode(fmt.Errorf("install hook %s: %w", dst, err), exitcode.FileSystemError)
		}
		result.Installed = append(result.Installed, dst)
	}

	if len(result.Installed) == 0 {
		return result, exitcode.WithCode(
			fmt.Errorf("no hook files found in %s, run '%s hooks generate' first", sourceDir, BinaryName),
			exitcode.ConfigError)
	}
	return result, nil
}

// RemoveResult reports what Remove changed.
type RemoveResult struct {
	Removed  []string
	Restored []string
	Kept     []string
}

// Remove deletes cargohook-managed hooks from hooksDir and restores any
// .backup saved at install time. Hooks not written by cargohook are left
// alone.
func Remove(hooksDir string) (*RemoveResult, error) {
	result := &RemoveResult{}
	for _, hookType := range KnownHooks() {
		dst := filepath.Join(hooksDir, hookType)
		data, err := os.ReadFile(dst) // #nosec G304 -- fixed hook names under the git hooks directory
		switch {
		case err == nil && IsManaged(data):
			if err := os.Remove(dst); err != nil {
				return result, exitcode.WithCode(fmt.Errorf("remove hook %s: %w", dst, err), exitcode.FileSystemError)
			}
			result.Removed = append(result.Removed, dst)
		case err == nil:
			result.Kept = append(result.Kept, dst)
			continue
		case !os.IsNotExist(err):
			return result, exitcode.WithCode(fmt.Errorf("read hook %s: %w", dst, err), exitcode.FileSystemError)
		}

		backup := dst + ".backup"
		if _, err := os.Stat(backup); err == nil {
			if err := os.Rename(backup, dst); err != nil {
				return result, exitcode.WithCode(fmt.Errorf("restore %s: %w", backup, err), exitcode.FileSystemError)
			}
			result.Restored = append(result.Restored, dst)
		}
	}
	return result, nil
}

// HookStatus describes one hook's state across the source and git hook dirs.
type HookStatus struct {
	Name       string `json:"name"`
	SourcePath string `json:"source_path,omitempty"`
	HasSource  bool   `json:"has_source"`
	Installed  bool   `json:"installed"`
	Managed    bool   `json:"managed"`
	Executable bool   `json:"executable"`
	Current    bool   `json:"current"`
	HasBackup  bool   `json:"has_backup"`
}

// Status reports the install state of every known hook type. Current means
// the installed file matches the source shim byte for byte.
func Status(sourceDir, hooksDir string) []HookStatus {
	statuses := make([]HookStatus, 0, len(KnownHooks()))
	for _, hookType := range KnownHooks() {
		st := HookStatus{Name: hookType}

		srcPath := filepath.Join(sourceDir, hookType)
		srcData, srcErr := os.ReadFile(srcPath) // #nosec G304 -- fixed hook names under the source directory
		if srcErr == nil {
			st.HasSource = true
			st.SourcePath = srcPath
		}

		dstPath := filepath.Join(hooksDir, hookType)
		if info, err := os.Stat(dstPath); err == nil {
			st.Installed = true
			st.Executable = info.Mode()&0o111 != 0
			if data, err := os.ReadFile(dstPath); err == nil { // #nosec G304
				st.Managed = IsManaged(data)
				st.Current = srcErr == nil && bytes.Equal(data, srcData)
			}
		}
		if _, err := os.Stat(dstPath + ".backup"); err == nil {
			st.HasBackup = true
		}

		statuses = append(statuses, st)
	}
	return statuses
}
