package hooks

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cargohook/cargohook/pkg/exitcode"
)

// setupDirs generates the default shim into a source dir and creates an empty
// git hooks dir, mirroring a repo right after 'cargohook hooks generate'.
func setupDirs(t *testing.T) (sourceDir, hooksDir string) {
	t.Helper()
	root := t.TempDir()
	sourceDir = filepath.Join(root, ".cargohook", "hooks")
	if _, err := Generate(Default(""), sourceDir); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	hooksDir = filepath.Join(root, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return sourceDir, hooksDir
}

func TestInstall(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)

	result, err := Install(sourceDir, hooksDir)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(result.Installed) != 1 {
		t.Fatalf("Installed = %v, want one hook", result.Installed)
	}
	if len(result.BackedUp) != 0 {
		t.Errorf("BackedUp = %v, want none", result.BackedUp)
	}

	installed := filepath.Join(hooksDir, HookPreCommit)
	info, err := os.Stat(installed)
	if err != nil {
		t.Fatalf("hook not installed: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		t.Error("installed hook should be executable")
	}

	src, _ := os.ReadFile(filepath.Join(sourceDir, HookPreCommit))
	dst, _ := os.ReadFile(installed)
	if string(src) != string(dst) {
		t.Error("installed hook should match the source shim")
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)

	if _, err := Install(sourceDir, hooksDir); err != nil {
		t.Fatalf("first Install() error = %v", err)
	}
	first, err := os.ReadFile(filepath.Join(hooksDir, HookPreCommit))
	if err != nil {
		t.Fatal(err)
	}

	result, err := Install(sourceDir, hooksDir)
	if err != nil {
		t.Fatalf("second Install() error = %v", err)
	}
	second, err := os.ReadFile(filepath.Join(hooksDir, HookPreCommit))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("reinstall should leave identical hook files")
	}
	if len(result.BackedUp) != 0 {
		t.Errorf("reinstall should not back up cargohook's own hook, got %v", result.BackedUp)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(filepath.Join(hooksDir, HookPreCommit))
		if info.Mode()&0o111 == 0 {
			t.Error("reinstalled hook should remain executable")
		}
	}
}

func TestInstallMissingHooksDir(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)
	if err := os.RemoveAll(hooksDir); err != nil {
		t.Fatal(err)
	}

	_, err := Install(sourceDir, hooksDir)
	if err == nil {
		t.Fatal("expected error when the hooks directory does not exist")
	}
	if got := exitcode.FromError(err); got != exitcode.FileSystemError {
		t.Errorf("FromError() = %d, want %d", got, exitcode.FileSystemError)
	}
	// The installer must not create the directory behind git's back.
	if _, err := os.Stat(hooksDir); !os.IsNotExist(err) {
		t.Error("hooks directory should not have been created")
	}
}

func TestInstallMissingSourceDir(t *testing.T) {
	hooksDir := filepath.Join(t.TempDir(), "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Install(filepath.Join(t.TempDir(), "nope"), hooksDir)
	if err == nil {
		t.Fatal("expected error for missing source directory")
	}
	if got := exitcode.FromError(err); got != exitcode.ConfigError {
		t.Errorf("FromError() = %d, want %d", got, exitcode.ConfigError)
	}
}

func TestInstallEmptySourceDir(t *testing.T) {
	hooksDir := filepath.Join(t.TempDir(), "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Install(t.TempDir(), hooksDir)
	if err == nil {
		t.Fatal("expected error for empty source directory")
	}
	if got := exitcode.FromError(err); got != exitcode.ConfigError {
		t.Errorf("FromError() = %d, want %d", got, exitcode.ConfigError)
	}
}

func TestInstallBacksUpForeignHook(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)
	foreign := []byte("#!/bin/sh\necho my own hook\n")
	hookPath := filepath.Join(hooksDir, HookPreCommit)
	if err := os.WriteFile(hookPath, foreign, 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := Install(sourceDir, hooksDir)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(result.BackedUp) != 1 {
		t.Fatalf("BackedUp = %v, want the foreign hook", result.BackedUp)
	}
	backup, err := os.ReadFile(hookPath + ".backup")
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != string(foreign) {
		t.Error("backup should preserve the foreign hook contents")
	}

	// A reinstall must not clobber the backup with cargohook's own shim.
	if _, err := Install(sourceDir, hooksDir); err != nil {
		t.Fatalf("reinstall error = %v", err)
	}
	backup2, _ := os.ReadFile(hookPath + ".backup")
	if string(backup2) != string(foreign) {
		t.Error("reinstall overwrote the original backup")
	}
}

func TestRemove(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)
	if _, err := Install(sourceDir, hooksDir); err != nil {
		t.Fatal(err)
	}

	result, err := Remove(hooksDir)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(result.Removed) != 1 {
		t.Errorf("Removed = %v, want one hook", result.Removed)
	}
	if _, err := os.Stat(filepath.Join(hooksDir, HookPreCommit)); !os.IsNotExist(err) {
		t.Error("hook should have been removed")
	}
}

func TestRemoveRestoresBackup(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)
	foreign := []byte("#!/bin/sh\necho my own hook\n")
	hookPath := filepath.Join(hooksDir, HookPreCommit)
	if err := os.WriteFile(hookPath, foreign, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Install(sourceDir, hooksDir); err != nil {
		t.Fatal(err)
	}

	result, err := Remove(hooksDir)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(result.Restored) != 1 {
		t.Fatalf("Restored = %v, want the original hook", result.Restored)
	}
	restored, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("restored hook missing: %v", err)
	}
	if string(restored) != string(foreign) {
		t.Error("restored hook should match the original contents")
	}
	if _, err := os.Stat(hookPath + ".backup"); !os.IsNotExist(err) {
		t.Error("backup file should be consumed by the restore")
	}
}

func TestRemoveKeepsForeignHook(t *testing.T) {
	_, hooksDir := setupDirs(t)
	foreign := []byte("#!/bin/sh\necho my own hook\n")
	hookPath := filepath.Join(hooksDir, HookPreCommit)
	if err := os.WriteFile(hookPath, foreign, 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := Remove(hooksDir)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(result.Removed) != 0 {
		t.Errorf("Removed = %v, want none", result.Removed)
	}
	if len(result.Kept) != 1 {
		t.Errorf("Kept = %v, want the foreign hook", result.Kept)
	}
	data, err := os.ReadFile(hookPath)
	if err != nil || string(data) != string(foreign) {
		t.Error("foreign hook should be untouched")
	}
}

func TestStatus(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)
	if _, err := Install(sourceDir, hooksDir); err != nil {
		t.Fatal(err)
	}

	statuses := Status(sourceDir, hooksDir)
	if len(statuses) != len(KnownHooks()) {
		t.Fatalf("expected status for every known hook, got %d", len(statuses))
	}

	var preCommit, prePush HookStatus
	for _, st := range statuses {
		switch st.Name {
		case HookPreCommit:
			preCommit = st
		case HookPrePush:
			prePush = st
		}
	}

	if !preCommit.HasSource || !preCommit.Installed || !preCommit.Managed || !preCommit.Current {
		t.Errorf("unexpected pre-commit status: %+v", preCommit)
	}
	if runtime.GOOS != "windows" && !preCommit.Executable {
		t.Error("installed hook should be executable")
	}
	if prePush.HasSource || prePush.Installed {
		t.Errorf("pre-push should be absent for the default manifest: %+v", prePush)
	}
}

func TestStatusDetectsDrift(t *testing.T) {
	sourceDir, hooksDir := setupDirs(t)
	if _, err := Install(sourceDir, hooksDir); err != nil {
		t.Fatal(err)
	}
	// Regenerating after a manifest change leaves the installed copy stale.
	stale := filepath.Join(hooksDir, HookPreCommit)
	data, _ := os.ReadFile(stale)
	if err := os.WriteFile(stale, append(data, []byte("\n# local edit\n")...), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, st := range Status(sourceDir, hooksDir) {
		if st.Name == HookPreCommit {
			if st.Current {
				t.Error("drifted hook should not report Current")
			}
			if !st.Managed {
				t.Error("edited copy still carries the marker, should stay Managed")
			}
		}
	}
}
