package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cargohook/cargohook/internal/hooks"
	"github.com/cargohook/cargohook/pkg/exitcode"
	git "github.com/go-git/go-git/v5"
)

func TestHooksLifecycle(t *testing.T) {
	setupGitRepo(t)

	// init scaffolds the manifest
	stdout, _, err := executeCommand("hooks", "init")
	if err != nil {
		t.Fatalf("hooks init failed: %v", err)
	}
	if !strings.Contains(stdout, "✅ Created") {
		t.Errorf("init output missing confirmation: %s", stdout)
	}
	manifestData, err := os.ReadFile(".cargohook/hooks.yaml")
	if err != nil {
		t.Fatalf("manifest not created: %v", err)
	}
	if !strings.Contains(string(manifestData), "pre-commit") || !strings.Contains(string(manifestData), "fmt") {
		t.Errorf("manifest missing default pipeline: %s", manifestData)
	}

	// generate renders the shims
	stdout, _, err = executeCommand("hooks", "generate")
	if err != nil {
		t.Fatalf("hooks generate failed: %v", err)
	}
	if !strings.Contains(stdout, "📁 Created") {
		t.Errorf("generate output missing file list: %s", stdout)
	}
	shimPath := filepath.Join(".cargohook", "hooks", "pre-commit")
	info, err := os.Stat(shimPath)
	if err != nil {
		t.Fatalf("shim not generated: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("generated shim is not executable")
	}
	shim, err := os.ReadFile(shimPath)
	if err != nil {
		t.Fatalf("failed to read shim: %v", err)
	}
	if !strings.Contains(string(shim), "cargohook run --hook pre-commit") {
		t.Errorf("shim must delegate to the runner: %s", shim)
	}

	// install copies them into .git/hooks
	stdout, _, err = executeCommand("hooks", "install")
	if err != nil {
		t.Fatalf("hooks install failed: %v", err)
	}
	if !strings.Contains(stdout, "installed 1 hook(s)") {
		t.Errorf("install output missing summary: %s", stdout)
	}
	installed := filepath.Join(".git", "hooks", "pre-commit")
	info, err = os.Stat(installed)
	if err != nil {
		t.Fatalf("hook not installed: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("installed hook is not executable")
	}

	// validate reports a healthy setup
	stdout, _, err = executeCommand("hooks", "validate")
	if err != nil {
		t.Fatalf("hooks validate failed: %v", err)
	}
	if !strings.Contains(stdout, "✅ pre-commit hook installed and executable") {
		t.Errorf("validate output missing hook status: %s", stdout)
	}
	if !strings.Contains(stdout, "🎉") {
		t.Errorf("validate should report a healthy setup: %s", stdout)
	}

	// inspect --json exposes machine-readable status
	stdout, _, err = executeCommand("hooks", "inspect", "--json")
	if err != nil {
		t.Fatalf("hooks inspect failed: %v", err)
	}
	var inspection hooksInspection
	if err := json.Unmarshal([]byte(stdout), &inspection); err != nil {
		t.Fatalf("inspect --json produced invalid JSON: %v\n%s", err, stdout)
	}
	if !inspection.ManifestFound {
		t.Error("inspect should find the manifest")
	}
	var preCommit *hooks.HookStatus
	for i := range inspection.Hooks {
		if inspection.Hooks[i].Name == hooks.HookPreCommit {
			preCommit = &inspection.Hooks[i]
		}
	}
	if preCommit == nil {
		t.Fatal("inspect missing pre-commit status")
	}
	if !preCommit.Installed || !preCommit.Managed || !preCommit.Current {
		t.Errorf("pre-commit should be installed, managed, and current: %+v", preCommit)
	}

	// remove uninstalls cleanly
	stdout, _, err = executeCommand("hooks", "remove")
	if err != nil {
		t.Fatalf("hooks remove failed: %v", err)
	}
	if !strings.Contains(stdout, "✅ Removed") {
		t.Errorf("remove output missing confirmation: %s", stdout)
	}
	if _, err := os.Stat(installed); !os.IsNotExist(err) {
		t.Error("hook should be gone after remove")
	}
}

func TestHooksInit_AlreadyInitialized(t *testing.T) {
	setupGitRepo(t)

	if _, _, err := executeCommand("hooks", "init"); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	stdout, _, err := executeCommand("hooks", "init")
	if err != nil {
		t.Fatalf("re-running init must not fail: %v", err)
	}
	if !strings.Contains(stdout, "already exists") {
		t.Errorf("expected already-initialized notice, got: %s", stdout)
	}
}

func TestHooksInit_OutsideRepository(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := executeCommand("hooks", "init")
	if err == nil {
		t.Fatal("init must fail outside a git repository")
	}
	if !strings.Contains(err.Error(), "not a git repository") {
		t.Errorf("error should name the problem: %v", err)
	}
	if got := exitcode.FromError(err); got != exitcode.GeneralError {
		t.Errorf("exit status = %d, want %d", got, exitcode.GeneralError)
	}
	if _, statErr := os.Stat(".cargohook"); !os.IsNotExist(statErr) {
		t.Error("init must not scaffold anything outside a repository")
	}
}

func TestHooksInstall_OutsideRepository(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, _, err := executeCommand("hooks", "install")
	if err == nil {
		t.Fatal("install must fail outside a git repository")
	}
	if !strings.Contains(err.Error(), "not a git repository") {
		t.Errorf("error should name the problem: %v", err)
	}
	if got := exitcode.FromError(err); got != exitcode.GeneralError {
		t.Errorf("exit status = %d, want %d", got, exitcode.GeneralError)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("ReadDir() failed: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("install must not write anything outside a repository, found %v", entries)
	}
}

func TestHooksGenerate_WithoutManifest(t *testing.T) {
	setupGitRepo(t)

	_, _, err := executeCommand("hooks", "generate")
	if err == nil {
		t.Fatal("generate must fail without a manifest")
	}
	if !strings.Contains(err.Error(), "hooks init") {
		t.Errorf("error should point at hooks init: %v", err)
	}
	if got := exitcode.FromError(err); got != exitcode.ConfigError {
		t.Errorf("exit status = %d, want %d", got, exitcode.ConfigError)
	}
}

func TestHooksInstall_MissingHooksDir(t *testing.T) {
	// PlainInit does not create .git/hooks, which stands in for a damaged
	// or unusual checkout. Install must refuse rather than create it.
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("failed to init repository: %v", err)
	}
	chdir(t, dir)

	if _, _, err := executeCommand("hooks", "init"); err != nil {
		t.Fatalf("hooks init failed: %v", err)
	}
	if _, _, err := executeCommand("hooks", "generate"); err != nil {
		t.Fatalf("hooks generate failed: %v", err)
	}

	_, _, err := executeCommand("hooks", "install")
	if err == nil {
		t.Fatal("install must fail when .git/hooks does not exist")
	}
	if got := exitcode.FromError(err); got != exitcode.FileSystemError {
		t.Errorf("exit status = %d, want %d", got, exitcode.FileSystemError)
	}
	if _, statErr := os.Stat(filepath.Join(dir, ".git", "hooks")); !os.IsNotExist(statErr) {
		t.Error("install must never create the hooks directory itself")
	}
}

func TestHooksInstall_BacksUpForeignHook(t *testing.T) {
	setupGitRepo(t)

	if _, _, err := executeCommand("hooks", "init"); err != nil {
		t.Fatalf("hooks init failed: %v", err)
	}
	if _, _, err := executeCommand("hooks", "generate"); err != nil {
		t.Fatalf("hooks generate failed: %v", err)
	}

	foreign := []byte("#!/bin/sh\necho custom hook\n")
	hookPath := filepath.Join(".git", "hooks", "pre-commit")
	if err := os.WriteFile(hookPath, foreign, 0o755); err != nil {
		t.Fatalf("failed to plant foreign hook: %v", err)
	}

	stdout, _, err := executeCommand("hooks", "install")
	if err != nil {
		t.Fatalf("hooks install failed: %v", err)
	}
	if !strings.Contains(stdout, "📋 Backed up") {
		t.Errorf("install should report the backup: %s", stdout)
	}
	backup, err := os.ReadFile(hookPath + ".backup")
	if err != nil {
		t.Fatalf("backup not created: %v", err)
	}
	if string(backup) != string(foreign) {
		t.Error("backup must preserve the foreign hook byte for byte")
	}

	// remove restores the foreign hook
	if _, _, err := executeCommand("hooks", "remove"); err != nil {
		t.Fatalf("hooks remove failed: %v", err)
	}
	restored, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("foreign hook not restored: %v", err)
	}
	if string(restored) != string(foreign) {
		t.Error("remove must restore the backed up hook")
	}
}

func TestHooksValidate_WithoutManifest(t *testing.T) {
	setupGitRepo(t)

	stdout, _, err := executeCommand("hooks", "validate")
	if err != nil {
		t.Fatalf("validate without a manifest must not fail: %v", err)
	}
	if !strings.Contains(stdout, "default pipeline") {
		t.Errorf("validate should mention the default pipeline fallback: %s", stdout)
	}
	if !strings.Contains(stdout, "⚠️") {
		t.Errorf("validate should warn about the missing shims: %s", stdout)
	}
}

func TestHooksRemove_NothingInstalled(t *testing.T) {
	setupGitRepo(t)

	stdout, _, err := executeCommand("hooks", "remove")
	if err != nil {
		t.Fatalf("remove with nothing installed must not fail: %v", err)
	}
	if !strings.Contains(stdout, "No cargohook hooks were installed") {
		t.Errorf("expected nothing-to-do notice, got: %s", stdout)
	}
}
