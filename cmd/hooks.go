/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cargohook/cargohook/internal/gitctx"
	"github.com/cargohook/cargohook/internal/hooks"
	"github.com/cargohook/cargohook/internal/ops"
	"github.com/cargohook/cargohook/pkg/config"
	"github.com/cargohook/cargohook/pkg/exitcode"
	"github.com/spf13/cobra"
)

// hooksCmd represents the hooks command
var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage the git hooks cargohook installs",
	Long: `Hooks manages the lifecycle of cargohook's git hook shims: scaffolding the
manifest, generating shim scripts from it, installing them into .git/hooks,
and removing them again.

Examples:
  cargohook hooks init          # Scaffold .cargohook/hooks.yaml
  cargohook hooks generate      # Generate hook shims from the manifest
  cargohook hooks install       # Install shims into .git/hooks
  cargohook hooks validate      # Validate manifest and installation
  cargohook hooks inspect       # Show detailed hook status
  cargohook hooks remove        # Uninstall shims, restoring backups`,
}

// hooksInitCmd represents the hooks init command
var hooksInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold the hooks manifest",
	Long: `Init creates .cargohook/hooks.yaml with the default pipeline: cargo fmt,
a clippy autofix attempt on the nightly toolchain, then clippy with
warnings denied. Edit the manifest to taste, then generate and install.`,
	RunE: runHooksInit,
}

// hooksGenerateCmd represents the hooks generate command
var hooksGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate hook shims from the manifest",
	Long: `Generate renders an executable shim script for every hook the manifest
configures. The shims only delegate to 'cargohook run'; regenerate them
whenever the manifest changes hook types.`,
	RunE: runHooksGenerate,
}

// hooksInstallCmd represents the hooks install command
var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install hook shims into .git/hooks",
	Long: `Install copies the generated shims into the repository's .git/hooks
directory and marks them executable. Hooks written by other tools are
backed up first; re-installing over cargohook's own shims is a no-op.`,
	RunE: runHooksInstall,
}

// hooksValidateCmd represents the hooks validate command
var hooksValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate manifest and installation",
	Long: `Validate checks that the manifest parses against its schema and that the
generated shims are installed and executable.`,
	RunE: runHooksValidate,
}

// hooksInspectCmd represents the hooks inspect command
var hooksInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show detailed hook status",
	Long: `Inspect displays the manifest, generation, and installation state of every
hook cargohook manages. Supports JSON output for scripting.`,
	RunE: runHooksInspect,
}

// hooksRemoveCmd represents the hooks remove command
var hooksRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Uninstall hook shims",
	Long: `Remove deletes cargohook's shims from .git/hooks and restores any hooks
that were backed up at install time. Hooks written by other tools are
left untouched.`,
	RunE: runHooksRemove,
}

func init() {
	if err := ops.RegisterCommand("hooks", ops.GroupHooks, hooksCmd, "Manage the git hooks cargohook installs"); err != nil {
		panic(fmt.Sprintf("Failed to register hooks command: %v", err))
	}

	hooksInspectCmd.Flags().Bool("json", false, "Output status as JSON")

	// Add subcommands
	hooksCmd.AddCommand(hooksInitCmd)
	hooksCmd.AddCommand(hooksGenerateCmd)
	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksValidateCmd)
	hooksCmd.AddCommand(hooksInspectCmd)
	hooksCmd.AddCommand(hooksRemoveCmd)

	// Register subcommands
	subcommands := []*cobra.Command{hooksInitCmd, hooksGenerateCmd, hooksInstallCmd, hooksValidateCmd, hooksInspectCmd, hooksRemoveCmd}
	for _, sub := range subcommands {
		if err := ops.RegisterCommand(fmt.Sprintf("hooks %s", sub.Use), ops.GroupHooks, sub, sub.Short); err != nil {
			panic(fmt.Sprintf("Failed to register hooks %s command: %v", sub.Use, err))
		}
	}
}

// requireRepoRoot resolves the enclosing git worktree root or fails. Hook
// management writes into .git, so operating relative to a guessed directory
// is never acceptable here.
func requireRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	root, err := gitctx.ResolveRoot(cwd)
	if err != nil {
		return "", fmt.Errorf("%w: initialize one with 'git init' first", err)
	}
	return root, nil
}

// loadToolConfig loads the layered configuration, tagging failures as
// configuration errors so the exit status distinguishes them.
func loadToolConfig() (*config.Config, error) {
	cfg, err := config.LoadProjectConfig()
	if err != nil {
		return nil, exitcode.WithCode(fmt.Errorf("load configuration: %w", err), exitcode.ConfigError)
	}
	return cfg, nil
}

// hookPaths resolves the manifest, shim source, and git hook locations for a
// repository root under the given configuration.
func hookPaths(root string, cfg *config.Config) (manifestPath, sourceDir, gitHooksDir string) {
	return filepath.Join(root, cfg.ManifestPath()),
		filepath.Join(root, cfg.HookSourceDir()),
		filepath.Join(root, ".git", "hooks")
}

func runHooksInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔧 Initializing cargohook...")

	root, err := requireRepoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}
	manifestPath, _, _ := hookPaths(root, cfg)

	if _, err := os.Stat(manifestPath); err == nil {
		fmt.Fprintf(out, "⚠️  Hooks manifest already exists at %s\n", manifestPath)
		fmt.Fprintln(out, "💡 Edit it directly, then run 'cargohook hooks generate' to refresh the shims")
		return nil
	}

	data, err := hooks.Default(cfg.CargoBin()).Marshal()
	if err != nil {
		return fmt.Errorf("render default manifest: %w", err)
	}
	header := "# cargohook hooks manifest. Stages run in ascending priority order;\n" +
		"# stages marked advisory never block the commit.\n"

	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o750); err != nil {
		return exitcode.WithCode(fmt.Errorf("create %s: %w", filepath.Dir(manifestPath), err), exitcode.FileSystemError)
	}
	if err := os.WriteFile(manifestPath, append([]byte(header), data...), 0o600); err != nil {
		return exitcode.WithCode(fmt.Errorf("write manifest: %w", err), exitcode.FileSystemError)
	}

	fmt.Fprintf(out, "✅ Created %s with the default pipeline\n", manifestPath)
	fmt.Fprintln(out, "🚀 Next steps:")
	fmt.Fprintln(out, "   1. Run 'cargohook hooks generate' to render the hook shims")
	fmt.Fprintln(out, "   2. Run 'cargohook hooks install' to install them into .git/hooks")
	fmt.Fprintln(out, "   3. Run 'cargohook hooks validate' to verify everything works")

	return nil
}

func runHooksGenerate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔨 Generating hook shims from manifest...")

	root, err := requireRepoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}
	manifestPath, sourceDir, _ := hookPaths(root, cfg)

	manifest, err := hooks.Load(manifestPath)
	if err != nil {
		if errors.Is(err, hooks.ErrManifestNotFound) {
			return exitcode.WithCode(
				fmt.Errorf("hooks manifest not found, run 'cargohook hooks init' first"),
				exitcode.ConfigError)
		}
		return err
	}

	written, err := hooks.Generate(manifest, sourceDir)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "✅ Hook shims generated")
	for _, path := range written {
		fmt.Fprintf(out, "📁 Created: %s\n", path)
	}
	fmt.Fprintln(out, "📌 Next: Run 'cargohook hooks install' to install them into .git/hooks")

	return nil
}

func runHooksInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "📦 Installing hook shims into .git/hooks...")

	root, err := requireRepoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}
	_, sourceDir, gitHooksDir := hookPaths(root, cfg)

	result, err := hooks.Install(sourceDir, gitHooksDir)
	if err != nil {
		return err
	}

	for _, backup := range result.BackedUp {
		fmt.Fprintf(out, "📋 Backed up existing hook to %s\n", backup)
	}
	for _, installed := range result.Installed {
		fmt.Fprintf(out, "✅ Installed %s\n", installed)
	}
	fmt.Fprintf(out, "🎯 Successfully installed %d hook(s)!\n", len(result.Installed))
	fmt.Fprintln(out, "💡 Test without committing: cargohook run --hook pre-commit")

	return nil
}

func runHooksValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔍 Validating hook configuration...")

	root, err := requireRepoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}
	manifestPath, sourceDir, gitHooksDir := hookPaths(root, cfg)

	manifest, err := hooks.Load(manifestPath)
	switch {
	case errors.Is(err, hooks.ErrManifestNotFound):
		fmt.Fprintln(out, "⚠️  No manifest found; 'cargohook run' will use the default pipeline")
		manifest = hooks.Default(cfg.CargoBin())
	case err != nil:
		return err
	default:
		for _, hookType := range manifest.HookTypes() {
			stages, serr := manifest.StagesFor(hookType)
			if serr != nil {
				return serr
			}
			fmt.Fprintf(out, "✅ Manifest valid: %s (%d stage(s))\n", hookType, len(stages))
		}
	}

	warnings := 0
	for _, st := range hooks.Status(sourceDir, gitHooksDir) {
		// Only hooks the repository actually uses need shims installed.
		if len(manifest.Hooks[st.Name]) == 0 {
			continue
		}
		switch {
		case !st.HasSource:
			fmt.Fprintf(out, "⚠️  %s shim not generated, run 'cargohook hooks generate'\n", st.Name)
			warnings++
		case !st.Installed:
			fmt.Fprintf(out, "⚠️  %s hook not installed, run 'cargohook hooks install'\n", st.Name)
			warnings++
		case !st.Executable:
			fmt.Fprintf(out, "⚠️  %s hook is installed but not executable\n", st.Name)
			warnings++
		case !st.Managed:
			fmt.Fprintf(out, "⚠️  %s hook belongs to another tool; cargohook will not run\n", st.Name)
			warnings++
		case !st.Current:
			fmt.Fprintf(out, "⚠️  %s hook is stale, run 'cargohook hooks install' to refresh\n", st.Name)
			warnings++
		default:
			fmt.Fprintf(out, "✅ %s hook installed and executable\n", st.Name)
		}
	}

	if warnings > 0 {
		fmt.Fprintf(out, "⚠️  Validation finished with %d warning(s)\n", warnings)
		return nil
	}
	fmt.Fprintln(out, "🎉 Hook configuration is healthy")
	return nil
}

// hooksInspection is the JSON shape of 'hooks inspect --json'.
type hooksInspection struct {
	Root            string             `json:"root"`
	ManifestPath    string             `json:"manifest_path"`
	ManifestFound   bool               `json:"manifest_found"`
	ManifestVersion string             `json:"manifest_version,omitempty"`
	Hooks           []hooks.HookStatus `json:"hooks"`
}

func runHooksInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	root, err := requireRepoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}
	manifestPath, sourceDir, gitHooksDir := hookPaths(root, cfg)

	inspection := hooksInspection{
		Root:         root,
		ManifestPath: manifestPath,
		Hooks:        hooks.Status(sourceDir, gitHooksDir),
	}
	manifest, err := hooks.Load(manifestPath)
	if err == nil {
		inspection.ManifestFound = true
		inspection.ManifestVersion = manifest.Version
	} else if !errors.Is(err, hooks.ErrManifestNotFound) {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(inspection, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	manifestStatus := "❌ Not found"
	if inspection.ManifestFound {
		manifestStatus = fmt.Sprintf("✅ Found (v%s)", inspection.ManifestVersion)
	}

	fmt.Fprintln(out, "📊 Current Hook Status:")
	fmt.Fprintf(out, "├── Repository: %s\n", root)
	fmt.Fprintf(out, "├── Manifest: %s\n", manifestStatus)
	for i, st := range inspection.Hooks {
		connector := "├──"
		prefix := "│  "
		if i == len(inspection.Hooks)-1 {
			connector = "└──"
			prefix = "   "
		}
		fmt.Fprintf(out, "%s %s:\n", connector, st.Name)
		fmt.Fprintf(out, "%s ├── Generated: %s\n", prefix, boolStatus(st.HasSource))
		fmt.Fprintf(out, "%s ├── Installed: %s\n", prefix, boolStatus(st.Installed))
		fmt.Fprintf(out, "%s ├── Executable: %s\n", prefix, boolStatus(st.Executable))
		fmt.Fprintf(out, "%s ├── Up to date: %s\n", prefix, boolStatus(st.Current))
		fmt.Fprintf(out, "%s └── Backup present: %s\n", prefix, boolStatus(st.HasBackup))
	}

	return nil
}

func boolStatus(ok bool) string {
	if ok {
		return "✅ Yes"
	}
	return "❌ No"
}

func runHooksRemove(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🗑️  Removing cargohook hooks...")

	root, err := requireRepoRoot()
	if err != nil {
		return err
	}
	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}
	_, _, gitHooksDir := hookPaths(root, cfg)

	result, err := hooks.Remove(gitHooksDir)
	if err != nil {
		return err
	}

	for _, removed := range result.Removed {
		fmt.Fprintf(out, "✅ Removed %s\n", removed)
	}
	for _, restored := range result.Restored {
		fmt.Fprintf(out, "📋 Restored original hook at %s\n", restored)
	}
	for _, kept := range result.Kept {
		fmt.Fprintf(out, "⚠️  Left %s in place (not written by cargohook)\n", kept)
	}
	if len(result.Removed) == 0 && len(result.Restored) == 0 {
		fmt.Fprintln(out, "💡 No cargohook hooks were installed")
	} else {
		fmt.Fprintln(out, "✅ Hooks restored to their previous state")
	}

	return nil
}
