/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cargohook/cargohook/internal/gitctx"
	"github.com/cargohook/cargohook/internal/hooks"
	"github.com/cargohook/cargohook/internal/ops"
	"github.com/cargohook/cargohook/internal/pipeline"
	"github.com/cargohook/cargohook/internal/toolchain"
	"github.com/cargohook/cargohook/pkg/exitcode"
	"github.com/cargohook/cargohook/pkg/logger"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
)

// runCmd represents the run command. It is what the installed hook shims
// invoke, and it can be run by hand to check a tree before committing.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hook pipeline for the current repository",
	Long: `Run executes the check pipeline configured for a git hook. The installed
shims call this command; running it directly performs the same checks
without committing.

The pipeline for each hook comes from .cargohook/hooks.yaml when present,
otherwise the built-in default is used: cargo fmt, a clippy autofix attempt
on the nightly toolchain, then clippy with warnings denied.

A failing required stage stops the run and its exit status becomes
cargohook's exit status, so git sees exactly what the tool reported.`,
	Args: cobra.NoArgs,
	RunE: runHookPipeline,
}

// runOptions carries the flag values for a single pipeline invocation.
type runOptions struct {
	hookType     string
	manifestPath string
	noOp         bool
}

func runOptionsFromFlags(flags *pflag.FlagSet) runOptions {
	hookType, _ := flags.GetString("hook")
	manifestPath, _ := flags.GetString("manifest")
	noOp, _ := flags.GetBool("no-op")
	return runOptions{hookType: hookType, manifestPath: manifestPath, noOp: noOp}
}

func init() {
	runCmd.Flags().String("hook", hooks.HookPreCommit, "Hook type to run (pre-commit|pre-push)")
	runCmd.Flags().String("manifest", "", "Path to the hooks manifest (default: .cargohook/hooks.yaml in the repository root)")

	if err := ops.RegisterCommand("run", ops.GroupGuard, runCmd, "Run the hook pipeline for the current repository"); err != nil {
		panic(fmt.Sprintf("Failed to register run command: %v", err))
	}
}

func runHookPipeline(cmd *cobra.Command, args []string) error {
	opts := runOptionsFromFlags(cmd.Flags())

	if !hooks.KnownHook(opts.hookType) {
		return exitcode.WithCode(
			fmt.Errorf("unknown hook type %q (known: %v)", opts.hookType, hooks.KnownHooks()),
			exitcode.ConfigError)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	// Checks are useful even before the first `git init`, so the root
	// resolution is lenient here. Installation is strict; see hooks install.
	gitRoot, inRepo := gitctx.ResolveRootLenient(cwd)
	if !inRepo {
		logger.Warn(fmt.Sprintf("not inside a git repository, running checks against %s", gitRoot))
	}

	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}

	// Cargo commands must run where the (workspace) manifest lives, which for
	// workspace members is not the directory the hook fired in.
	execRoot := gitRoot
	if proj := toolchain.DetectProject(cwd); proj != nil {
		execRoot = proj.EffectiveRoot()
		logger.Debug("detected cargo project",
			logger.String("name", proj.Name),
			logger.String("root", execRoot),
			logger.Bool("workspace", proj.IsWorkspace))
	}

	manifestPath := opts.manifestPath
	if manifestPath == "" {
		manifestPath = filepath.Join(gitRoot, cfg.ManifestPath())
	}

	manifest, err := hooks.Load(manifestPath)
	if err != nil {
		if !errors.Is(err, hooks.ErrManifestNotFound) {
			return err
		}
		// A manifest the user asked for by name must exist; only the
		// conventional location may fall back to the default pipeline.
		if opts.manifestPath != "" {
			return exitcode.WithCode(err, exitcode.ConfigError)
		}
		logger.Debug("no hooks manifest found, using the default pipeline")
		manifest = hooks.Default(cfg.CargoBin())
	}

	stages, err := manifest.StagesFor(opts.hookType)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		logger.Info(fmt.Sprintf("no stages configured for %s, nothing to do", opts.hookType))
		return nil
	}

	engine := pipeline.NewEngine(toolchain.NewRustup(cfg.RustupBin()))
	engine.StagedFiles = func() ([]string, error) {
		if !inRepo {
			return nil, gitctx.ErrNotARepository
		}
		return gitctx.StagedFiles(gitRoot)
	}
	engine.DefaultTimeout = cfg.Run.StageTimeout
	engine.Verbose = true
	engine.NoOp = opts.noOp

	if err := engine.Run(cmd.Context(), execRoot, stages); err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) && stageErr.Hint != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "💡 To apply fixes automatically, run '%s' and stage the result\n", stageErr.Hint)
		}
		return err
	}

	if !opts.noOp {
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s checks passed\n", opts.hookType)
	}
	return nil
}
