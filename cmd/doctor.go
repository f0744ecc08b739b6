/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cargohook/cargohook/internal/gitctx"
	"github.com/cargohook/cargohook/internal/hooks"
	"github.com/cargohook/cargohook/internal/ops"
	"github.com/cargohook/cargohook/internal/toolchain"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the toolchain environment",
	Long: `Doctor checks everything the hook pipeline depends on: git, cargo, rustup
and its toolchain channels, the enclosing repository and Cargo project, the
hooks manifest, and the installation state of the shims.

Each check reports ok, warn, or fail. Warnings mean the pipeline still runs
but some stages may be skipped; failures mean commits cannot be checked.`,
	RunE: runDoctor,
}

var flagDoctorJSON bool

func init() {
	doctorCmd.Flags().BoolVar(&flagDoctorJSON, "json", false, "Output results as JSON")

	if err := ops.RegisterCommand("doctor", ops.GroupSupport, doctorCmd, "Diagnose the toolchain environment"); err != nil {
		panic(fmt.Sprintf("Failed to register doctor command: %v", err))
	}
}

const (
	checkOK   = "ok"
	checkWarn = "warn"
	checkFail = "fail"
)

// doctorCheck is one probe result.
type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// doctorProbeTimeout bounds the external tool probes. Version queries are
// fast; anything slower than this is itself a finding.
const doctorProbeTimeout = 10 * time.Second

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), doctorProbeTimeout)
	defer cancel()

	cfg, err := loadToolConfig()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	// Tool probes shell out and can each take a moment; run them in
	// parallel. Every probe writes only its own slot.
	checks := make([]doctorCheck, 7)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() error {
		checks[0] = probeTool(gctx, "git", cfg.GitBin(), "required to resolve repositories and staged files")
		return nil
	})
	g.Go(func() error {
		checks[1] = probeTool(gctx, "cargo", cfg.CargoBin(), "required by every pipeline stage")
		return nil
	})
	g.Go(func() error {
		checks[2] = probeRustup(gctx, cfg.RustupBin(), cfg.Run.AutofixChannel)
		return nil
	})
	g.Go(func() error {
		checks[3] = probeRepository(cwd)
		return nil
	})
	g.Go(func() error {
		checks[4] = probeProject(cwd)
		return nil
	})
	g.Go(func() error {
		root, inRepo := gitctx.ResolveRootLenient(cwd)
		if !inRepo {
			checks[5] = doctorCheck{Name: "manifest", Status: checkWarn, Detail: "no repository, nothing to check"}
			checks[6] = doctorCheck{Name: "hooks", Status: checkWarn, Detail: "no repository, nothing to check"}
			return nil
		}
		manifestPath, sourceDir, gitHooksDir := hookPaths(root, cfg)
		checks[5] = probeManifest(manifestPath)
		checks[6] = probeInstalledHooks(manifestPath, sourceDir, gitHooksDir, cfg.CargoBin())
		return nil
	})
	_ = g.Wait()

	failures := 0
	for _, c := range checks {
		if c.Status == checkFail {
			failures++
		}
	}

	out := cmd.OutOrStdout()
	if flagDoctorJSON {
		report := struct {
			Checks  []doctorCheck `json:"checks"`
			Healthy bool          `json:"healthy"`
		}{Checks: checks, Healthy: failures == 0}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		printChecks(out, checks)
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	return nil
}

func probeTool(ctx context.Context, name, bin, why string) doctorCheck {
	if _, err := exec.LookPath(bin); err != nil {
		return doctorCheck{Name: name, Status: checkFail, Detail: fmt.Sprintf("%s not found on PATH; %s", bin, why)}
	}
	if v := toolchain.ToolVersion(ctx, bin); v != "" {
		return doctorCheck{Name: name, Status: checkOK, Detail: fmt.Sprintf("%s %s", bin, v)}
	}
	return doctorCheck{Name: name, Status: checkOK, Detail: bin}
}

func probeRustup(ctx context.Context, bin, autofixChannel string) doctorCheck {
	rustup := toolchain.NewRustup(bin)
	if !rustup.Available() {
		return doctorCheck{Name: "rustup", Status: checkWarn,
			Detail: fmt.Sprintf("%s not found; stages that need a specific toolchain channel will be skipped", bin)}
	}
	channels, err := rustup.Channels(ctx)
	if err != nil {
		return doctorCheck{Name: "rustup", Status: checkWarn, Detail: fmt.Sprintf("could not list toolchains: %v", err)}
	}
	if !toolchain.HasChannel(channels, autofixChannel) {
		return doctorCheck{Name: "rustup", Status: checkWarn,
			Detail: fmt.Sprintf("%d toolchain(s) installed, %s missing; install it with 'rustup toolchain install %s' to enable autofix",
				len(channels), autofixChannel, autofixChannel)}
	}
	return doctorCheck{Name: "rustup", Status: checkOK,
		Detail: fmt.Sprintf("%d toolchain(s) installed, %s available", len(channels), autofixChannel)}
}

func probeRepository(cwd string) doctorCheck {
	root, inRepo := gitctx.ResolveRootLenient(cwd)
	if !inRepo {
		return doctorCheck{Name: "repository", Status: checkWarn,
			Detail: "not inside a git repository; 'cargohook run' falls back to the current directory"}
	}
	detail := root
	if branch, sha := gitctx.Head(root); branch != "" && len(sha) >= 8 {
		detail = fmt.Sprintf("%s (%s @ %s)", root, branch, sha[:8])
	}
	return doctorCheck{Name: "repository", Status: checkOK, Detail: detail}
}

func probeProject(cwd string) doctorCheck {
	proj := toolchain.DetectProject(cwd)
	if proj == nil {
		return doctorCheck{Name: "project", Status: checkWarn,
			Detail: "no Cargo.toml found; cargo stages will fail until one exists"}
	}
	switch {
	case proj.IsWorkspace:
		return doctorCheck{Name: "project", Status: checkOK, Detail: fmt.Sprintf("workspace root at %s", proj.RootPath)}
	case proj.WorkspaceRootPath != "":
		return doctorCheck{Name: "project", Status: checkOK,
			Detail: fmt.Sprintf("crate %s (member of workspace %s)", proj.Name, proj.WorkspaceRootPath)}
	default:
		return doctorCheck{Name: "project", Status: checkOK, Detail: fmt.Sprintf("crate %s at %s", proj.Name, proj.RootPath)}
	}
}

func probeManifest(manifestPath string) doctorCheck {
	manifest, err := hooks.Load(manifestPath)
	switch {
	case errors.Is(err, hooks.ErrManifestNotFound):
		return doctorCheck{Name: "manifest", Status: checkWarn,
			Detail: fmt.Sprintf("%s not found; the built-in default pipeline will run", manifestPath)}
	case err != nil:
		return doctorCheck{Name: "manifest", Status: checkFail, Detail: err.Error()}
	default:
		return doctorCheck{Name: "manifest", Status: checkOK,
			Detail: fmt.Sprintf("v%s, hooks: %s", manifest.Version, strings.Join(manifest.HookTypes(), ", "))}
	}
}

func probeInstalledHooks(manifestPath, sourceDir, gitHooksDir, cargoBin string) doctorCheck {
	manifest, err := hooks.Load(manifestPath)
	if err != nil {
		manifest = hooks.Default(cargoBin)
	}

	var missing, stale, healthy []string
	for _, st := range hooks.Status(sourceDir, gitHooksDir) {
		if len(manifest.Hooks[st.Name]) == 0 {
			continue
		}
		switch {
		case !st.Installed || !st.Executable || !st.Managed:
			missing = append(missing, st.Name)
		case !st.Current:
			stale = append(stale, st.Name)
		default:
			healthy = append(healthy, st.Name)
		}
	}

	switch {
	case len(missing) > 0:
		return doctorCheck{Name: "hooks", Status: checkWarn,
			Detail: fmt.Sprintf("not installed: %s; run 'cargohook hooks install'", strings.Join(missing, ", "))}
	case len(stale) > 0:
		return doctorCheck{Name: "hooks", Status: checkWarn,
			Detail: fmt.Sprintf("stale: %s; run 'cargohook hooks install' to refresh", strings.Join(stale, ", "))}
	case len(healthy) > 0:
		return doctorCheck{Name: "hooks", Status: checkOK,
			Detail: fmt.Sprintf("installed and current: %s", strings.Join(healthy, ", "))}
	default:
		return doctorCheck{Name: "hooks", Status: checkWarn, Detail: "manifest configures no hooks"}
	}
}

// statusBadge renders a check status with its emoji. The emoji are
// double-width, which is why the table below pads by display width.
func statusBadge(status string) string {
	switch status {
	case checkOK:
		return "✅ ok"
	case checkWarn:
		return "⚠️  warn"
	default:
		return "❌ fail"
	}
}

// padCell pads s with spaces to the given display width. Byte or rune counts
// would misalign the columns as soon as a badge emoji appears.
func padCell(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func printChecks(out io.Writer, checks []doctorCheck) {
	badgeWidth, nameWidth := 0, 0
	for _, c := range checks {
		if w := runewidth.StringWidth(statusBadge(c.Status)); w > badgeWidth {
			badgeWidth = w
		}
		if w := runewidth.StringWidth(c.Name); w > nameWidth {
			nameWidth = w
		}
	}
	for _, c := range checks {
		fmt.Fprintf(out, "%s  %s  %s\n",
			padCell(statusBadge(c.Status), badgeWidth),
			padCell(c.Name, nameWidth),
			c.Detail)
	}
}
