/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/cargohook/cargohook/internal/ops"
	"github.com/cargohook/cargohook/pkg/buildinfo"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show cargohook version information",
	Long: `Show the version of the cargohook binary, where that version came from,
and the build environment. Use --extended for the VCS revision the binary
was built from.`,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().Bool("extended", false, "Show detailed build information")
	versionCmd.Flags().Bool("json", false, "Output version information in JSON format")

	if err := ops.RegisterCommand("version", ops.GroupSupport, versionCmd, "Show cargohook version information"); err != nil {
		panic(fmt.Sprintf("Failed to register version command: %v", err))
	}
}

// resolveVersion returns the binary version and which source supplied it, in
// priority order: -ldflags override, module version stamped by the toolchain,
// then the built-in default.
func resolveVersion() (version, source string) {
	if buildinfo.BinaryVersion != "" && buildinfo.BinaryVersion != "dev" {
		return buildinfo.BinaryVersion, "ldflags"
	}
	if v := buildinfo.ModuleVersion(); v != "" && v != "(devel)" {
		return v, "module"
	}
	return buildinfo.BinaryVersion, "default"
}

func runVersion(cmd *cobra.Command, args []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	out := cmd.OutOrStdout()
	version, source := resolveVersion()

	commit := buildinfo.VCSRevision()
	shortCommit := "unknown"
	if len(commit) >= 8 {
		shortCommit = commit[:8]
	}

	if jsonOutput {
		versionInfo := map[string]interface{}{
			"version":   version,
			"source":    source,
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS,
			"arch":      runtime.GOARCH,
		}
		if extended {
			versionInfo["gitCommit"] = shortCommit
		}
		jsonData, err := json.MarshalIndent(versionInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	}

	fmt.Fprintf(out, "cargohook %s\n", version)
	fmt.Fprintf(out, "Source: %s\n", source)
	if extended {
		fmt.Fprintf(out, "Git commit: %s\n", shortCommit)
	}
	fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	return nil
}
