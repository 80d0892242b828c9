package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// rodModule is reported so bug reports show which CDP client drove Chrome.
const rodModule = "github.com/go-rod/rod"

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	Rod       string `json:"rod"`
}

// currentBuildInfo resolves build information. ldflags values win over
// the module build info embedded by the Go toolchain.
func currentBuildInfo() buildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		info = nil
	}
	return resolveBuildInfo(info, version, commit, date)
}

func resolveBuildInfo(info *debug.BuildInfo, ldVersion, ldCommit, ldDate string) buildInfo {
	bi := buildInfo{
		Version:   "(devel)",
		Commit:    "unknown",
		Date:      "unknown",
		GoVersion: runtime.Version(),
		Rod:       "unknown",
	}

	if info != nil {
		if info.Main.Version != "" {
			bi.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				bi.Commit = s.Value
				if len(bi.Commit) > 7 {
					bi.Commit = bi.Commit[:7]
				}
			case "vcs.time":
				bi.Date = s.Value
			}
		}
		for _, dep := range info.Deps {
			if dep.Path == rodModule {
				bi.Rod = dep.Version
			}
		}
	}

	if ldVersion != "" {
		bi.Version = ldVersion
	}
	if ldCommit != "" {
		bi.Commit = ldCommit
	}
	if ldDate != "" {
		bi.Date = ldDate
	}
	return bi
}

// getVersion returns the orphanscan version string.
func getVersion() string {
	return currentBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, build date and browser driver version of orphanscan.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOutput, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return writeBuildInfo(cmd.OutOrStdout(), currentBuildInfo(), jsonOutput)
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output version information in JSON format")
	return cmd
}

func writeBuildInfo(out io.Writer, bi buildInfo, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(bi)
	}
	fmt.Fprintf(out, "orphanscan version %s\n", bi.Version)
	fmt.Fprintf(out, "  commit: %s\n", bi.Commit)
	fmt.Fprintf(out, "  built:  %s\n", bi.Date)
	fmt.Fprintf(out, "  go:     %s\n", bi.GoVersion)
	fmt.Fprintf(out, "  rod:    %s\n", bi.Rod)
	return nil
}
