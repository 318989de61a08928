package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo holds version information injected at build time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate, GoVersion: runtime.Version()}
			if cliCtx, err := GetCLIContext(cmd); err == nil && cliCtx.JSON() {
				return printJSON(cmd, info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sessionctl %s (commit: %s, built: %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion)
			return nil
		},
	}
}

//Personal.AI order the ending
