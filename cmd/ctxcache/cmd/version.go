package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophersatwork/ctxcache"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type versionInfo struct {
	Version      string `json:"version"`
	CacheVersion string `json:"cache_version"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

func getVersionInfo() versionInfo {
	return versionInfo{
		Version:      Version,
		CacheVersion: ctxcache.DefaultCacheVersion,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := getVersionInfo()
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ctxcache %s (cache format %s, %s, %s)\n",
				info.Version, info.CacheVersion, info.GoVersion, info.Platform)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	return cmd
}
