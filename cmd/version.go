package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Release metadata of the face-consistency binary, injected at build time with
// -ldflags "-X github.com/kozaktomas/face-consistency/cmd.Version=v1.2.0 ...".
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		if mustGetBool(cmd, "short") {
			fmt.Println(Version)
			return
		}
		fmt.Printf("face-consistency %s\n", Version)
		fmt.Printf("  Commit:   %s\n", CommitSHA)
		fmt.Printf("  Built:    %s\n", BuildDate)
		fmt.Printf("  Face API: %s (%s)\n", cfg.FaceAPI.URL, cfg.FaceAPI.Model)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("short", false, "Print only the version number")
}
