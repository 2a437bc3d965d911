package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/face-consistency/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "face-consistency",
	Short: "Verify that every photo of a registrant shows the same person",
	Long: `Face Consistency reads registrant photos captured across days and shifts,
extracts one face per photo and checks that all of them belong to the same person.
Outlier photos are isolated by embedding clustering, consecutive photos are verified
pairwise, and color-cast batches are re-checked on histogram-equalized crops.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if lvl := mustGetString(cmd, "log-level"); lvl != "" {
			cfg.Log.Level = lvl
		}
		return config.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
