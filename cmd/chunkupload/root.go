package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yourname/chunk_upload/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "chunkupload",
	Short: "Chunked file upload server and client",
	Long: `chunkupload accepts files uploaded in chunks over HTTP and reassembles them
on the local disk. The same binary pushes local files to a running server.`,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config (default $CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().String("log_level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL or info)")

	// CHUNKUPLOAD_SERVER, CHUNKUPLOAD_CHUNK_SIZE и т.д. для клиентских команд.
	viper.SetEnvPrefix("chunkupload")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initLogging(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("log_level")
	return logger.SetLevelString(level)
}
