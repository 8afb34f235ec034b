package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yourname/chunk_upload/pkg/uploadclient"
)

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Upload a local file to the server in chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)

	addClientFlags(pushCmd)
	pushCmd.Flags().String("name", "", "File name on the server (default: base name of <file>)")
	pushCmd.Flags().String("chunk_size", "5MiB", "Chunk size, e.g. 512KiB, 5MiB, 10MB")
	pushCmd.Flags().Int("concurrency", 4, "Chunks in flight at once")

	viper.SetDefault("chunk_size", "5MiB")
	viper.SetDefault("concurrency", 4)
}

// addClientFlags: общие флаги команд, которые ходят на сервер.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("server", "http://localhost:8080", "Server base URL (or set CHUNKUPLOAD_SERVER)")
	cmd.Flags().Int("retries", 3, "Retries per request on network errors and 5xx")
	cmd.Flags().Bool("no_progress", false, "Do not draw a progress bar")

	viper.SetDefault("server", "http://localhost:8080")
	viper.SetDefault("retries", 3)
}

func newClient(cmd *cobra.Command, quiet bool) *uploadclient.Client {
	f := NewFlagLoader(cmd)

	var progress io.Writer = cmd.OutOrStdout()
	if quiet || f.Bool("no_progress") {
		progress = nil
	}
	return uploadclient.New(f.String("server"), uploadclient.Config{
		RetryMax: f.Int("retries"),
		Progress: progress,
	})
}

func runPush(cmd *cobra.Command, args []string) error {
	f := NewFlagLoader(cmd)

	chunkSize, err := humanize.ParseBytes(f.String("chunk_size"))
	if err != nil {
		return fmt.Errorf("--chunk_size: %w", err)
	}
	if chunkSize == 0 || chunkSize > math.MaxInt64 {
		return fmt.Errorf("--chunk_size: must be between 1 byte and %s", humanize.IBytes(math.MaxInt64))
	}

	start := time.Now()
	res, err := newClient(cmd, false).PushFile(cmd.Context(), args[0], uploadclient.PushOptions{
		Name:        f.String("name"),
		ChunkSize:   int64(chunkSize),
		Concurrency: f.Int("concurrency"),
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	rate := float64(res.Size) / max(elapsed.Seconds(), 1e-3)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s in %d chunks, assembled %s (%s/s)\n",
		res.Key,
		humanize.IBytes(uint64(res.Size)),
		res.Chunks,
		humanize.IBytes(uint64(res.ArtifactSize)),
		humanize.IBytes(uint64(rate)),
	)
	if res.ArtifactSize != res.Size {
		fmt.Fprintf(os.Stderr, "warning: server assembled %d bytes, local file has %d\n", res.ArtifactSize, res.Size)
	}
	return nil
}
