package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <name>",
	Short: "Download an assembled file from the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	addClientFlags(fetchCmd)
	fetchCmd.Flags().StringP("output", "o", "", "Output path, - for stdout (default: <name> in the current directory)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	name := args[0]
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = filepath.Base(name)
	}

	// Прогресс в stdout смешался бы с данными.
	client := newClient(cmd, out == "-")

	body, err := client.Fetch(cmd.Context(), name)
	if err != nil {
		return err
	}
	defer body.Close()

	var n int64
	if out == "-" {
		n, err = io.Copy(cmd.OutOrStdout(), body)
	} else {
		n, err = saveFile(out, body)
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	if out != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s written to %s\n", name, humanize.IBytes(uint64(n)), out)
	}
	return nil
}

// saveFile пишет r во временный файл рядом с path и переименовывает его только
// после полной записи. При ошибке на диске не остаётся ни обрезанного файла, ни временного.
func saveFile(path string, r io.Reader) (n int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if n, err = io.Copy(tmp, r); err != nil {
		return n, err
	}
	if err = tmp.Close(); err != nil {
		return n, err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return n, err
	}
	return n, os.Rename(tmp.Name(), path)
}
