package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/yourname/chunk_upload/internal/app/uploadhttp"
	"github.com/yourname/chunk_upload/internal/config"
	"github.com/yourname/chunk_upload/internal/debug"
	"github.com/yourname/chunk_upload/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen_addr", "", "Upload API listen address (overrides config)")
	serveCmd.Flags().String("debug_addr", "", "Metrics/pprof listen address, empty disables (overrides config)")
	serveCmd.Flags().String("upload_dir", "", "Directory for parts and assembled files (overrides config)")
	serveCmd.Flags().String("completion", "", "Completion mode: declared or verified (overrides config)")
	serveCmd.Flags().Bool("strict", true, "Refuse to assemble uploads with missing parts (overrides config)")
}

// runServe поднимает API и служебный порт и обеспечивает корректное завершение по сигналу.
func runServe(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	f := NewFlagLoader(cmd)
	f.OverrideString("listen_addr", &cfg.ListenAddr)
	f.OverrideString("debug_addr", &cfg.DebugAddr)
	f.OverrideString("upload_dir", &cfg.UploadDir)
	f.OverrideString("completion", &cfg.Completion)
	f.OverrideBool("strict", &cfg.Strict)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !f.Changed("log_level") {
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			return err
		}
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, SampleRate: 1.0}); err != nil {
			logger.Warn().Err(err).Msg("sentry init failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	handler, srv, err := uploadhttp.NewServer(cfg)
	if err != nil {
		return err
	}
	if err := srv.Parts.EnsureDir(); err != nil {
		return err
	}

	stopGC := srv.StartGC()
	defer stopGC()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var debugServer *http.Server
	if cfg.DebugAddr != "" {
		debugServer = &http.Server{Addr: cfg.DebugAddr, Handler: debug.Mux(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.DebugAddr).Msg("debug server failed")
			}
		}()
	}

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	debug.SetReady()
	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("debug_addr", cfg.DebugAddr).
		Str("upload_dir", cfg.UploadDir).
		Str("completion", cfg.Completion).
		Bool("strict", cfg.Strict).
		Dur("gc_ttl", cfg.GCTTL).
		Dur("gc_interval", cfg.GCInterval).
		Msg("upload server listening")

	select {
	case err := <-errCh:
		debug.SetNotReady()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	// Сценарий graceful shutdown при получении SIGTERM/SIGINT.
	debug.SetNotReady()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("upload server shutdown error")
	}
	if debugServer != nil {
		if err := debugServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("debug server shutdown error")
		}
	}
	return nil
}
