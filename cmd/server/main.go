// Command server runs the scan orchestrator API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/snlscan/snlscan/pkg/api"
	"github.com/snlscan/snlscan/pkg/config"
	"github.com/snlscan/snlscan/pkg/detect"
	"github.com/snlscan/snlscan/pkg/discover"
	"github.com/snlscan/snlscan/pkg/duration"
	"github.com/snlscan/snlscan/pkg/interpret"
	"github.com/snlscan/snlscan/pkg/metrics"
	"github.com/snlscan/snlscan/pkg/orchestrator"
	"github.com/snlscan/snlscan/pkg/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.ParseFlags(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logger.Info("scan history loaded", "scans", st.Len(), "dir", cfg.DataDir)

	policy := detect.DefaultPolicy()
	if cfg.PolicyFile != "" {
		policy, err = detect.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			return err
		}
	}

	if cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, findings will use placeholder explanations")
	}
	interpreter := interpret.NewClient(cfg.OpenAIKey,
		interpret.WithModel(cfg.OpenAIModel),
		interpret.WithBaseURL(cfg.OpenAIBaseURL),
		interpret.WithLogger(logger),
	)

	m := metrics.New()
	orch := orchestrator.New(
		st,
		discover.NewKatana(cfg.KatanaBin, logger),
		detect.NewNuclei(cfg.NucleiBin, cfg.TemplatesDir, policy, logger),
		interpreter,
		orchestrator.Options{
			Cap:         cfg.TopFindings,
			Placeholder: interpret.Placeholder,
			Logger:      logger,
			Metrics:     m,
		},
	)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.New(orch, m.Handler()).Routes(),
		ReadTimeout:  duration.ServerRead,
		WriteTimeout: duration.ServerWrite,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	// Running pipelines keep their jobs consistent on disk; give them the
	// same grace, then exit regardless.
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pipelines still running at exit", "error", err)
	}
	return nil
}
