package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appanalyze "github.com/antmicro/dram-power-analysis/internal/application/analyze"
	aiopenai "github.com/antmicro/dram-power-analysis/internal/infra/ai/openai"
	"github.com/antmicro/dram-power-analysis/internal/infra/httpserver"
	"github.com/antmicro/dram-power-analysis/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve written report files and run history over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		hist, histDB := openHistory(ctx)
		var analyzeSvc *appanalyze.Service
		if cfg.AI.APIKey != "" {
			analyzeSvc = appanalyze.NewService(aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.Model))
		}

		checkers := map[string]middleware.HealthChecker{
			"reports": &middleware.ReportDirHealthChecker{Dir: cfg.Report.OutDir},
		}
		if histDB != nil {
			defer histDB.Close()
			checkers["history"] = &middleware.DatabaseHealthChecker{DB: histDB}
		}

		handler := httpserver.NewRouter(cfg.Report.OutDir, hist, analyzeSvc, checkers, logger)
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("report server listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-stop:
		}
		logger.Info("shutting down report server")

		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx2)
	},
}
