package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"calltracker/internal/repository"
	"calltracker/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one batch refresh over all tracked tickers and exit",
	Run:   Refresh,
}

func Refresh(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer appDep.Close()

	repo, err := repository.NewRepository(appDep.cfg, appDep.log)
	if err != nil {
		log.Fatalf("Failed to create repository: %v", err)
	}

	services := service.NewService(appDep.cfg, appDep.log, appDep.kvStore, appDep.cache, repo)

	summary, err := services.Refresher.RefreshAll(ctx)
	if err != nil {
		log.Fatalf("Refresh failed: %v", err)
	}
	appDep.log.Info("Refresh complete",
		zap.Int("tickers", summary.Tickers),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors))
}
