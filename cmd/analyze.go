package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"calltracker/internal/dto"
	"calltracker/internal/repository"
	"calltracker/internal/service"

	"github.com/spf13/cobra"
)

var (
	analyzeSymbolOverride string
	analyzeActionOverride string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <tweet-id>",
	Short: "Analyze a single post and print the stored record",
	Args:  cobra.ExactArgs(1),
	Run:   Analyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSymbolOverride, "symbol", "", "force the ticker symbol instead of extracting it")
	analyzeCmd.Flags().StringVar(&analyzeActionOverride, "action", "", "force the action (BUY or SELL)")
}

func Analyze(cmd *cobra.Command, args []string) {
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

	record, err := services.Analyzer.Analyze(ctx, &dto.AnalyzeRequest{
		TweetID:        args[0],
		SymbolOverride: analyzeSymbolOverride,
		ActionOverride: analyzeActionOverride,
	})
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render record: %v", err)
	}
	fmt.Println(string(out))
}
