package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/varun/sleuth/internal/approval"
	"github.com/varun/sleuth/internal/engine"
	"github.com/varun/sleuth/internal/gateway"
	"github.com/varun/sleuth/internal/governance"
	"github.com/varun/sleuth/internal/observability"
	"github.com/varun/sleuth/internal/orchestrator"
	"github.com/varun/sleuth/internal/reasoning"
	"github.com/varun/sleuth/internal/repo"
	"github.com/varun/sleuth/internal/store"
	"github.com/varun/sleuth/internal/tools"
	"github.com/varun/sleuth/internal/verify"
	"github.com/varun/sleuth/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and background plan runner",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig(configPath)

	if cfg.Orchestrator.SecretKey == "" {
		log.Fatal("orchestrator.secret_key is required: plans cannot be approved without it")
	}

	logger := observability.NewLogger()

	planStore, err := store.NewPlanStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer planStore.Close()

	repoSvc := repo.NewService(cfg.App.Workspace)

	llm := newModel(cfg)

	prompts := reasoning.NewPromptManager("./prompts")
	reasoner := reasoning.NewClient(llm, prompts, logger)
	reasoner.PlanContextChars = cfg.Limits.PlanContextChars
	reasoner.AnalysisContextChars = cfg.Limits.AnalysisContextChars

	registry := tools.NewRegistry()
	registry.Register(tools.NewSearchTool(repoSvc, cfg.Limits.MaxSearchHits))
	registry.Register(tools.NewScanTool(repoSvc, cfg.Limits.MaxFindings))
	registry.Register(tools.NewReadFilesTool(repoSvc))
	registry.Register(tools.NewAnalyzeTool(reasoner))

	gov := governance.NewDefaultPolicyEngine()
	// Investigations read; they never write or escape the snapshot.
	_ = gov.DenyArguments(`\.\./`)
	_ = gov.DenyArguments(`(?i)rm\s+-rf`)

	adapter := tools.NewAdapter(registry, logger)
	verifier := verify.NewVerifier(logger)

	eng := engine.New(planStore, adapter, verifier, gov, repoSvc, logger)
	eng.AnalysisContextChars = cfg.Limits.AnalysisContextChars

	gate := approval.NewGate(cfg.Orchestrator.SecretKey)

	orch := orchestrator.New(planStore, gate, eng, repoSvc, reasoner, registry, logger)
	orch.PlanContextChars = cfg.Limits.PlanContextChars
	orch.AsyncExecution = cfg.Orchestrator.AsyncExecution

	srv := gateway.NewServer(&gateway.Handler{Orchestrator: orch}, cfg.Server.Listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Orchestrator.AsyncExecution {
		runner := engine.NewRunner(eng, planStore)
		go runner.Start(ctx)
	}

	// Live resource dashboard (1-second updates).
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
			}
		}
	}()

	go func() {
		log.Printf("HTTP API listening on %s", cfg.Server.Listen)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	observability.CleanupTerminal()
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}

// newModel builds the reasoning backend from the first enabled provider.
func newModel(cfg *config.Config) llms.Model {
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	var err error
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented", pName)
	}
	if err != nil {
		log.Fatal(err)
	}
	return llm
}
