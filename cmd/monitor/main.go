package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"citation-monitor/internal/config"
	"citation-monitor/internal/ingest"
	"citation-monitor/internal/repo"
	"citation-monitor/internal/services/monitor"
	"citation-monitor/internal/services/provider"
)

func main() {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		queriesFile = flag.String("queries", "", "Override path to the query catalog")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// An interrupt cancels the run context; the in-flight call finishes or
	// fails on its own and the run is marked failed before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repo.NewDB(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	repository := repo.NewRepository(pool)
	loader := ingest.NewLoader(repository)

	catalogPath := cfg.Monitor.QueriesFile
	if *queriesFile != "" {
		catalogPath = *queriesFile
	}

	queries, err := loader.LoadQueries(catalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load query catalog")
	}
	if err := loader.Sync(ctx, queries); err != nil {
		log.Fatal().Err(err).Msg("Failed to sync query catalog")
	}

	active := ingest.ActiveQueries(queries)
	providers := provider.Build(provider.Settings{
		OpenAIKey:       cfg.Providers.OpenAIKey,
		OpenAIModel:     cfg.Providers.OpenAIModel,
		AnthropicKey:    cfg.Providers.AnthropicKey,
		AnthropicModel:  cfg.Providers.AnthropicModel,
		AnthropicID:     cfg.Providers.AnthropicID,
		PerplexityKey:   cfg.Providers.PerplexityKey,
		PerplexityModel: cfg.Providers.PerplexityModel,
		DeepSeekKey:     cfg.Providers.DeepSeekKey,
		DeepSeekModel:   cfg.Providers.DeepSeekModel,
		GrokKey:         cfg.Providers.GrokKey,
	})

	if len(providers) == 0 {
		log.Fatal().Msg("No providers initialized, check API keys in the environment")
	}
	if len(active) == 0 {
		log.Fatal().Str("catalog", catalogPath).Msg("No active queries configured")
	}

	orch := monitor.NewOrchestrator(repository, providers, active, cfg.Monitor.TargetDomain, cfg.Monitor.QueryPause)

	summary, err := orch.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("run_id", orch.RunID()).Msg("Run failed")
		os.Exit(1)
	}

	// Individual query errors don't fail the process; the run completed.
	log.Info().
		Str("run_id", orch.RunID()).
		Int("attempted", summary.Attempted).
		Int("stored", summary.Stored).
		Int("skipped", summary.Skipped).
		Int("errored", summary.Errored).
		Msg("Monitor finished")
}
