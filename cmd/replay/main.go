package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/cfg"
	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/providers"
	"bigsmall-bot/internal/replay"
)

func main() {
	var (
		dataPath   = flag.String("data", "draws.csv", "Path to historical draw file (.csv or .json)")
		outputPath = flag.String("output", "replay-results", "Output directory for reports")
		warmup     = flag.Int("warmup", 20, "Draws consumed as history before the first prediction")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration load failed")
	}

	draws, err := replay.LoadDraws(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("draw data load failed")
	}

	ens := ensemble.New(settings.EnsembleConfig(), providers.Default())
	engine := replay.NewEngine(ens, *warmup)
	results, err := engine.Run(draws, settings.HistorySize)
	if err != nil {
		log.Fatal().Err(err).Msg("replay failed")
	}

	if err := replay.NewReporter(results, *outputPath).GenerateReport(); err != nil {
		log.Fatal().Err(err).Msg("report generation failed")
	}

	fmt.Printf("Replayed %d rounds: %.2f%% win rate (reports in %s)\n",
		results.TotalRounds, results.WinRate*100, *outputPath)
}
