package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vamanadb/streamvamana/config"
	"github.com/vamanadb/streamvamana/driver"
	"github.com/vamanadb/streamvamana/vectorio"
)

// ---------------------------

func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	// ---------------------------
	// Default level is info, unless debug flag is present
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.Cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Interface("config", config.Cfg).Msg("environment config")
	}
}

func init() {
	setupLogging()
}

// ---------------------------

func main() {
	log.Info().Str("version", "0.0.1").Msg("starting streamvamana")

	cfg := driver.Config{
		R:                           config.Cfg.R,
		L:                           config.Cfg.L,
		Alpha:                       config.Cfg.Alpha,
		NumThreads:                  config.Cfg.NumThreads,
		PointsToSkip:                config.Cfg.PointsToSkip,
		MaxPointsToInsert:           config.Cfg.MaxPointsToInsert,
		BeginningIndexSize:          config.Cfg.BeginningIndexSize,
		PointsPerCheckpoint:         config.Cfg.PointsPerCheckpoint,
		CheckpointsPerSnapshot:      config.Cfg.CheckpointsPerSnapshot,
		PointsToDeleteFromBeginning: config.Cfg.PointsToDeleteFromBeginning,
		DoConcurrent:                config.Cfg.DoConcurrent,
		StartDeletesAfter:           config.Cfg.StartDeletesAfter,
		StartPointNorm:              config.Cfg.StartPointNorm,
		DataType:                    vectorio.DataType(config.Cfg.DataType),
		DistFn:                      config.Cfg.DistFn,
		DataPath:                    config.Cfg.DataPath,
		IndexPathPrefix:             config.Cfg.IndexPathPrefix,
	}

	header, f, err := vectorio.ReadHeader(config.Cfg.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read data file header")
	}
	f.Close()
	log.Info().Int("npts", header.NumPoints).Int("dim", header.Dim).Msg("data file header")

	d, err := driver.New(cfg, header.Dim, header.NumPoints)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct driver")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Info().Str("signal", sig.String()).Msg("shutting down streamvamana")
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("streaming run failed")
	}
	log.Info().Msg("streaming run complete")
}
