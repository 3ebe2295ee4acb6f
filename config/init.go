package config

import (
	"github.com/caarlos0/env/v8"
	"github.com/rs/zerolog/log"
)

// ---------------------------

// Config is the streaming driver's configuration (spec §6): graph
// parameters, the streaming schedule, and the data/index file locations.
// Every field can be overridden by a STREAMVAMANA_-prefixed environment
// variable, e.g. STREAMVAMANA_R=32.
type Config struct {
	Debug bool `envDefault:"false"`

	// Graph parameters.
	R     int     `envDefault:"64"`
	L     int     `envDefault:"100"`
	Alpha float32 `envDefault:"1.2"`
	// DistFn selects "l2" or "mips".
	DistFn   string `envDefault:"l2"`
	DataType string `envDefault:"float32"`

	// Streaming schedule.
	NumThreads                  int     `envDefault:"1"`
	PointsToSkip                int     `envDefault:"0"`
	MaxPointsToInsert           int     `envDefault:"0"`
	BeginningIndexSize          int     `envDefault:"0"`
	PointsPerCheckpoint         int     `envDefault:"10000"`
	CheckpointsPerSnapshot      int     `envDefault:"1"`
	PointsToDeleteFromBeginning int     `envDefault:"0"`
	DoConcurrent                bool    `envDefault:"false"`
	StartDeletesAfter           int     `envDefault:"0"`
	StartPointNorm              float32 `envDefault:"0"`

	// File locations.
	DataPath        string `envDefault:""`
	IndexPathPrefix string `envDefault:""`
}

var Cfg Config

// ---------------------------

func init() {
	Cfg = Config{}
	opts := env.Options{RequiredIfNoDef: true, Prefix: "STREAMVAMANA_", UseFieldNameByDefault: true}
	if err := env.ParseWithOptions(&Cfg, opts); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse env")
	}
}
