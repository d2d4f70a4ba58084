package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/internal/logger"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Source string `short:"s" long:"source" env:"CITIES_SOURCE" description:"geonames settlement dump to parse" default:"cities15000.txt"`
	Gob    string `short:"o" long:"gob"    env:"CITIES_GOB"    description:"snapshot to write, next to the source by default"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	opts.Logger.Setup()

	if opts.Gob == "" {
		opts.Gob = strings.TrimSuffix(opts.Source, filepath.Ext(opts.Source)) + dataset.SnapshotExt
	}

	now := time.Now()
	t, err := dataset.Snapshot(opts.Source, opts.Gob)
	if err != nil {
		log.Fatal().Err(err).Str("source", opts.Source).Msg("Snapshot failed")
	}
	log.Info().
		Str("source", opts.Source).
		Str("gob", opts.Gob).
		Int("rows", t.Len()).
		Dur("elapsed", time.Since(now)).
		Msg("Snapshot written")
}
