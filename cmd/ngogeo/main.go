package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	territories "github.com/paulstuart/go-territories"
	"github.com/paulstuart/go-territories/dataset"
	"github.com/paulstuart/go-territories/internal/config"
	"github.com/paulstuart/go-territories/internal/logger"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"NGOGEO_CONFIG" description:"Path to configuration file"`
	DataDir    string `short:"d" long:"data"   env:"NGOGEO_DATA"   description:"geonames data directory, overrides the configuration"`
}

var opts Options

func main() {
	// a missing .env is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Ignoring .env")
	}

	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("locate", "Locate a point", "Resolve a coordinate to the deepest territory holding it", &locateCmd{})
	parser.AddCommand("search", "Search by name", "Find the settlements, postal codes or named places closest to a name", &searchCmd{})
	parser.AddCommand("around", "Search around a point", "List the settlements within a radius of a coordinate", &aroundCmd{})
	parser.AddCommand("bbox", "Territory bounding box", "Print a territory bounding box, optionally querying Overpass inside it", &bboxCmd{})
	parser.AddCommand("ip", "Locate an address", "Resolve an IP address with a GeoIP2 City database", &ipCmd{})
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		opts.Logger.Setup()
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return nil, err
		}
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	return cfg, nil
}

func loadWorld() (*territories.World, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	w, err := territories.NewRegistry(dataset.Dir{Root: cfg.DataDir}).World(cfg.World())
	if err != nil {
		return nil, nil, err
	}
	return w, cfg, nil
}
