package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/loader"
	"github.com/xtxerr/seisfetch/internal/logging"
	"github.com/xtxerr/seisfetch/internal/query"
)

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool

	index    string
	pageSize int
	duckdb   string
	stations string
	files    string
}

func (c *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file path")
	fs.StringVar(&c.envFile, "env-file", "", "dotenv file to load (default: .env if present)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.BoolVar(&c.logJSON, "log-json", false, "log as JSON")

	fs.StringVar(&c.index, "index", "", "index backend: dynamodb, duckdb, parquet")
	fs.IntVar(&c.pageSize, "page-size", 0, "items per index request (0 = backend default)")
	fs.StringVar(&c.duckdb, "duckdb", "", "DuckDB index file")
	fs.StringVar(&c.stations, "stations", "", "stations parquet snapshot")
	fs.StringVar(&c.files, "files", "", "files parquet snapshot")
}

// load reads the environment and config file, applies flag overrides,
// validates the result and initializes logging.
func (c *commonFlags) load(fs *pflag.FlagSet) (*loader.Config, error) {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", c.envFile, errors.Mark(err, errors.ErrInvalidConfig))
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := loader.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	if fs.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if fs.Changed("log-json") {
		cfg.Log.JSON = c.logJSON
	}
	if fs.Changed("index") {
		cfg.Index.Backend = c.index
	}
	if fs.Changed("page-size") {
		cfg.Index.PageSize = c.pageSize
	}
	if fs.Changed("duckdb") {
		cfg.Index.DuckDB.Path = c.duckdb
	}
	if fs.Changed("stations") {
		cfg.Index.Parquet.Stations = c.stations
	}
	if fs.Changed("files") {
		cfg.Index.Parquet.Files = c.files
	}

	return cfg, nil
}

func initLogging(cfg *loader.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.NewValidation("log.level", err.Error())
	}
	logging.Init(level, cfg.Log.JSON)
	return nil
}

// queryFlags hold the station and time query. A flag that is not given
// leaves its parameter unconstrained.
type queryFlags struct {
	start, end                     string
	network, station, loc, channel string
	minLat, maxLat                 float64
	minLon, maxLon                 float64
}

func (q *queryFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&q.start, "start", "", "first day, YYYY-MM-DD")
	fs.StringVar(&q.end, "end", "", "last day, YYYY-MM-DD (inclusive)")
	fs.StringVarP(&q.network, "network", "n", "", "network code; * is a prefix wildcard")
	fs.StringVarP(&q.station, "station", "s", "", "station code; * is a prefix wildcard")
	fs.StringVarP(&q.loc, "location", "l", "", "location code")
	fs.StringVarP(&q.channel, "channel", "c", "", "channel code, e.g. HH*")
	fs.Float64Var(&q.minLat, "min-lat", 0, "minimum latitude")
	fs.Float64Var(&q.maxLat, "max-lat", 0, "maximum latitude")
	fs.Float64Var(&q.minLon, "min-lon", 0, "minimum longitude")
	fs.Float64Var(&q.maxLon, "max-lon", 0, "maximum longitude")
}

// params converts the flags that were given into query parameters.
func (q *queryFlags) params(fs *pflag.FlagSet) (query.Params, error) {
	var p query.Params

	if fs.Changed("start") {
		t, err := query.Date(q.start)
		if err != nil {
			return p, errors.NewInvalidValue("start", q.start, err.Error())
		}
		p.StartTime = &t
	}
	if fs.Changed("end") {
		t, err := query.Date(q.end)
		if err != nil {
			return p, errors.NewInvalidValue("end", q.end, err.Error())
		}
		p.EndTime = &t
	}

	str := func(name string, v string) *string {
		if fs.Changed(name) {
			return query.Ptr(v)
		}
		return nil
	}
	num := func(name string, v float64) *float64 {
		if fs.Changed(name) {
			return query.Ptr(v)
		}
		return nil
	}

	p.Network = str("network", q.network)
	p.Station = str("station", q.station)
	p.Location = str("location", q.loc)
	p.Channel = str("channel", q.channel)
	p.MinLatitude = num("min-lat", q.minLat)
	p.MaxLatitude = num("max-lat", q.maxLat)
	p.MinLongitude = num("min-lon", q.minLon)
	p.MaxLongitude = num("max-lon", q.maxLon)

	return p, p.Validate()
}

// parseFlags parses args and maps pflag errors to usage errors. help is
// true when --help was given and the command should stop.
func parseFlags(fs *pflag.FlagSet, args []string) (help bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, errors.NewValidation("flags", err.Error())
	}
	if fs.NArg() > 0 {
		return false, errors.NewValidation("flags", fmt.Sprintf("unexpected arguments %v", fs.Args()))
	}
	return false, nil
}

func logConfig(cfg *loader.Config) {
	logging.Component("cli").Debug("configuration",
		slog.String("index", cfg.Index.Backend),
		slog.String("store", cfg.Store.Backend),
		slog.Int("page_size", cfg.Index.PageSize))
}
