package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/rtm0/hfrtotals/internal/config"
	"github.com/rtm0/hfrtotals/internal/convert"
	"github.com/rtm0/hfrtotals/internal/grid"
)

var (
	configFile = flag.String("config", "", "path to a YAML configuration file with global attributes and thresholds")
	gridFile   = flag.String("grid", "", "path to a lon,lat grid file; overrides the config file")
	outDir     = flag.String("out", "", "directory to save netCDF files to; overrides the config file")
	method     = flag.String("method", "", "totals method, oi or lsq; overrides the config file")
	domain     = flag.String("domain", "", "domain name used in output file names; defaults to TUV.DomainName")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn or error")
	verify     = flag.Bool("verify", false, "reopen each written file and log its summary")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file.mat|glob ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			logger.Error("Could not load configuration", "err", err)
			os.Exit(1)
		}
	}
	override(&cfg.Grid, *gridFile)
	override(&cfg.OutputDir, *outDir)
	override(&cfg.Method, *method)
	override(&cfg.Domain, *domain)
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "err", err)
		os.Exit(2)
	}

	files, err := expand(flag.Args())
	if err != nil {
		logger.Error("Invalid input pattern", "err", err)
		os.Exit(2)
	}
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	g, err := grid.Load(cfg.Grid)
	if err != nil {
		logger.Error("Could not load grid", "err", err)
		os.Exit(1)
	}
	rows, cols := g.Shape()
	logger.Info("Grid loaded", "file", cfg.Grid, "lat", rows, "lon", cols)

	c, err := convert.New(cfg, g, logger, convert.WithVerify(*verify))
	if err != nil {
		logger.Error("Could not create converter", "err", err)
		os.Exit(1)
	}
	written, err := c.ConvertAll(files)
	if err != nil {
		logger.Error("Conversion failed", "err", err)
		os.Exit(1)
	}
	logger.Info("done", "files", len(files), "written", len(written), "skipped", len(files)-len(written))
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// expand resolves glob patterns and returns the matching files sorted. An
// argument matching nothing is kept as given and later skipped as unreadable.
func expand(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, err)
		}
		if matches == nil {
			matches = []string{arg}
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}
