// Package convert turns HFRProgs total vector MAT files into CF/NCEI gridded
// netCDF files.
package convert

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/rtm0/hfrtotals/internal/config"
	"github.com/rtm0/hfrtotals/internal/fileutil"
	"github.com/rtm0/hfrtotals/internal/grid"
	"github.com/rtm0/hfrtotals/internal/ncdf"
	"github.com/rtm0/hfrtotals/internal/tuv"
)

// DefaultDomain names output files when neither the configuration nor the
// TUV struct provide a domain.
const DefaultDomain = "MARA"

// DataVariables are the gridded variables of every output file, in order.
var DataVariables = []string{"u", "v", "u_err", "v_err", "uv_covariance", "num_radials"}

// LoadFunc reads totals from a file.
type LoadFunc func(path string, m tuv.Method) (*tuv.Totals, error)

// Converter converts totals files onto one grid with one configuration.
type Converter struct {
	cfg    *config.Config
	method tuv.Method
	grid   *grid.Grid
	logger *slog.Logger
	now    func() time.Time
	load   LoadFunc
	verify bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithClock sets the clock used for date_created and date_modified.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

// WithLoader replaces tuv.Load.
func WithLoader(load LoadFunc) Option {
	return func(c *Converter) { c.load = load }
}

// WithVerify reopens every written file and logs its summary.
func WithVerify(verify bool) Option {
	return func(c *Converter) { c.verify = verify }
}

// New creates a converter. The method and thresholds of cfg are checked
// here so that configuration mistakes fail before any file is read.
func New(cfg *config.Config, g *grid.Grid, logger *slog.Logger, opts ...Option) (*Converter, error) {
	m, err := cfg.MethodValue()
	if err != nil {
		return nil, err
	}
	for name := range cfg.Thresholds {
		if !slices.Contains(DataVariables, name) {
			return nil, fmt.Errorf("threshold for unknown variable %q", name)
		}
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory not set")
	}
	c := &Converter{
		cfg:    cfg,
		method: m,
		grid:   g,
		logger: logger,
		now:    time.Now,
		load:   tuv.Load,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ConvertAll converts paths one after another. Files with invalid input are
// logged and skipped; any other error stops the batch. It returns the files
// written so far.
func (c *Converter) ConvertAll(paths []string) ([]string, error) {
	var written []string
	for _, path := range paths {
		out, err := c.Convert(path)
		switch {
		case errors.Is(err, tuv.ErrUnreadable):
			c.logger.Error("MAT file could not be loaded", "file", filepath.Base(path), "err", err)
		case errors.Is(err, tuv.ErrInvalidInput):
			c.logger.Error("MAT file missing variable needed to create netCDF file", "file", filepath.Base(path), "err", err)
		case err != nil:
			return written, err
		default:
			written = append(written, out)
		}
	}
	return written, nil
}

// Convert converts one MAT file and returns the path of the netCDF file.
func (c *Converter) Convert(path string) (string, error) {
	ds, name, err := c.Dataset(path)
	if err != nil {
		return "", err
	}
	fname := filepath.Base(path)

	if err := fileutil.CreateDir(c.cfg.OutputDir); err != nil {
		return "", err
	}
	out := filepath.Join(c.cfg.OutputDir, name)
	c.logger.Debug("Saving dataset to netCDF file", "file", fname, "out", out)
	if err := ncdf.Write(out, ds, ncdf.DefaultEncoding(ds)); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	c.logger.Info("netCDF file successfully created", "file", fname, "out", out)

	if c.verify {
		summary, err := ncdf.Summarize(out)
		if err != nil {
			return "", fmt.Errorf("verify %s: %w", out, err)
		}
		c.logger.Info("netCDF summary", append([]any{"out", out}, summary...)...)
	}
	return out, nil
}

// Dataset reads path and builds the output dataset in memory. It returns the
// dataset and the output file name.
func (c *Converter) Dataset(path string) (*ncdf.Dataset, string, error) {
	fname := filepath.Base(path)
	t, err := c.load(path, c.method)
	if err != nil {
		return nil, "", err
	}
	switch {
	case t.Params == nil:
		return nil, "", fmt.Errorf("%s: processing parameters: %w", fname, tuv.ErrMissingField)
	case t.Params.Method() != c.method:
		return nil, "", fmt.Errorf("%s: %s parameters, want %s: %w", fname, t.Params.Method(), c.method, tuv.ErrMissingField)
	}
	c.logger.Debug("MAT file successfully loaded", "file", fname, "vectors", t.Len())

	ts, err := fileutil.TimestampFromFilename(path)
	if err != nil {
		if t.TimeStamp.IsZero() {
			return nil, "", fmt.Errorf("%s: observation time: %v: %w", fname, err, tuv.ErrMissingField)
		}
		ts = t.TimeStamp
	}

	c.logger.Debug("Gridding data to 2d grid", "file", fname)
	ds, err := c.assemble(t, ts)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", fname, err)
	}
	if err := ds.Mask(c.cfg.Thresholds); err != nil {
		return nil, "", err
	}

	c.logger.Debug("Assigning global attributes to dataset", "file", fname)
	c.setGlobalAttributes(ds, ts)

	return ds, fileName(c.domain(t), ts), nil
}

func (c *Converter) domain(t *tuv.Totals) string {
	switch {
	case c.cfg.Domain != "":
		return c.cfg.Domain
	case t.DomainName != "":
		return t.DomainName
	}
	return DefaultDomain
}

func fileName(domain string, ts time.Time) string {
	return fmt.Sprintf("RU_%s_%s.nc", domain, ts.UTC().Format("20060102T150405Z"))
}

func (c *Converter) setGlobalAttributes(ds *ncdf.Dataset, ts time.Time) {
	a := config.GlobalAttributes(c.cfg.GlobalAttributes, ts, ts, c.now())
	lon, lat := c.grid.Lon, c.grid.Lat
	a.Set("geospatial_lat_min", lat[0])
	a.Set("geospatial_lat_max", lat[len(lat)-1])
	a.Set("geospatial_lon_min", lon[0])
	a.Set("geospatial_lon_max", lon[len(lon)-1])
	a.Set("method", c.method.Label())
	ds.Attrs.Merge(a)
}
