package convert

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rtm0/hfrtotals/internal/config"
	"github.com/rtm0/hfrtotals/internal/grid"
	"github.com/rtm0/hfrtotals/internal/ncdf"
	"github.com/rtm0/hfrtotals/internal/tuv"
)

const matName = "totals_MARA_2018_06_01_1300.mat"

var created = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func exampleTotals() *tuv.Totals {
	return &tuv.Totals{
		Lon:          []float64{-74.02},
		Lat:          []float64{38.97},
		U:            []float64{10},
		V:            []float64{-5},
		UUnits:       "cm/s",
		VUnits:       "cm/s",
		UErr:         []float64{0.7},
		VErr:         []float64{0.2},
		UVCovariance: []float64{0.1},
		NumRads:      []float64{4},
		Params: tuv.OIParams{
			MaxSpeed: 250, MinSites: 2, MinRads: 3, TempThreshold: 0.02,
			Sx: 10, Sy: 10, ModelVariance: 420, ErrorVariance: 66,
		},
	}
}

func lsqTotals() *tuv.Totals {
	t := exampleTotals()
	t.Params = tuv.LSQParams{MaxSpeed: 250, MinSites: 2, MinRads: 3, TempThreshold: 0.02, SpatialThreshold: 3}
	return t
}

func loaderFor(t *tuv.Totals) LoadFunc {
	return func(string, tuv.Method) (*tuv.Totals, error) { return t, nil }
}

type harness struct {
	c   *Converter
	cfg *config.Config
	log *bytes.Buffer
}

func newHarness(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	g, err := grid.New([]float32{-75, -74}, []float32{38, 39})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{WithClock(func() time.Time { return created })}, opts...)
	c, err := New(cfg, g, logger, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return &harness{c: c, cfg: cfg, log: &buf}
}

func readField(t *testing.T, path, name string) [][][][]float32 {
	t.Helper()
	f, err := ncdf.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	v, err := ncdf.Values[[][][][]float32](f, name)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestConvertExample(t *testing.T) {
	h := newHarness(t, config.Default(), WithLoader(loaderFor(exampleTotals())))
	out, err := h.c.Convert(matName)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(h.cfg.OutputDir, "RU_MARA_20180601T130000Z.nc"); out != want {
		t.Errorf("out = %s, want %s", out, want)
	}
	for name, want := range map[string]float32{"u": 10, "v": -5} {
		field := readField(t, out, name)
		if len(field) != 1 || len(field[0]) != 1 || len(field[0][0]) != 2 || len(field[0][0][0]) != 2 {
			t.Fatalf("%s has shape %dx%dx%dx%d, want 1x1x2x2", name,
				len(field), len(field[0]), len(field[0][0]), len(field[0][0][0]))
		}
		for r := 0; r < 2; r++ {
			for c := 0; c < 2; c++ {
				got := field[0][0][r][c]
				if r == 1 && c == 1 {
					if got != want {
						t.Errorf("%s[0,0,1,1] = %v, want %v", name, got, want)
					}
				} else if got != ncdf.DefaultFillValue {
					t.Errorf("%s[0,0,%d,%d] = %v, want fill value", name, r, c, got)
				}
			}
		}
	}
	if !strings.Contains(h.log.String(), "netCDF file successfully created") {
		t.Errorf("log = %s", h.log)
	}
}

func TestConvertWritesStringAttributes(t *testing.T) {
	cfg := config.Default()
	cfg.GlobalAttributes = config.Attributes{{Name: "title", Value: "MARACOOS 6km Sea Surface Currents"}}
	h := newHarness(t, cfg, WithLoader(loaderFor(exampleTotals())), WithVerify(true))
	out, err := h.c.Convert(matName)
	if err != nil {
		t.Fatal(err)
	}
	f, err := ncdf.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for key, want := range map[string]string{
		"title":               "MARACOOS 6km Sea Surface Currents",
		"method":              "Optimal Interpolation",
		"time_coverage_start": "2018-06-01T13:00:00Z",
		"date_created":        "2024-05-06T07:08:09Z",
	} {
		if got, _ := f.GlobalAttr(key); got != want {
			t.Errorf("%s = %#v, want %q", key, got, want)
		}
	}
	if got, _, err := f.Attr("u", "standard_name"); err != nil || got != "surface_eastward_sea_water_velocity" {
		t.Errorf("u standard_name = %#v (%v)", got, err)
	}
	if _, ok, err := f.Attr("lat", "_FillValue"); err != nil || ok {
		t.Errorf("lat has _FillValue (err %v)", err)
	}
	if !strings.Contains(h.log.String(), "netCDF summary") {
		t.Errorf("verify summary not logged: %s", h.log)
	}
}

func TestDataset(t *testing.T) {
	h := newHarness(t, config.Default(), WithLoader(loaderFor(exampleTotals())))
	ds, name, err := h.c.Dataset(matName)
	if err != nil {
		t.Fatal(err)
	}
	if name != "RU_MARA_20180601T130000Z.nc" {
		t.Errorf("name = %s", name)
	}
	for dim, want := range map[string]int{"time": 1, "z": 1, "lat": 2, "lon": 2, "parameters": 8} {
		if got, _ := ds.Dim(dim); got != want {
			t.Errorf("dim %s = %d, want %d", dim, got, want)
		}
	}
	for _, name := range DataVariables {
		v := ds.Var(name)
		if v == nil {
			t.Fatalf("no variable %s", name)
		}
		if len(v.Dims) != 4 || len(v.Values) != 4 {
			t.Errorf("%s dims %v with %d values", name, v.Dims, len(v.Values))
		}
	}
	if got := ds.Var("time").Values[0]; got != float64(time.Date(2018, 6, 1, 13, 0, 0, 0, time.UTC).Unix()) {
		t.Errorf("time = %v", got)
	}
	if v, _ := ds.Attrs.Get("geospatial_lon_max"); v != float32(-74) {
		t.Errorf("geospatial_lon_max = %#v", v)
	}
	if v, _ := ds.Attrs.Get("geospatial_lat_min"); v != float32(38) {
		t.Errorf("geospatial_lat_min = %#v", v)
	}
	if got := ds.Var("u_err").Attrs.String("long_name"); !strings.HasPrefix(got, "Normalized uncertainty") {
		t.Errorf("u_err long_name = %q", got)
	}
	for _, name := range []string{"crs", "instrument"} {
		if v := ds.Var(name); v == nil || len(v.Dims) != 0 {
			t.Errorf("%s is not a scalar container", name)
		}
	}
	comment := ds.Var("processing_parameters").Attrs.String("comment")
	if !strings.HasPrefix(comment, "1) Maximum Total Speed Threshold (cm s-1)\n") || !strings.Contains(comment, "8) Data error variance") {
		t.Errorf("processing_parameters comment = %q", comment)
	}
}

func TestDatasetLSQ(t *testing.T) {
	cfg := config.Default()
	cfg.Method = "lsq"
	h := newHarness(t, cfg, WithLoader(loaderFor(lsqTotals())))
	ds, _, err := h.c.Dataset(matName)
	if err != nil {
		t.Fatal(err)
	}
	if got := ds.Attrs.String("method"); got != "Unweighted Least Squares" {
		t.Errorf("method = %q", got)
	}
	for _, name := range []string{"u_err", "v_err"} {
		a := ds.Var(name).Attrs
		if got := a.String("long_name"); !strings.Contains(got, "GDOP") {
			t.Errorf("%s long_name = %q", name, got)
		}
		if got := a.String("comment"); !strings.Contains(got, "1.5") {
			t.Errorf("%s comment = %q", name, got)
		}
	}
	if got := ds.Var("v_err").Attrs.String("long_name"); !strings.Contains(got, "northward") {
		t.Errorf("v_err long_name = %q", got)
	}
	if n, _ := ds.Dim("parameters"); n != 5 {
		t.Errorf("parameters = %d, want 5", n)
	}
}

func TestThresholdMasksOnlyItsVariable(t *testing.T) {
	cfg := config.Default()
	cfg.Thresholds = map[string]float64{"u_err": 0.6, "v_err": 0.6}
	h := newHarness(t, cfg, WithLoader(loaderFor(exampleTotals())))
	out, err := h.c.Convert(matName)
	if err != nil {
		t.Fatal(err)
	}
	if got := readField(t, out, "u_err")[0][0][1][1]; got != ncdf.DefaultFillValue {
		t.Errorf("u_err = %v, want masked", got)
	}
	if got := readField(t, out, "v_err")[0][0][1][1]; got != 0.2 {
		t.Errorf("v_err = %v, want 0.2 below threshold", got)
	}
	if got := readField(t, out, "u")[0][0][1][1]; got != 10 {
		t.Errorf("u = %v, want unaffected 10", got)
	}
}

func TestThresholdKeepsValueAtLimit(t *testing.T) {
	totals := exampleTotals()
	totals.UErr = []float64{0.6}
	totals.VErr = []float64{0.3}
	cfg := config.Default()
	cfg.Thresholds = map[string]float64{"u_err": 0.6, "v_err": 0.3}
	h := newHarness(t, cfg, WithLoader(loaderFor(totals)))
	out, err := h.c.Convert(matName)
	if err != nil {
		t.Fatal(err)
	}
	if got := readField(t, out, "u_err")[0][0][1][1]; got != 0.6 {
		t.Errorf("u_err = %v, want 0.6 kept at threshold", got)
	}
	if got := readField(t, out, "v_err")[0][0][1][1]; got != 0.3 {
		t.Errorf("v_err = %v, want 0.3 kept at threshold", got)
	}
}

func TestConvertDeterministic(t *testing.T) {
	var files [][]byte
	for i := 0; i < 2; i++ {
		h := newHarness(t, config.Default(), WithLoader(loaderFor(exampleTotals())))
		out, err := h.c.Convert(matName)
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		files = append(files, b)
	}
	if !bytes.Equal(files[0], files[1]) {
		t.Error("identical inputs produced different files")
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name     string
		override string
		inFile   string
		want     string
	}{
		{"default", "", "", "RU_MARA_20180601T130000Z.nc"},
		{"from TUV", "", "NYB", "RU_NYB_20180601T130000Z.nc"},
		{"override wins", "BPU", "NYB", "RU_BPU_20180601T130000Z.nc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Domain = tt.override
			totals := exampleTotals()
			totals.DomainName = tt.inFile
			h := newHarness(t, cfg, WithLoader(loaderFor(totals)))
			_, name, err := h.c.Dataset(matName)
			if err != nil {
				t.Fatal(err)
			}
			if name != tt.want {
				t.Errorf("name = %s, want %s", name, tt.want)
			}
		})
	}
}

func TestTimestampFallback(t *testing.T) {
	totals := exampleTotals()
	totals.TimeStamp = time.Date(2019, 2, 3, 4, 0, 0, 0, time.UTC)
	h := newHarness(t, config.Default(), WithLoader(loaderFor(totals)))
	_, name, err := h.c.Dataset("totals.mat")
	if err != nil {
		t.Fatal(err)
	}
	if name != "RU_MARA_20190203T040000Z.nc" {
		t.Errorf("name = %s", name)
	}

	h = newHarness(t, config.Default(), WithLoader(loaderFor(exampleTotals())))
	if _, _, err := h.c.Dataset("totals.mat"); !errors.Is(err, tuv.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestConvertAllSkipsInvalidInput(t *testing.T) {
	load := func(path string, m tuv.Method) (*tuv.Totals, error) {
		if strings.Contains(path, "bad") {
			return nil, fmt.Errorf("TUV.U: not found: %w", tuv.ErrMissingField)
		}
		return exampleTotals(), nil
	}
	h := newHarness(t, config.Default(), WithLoader(load))
	written, err := h.c.ConvertAll([]string{
		"totals_bad_2018_06_01_1200.mat",
		matName,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 {
		t.Fatalf("written = %v, want one file", written)
	}
	entries, err := os.ReadDir(h.cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "RU_MARA_20180601T130000Z.nc" {
		t.Errorf("output dir holds %v", entries)
	}
	logged := h.log.String()
	if !strings.Contains(logged, "level=ERROR") || !strings.Contains(logged, "missing variable") || !strings.Contains(logged, "totals_bad_2018_06_01_1200.mat") {
		t.Errorf("log = %s", logged)
	}
}

func TestDatasetRejectsParams(t *testing.T) {
	noParams := exampleTotals()
	noParams.Params = nil
	tests := []struct {
		name   string
		totals *tuv.Totals
	}{
		{"missing", noParams},
		{"other method", lsqTotals()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, config.Default(), WithLoader(loaderFor(tt.totals)))
			_, _, err := h.c.Dataset(matName)
			if !errors.Is(err, tuv.ErrMissingField) {
				t.Fatalf("err = %v, want ErrMissingField", err)
			}
			written, err := h.c.ConvertAll([]string{matName})
			if err != nil || len(written) != 0 {
				t.Fatalf("ConvertAll = %v, %v; want file skipped", written, err)
			}
		})
	}
}

func TestConvertAllSkipsUnreadable(t *testing.T) {
	h := newHarness(t, config.Default())
	missing := filepath.Join(t.TempDir(), matName)
	written, err := h.c.ConvertAll([]string{missing})
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 0 {
		t.Errorf("written = %v", written)
	}
	if !strings.Contains(h.log.String(), "could not be loaded") {
		t.Errorf("log = %s", h.log)
	}
}

func TestConvertAllStopsOnOutputError(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notDir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(notDir, "nc")
	h := newHarness(t, cfg, WithLoader(loaderFor(exampleTotals())))
	if _, err := h.c.ConvertAll([]string{matName}); err == nil {
		t.Fatal("expected error for unwritable output directory")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	g, _ := grid.New([]float32{0}, []float32{0})
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown threshold", func(c *config.Config) { c.Thresholds = map[string]float64{"speed": 1} }},
		{"bad method", func(c *config.Config) { c.Method = "kriging" }},
		{"no output dir", func(c *config.Config) { c.OutputDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.OutputDir = t.TempDir()
			tt.mutate(cfg)
			if _, err := New(cfg, g, logger); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
