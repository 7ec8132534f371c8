// Package grid defines the regular lon/lat mesh that total vectors are
// mapped onto and the nearest-cell assignment of scattered points.
package grid

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Grid is a rectangular mesh defined by its longitude and latitude axes.
// Both axes are sorted ascending and contain no duplicates.
type Grid struct {
	Lon []float32
	Lat []float32
}

// New creates a grid from arbitrary lon/lat values, typically the two columns
// of a grid file listing every cell. The values are deduplicated and sorted.
func New(lon, lat []float32) (*Grid, error) {
	g := &Grid{Lon: uniqueSorted(lon), Lat: uniqueSorted(lat)}
	if len(g.Lon) == 0 || len(g.Lat) == 0 {
		return nil, fmt.Errorf("grid has %d longitudes and %d latitudes; need at least one of each", len(g.Lon), len(g.Lat))
	}
	return g, nil
}

func uniqueSorted(v []float32) []float32 {
	out := make([]float32, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(float64(x)) {
			out = append(out, x)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Load reads a grid file of lon,lat pairs, one per line, separated by commas
// and/or whitespace.
func Load(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Read parses lon,lat pairs from r. Blank lines are ignored.
func Read(r io.Reader) (*Grid, error) {
	var lon, lat []float32
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.FieldsFunc(sc.Text(), func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t'
		})
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want 2 columns, got %d", line, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}
		y, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		lon = append(lon, float32(x))
		lat = append(lat, float32(y))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(lon, lat)
}

// Shape returns the number of rows (latitudes) and columns (longitudes).
func (g *Grid) Shape() (rows, cols int) {
	return len(g.Lat), len(g.Lon)
}

// NearestIndex returns, for each point, the row and column of its nearest
// grid cell. Each axis is searched independently for the minimum absolute
// difference; on ties the lower index wins. Points are compared at float32
// precision, the precision of the axes.
func (g *Grid) NearestIndex(lon, lat []float64) (rows, cols []int, err error) {
	if len(lon) != len(lat) {
		return nil, nil, fmt.Errorf("%d longitudes but %d latitudes", len(lon), len(lat))
	}
	lonAxis := toFloat64(g.Lon)
	latAxis := toFloat64(g.Lat)
	dx := make([]float64, len(lonAxis))
	dy := make([]float64, len(latAxis))
	rows = make([]int, len(lon))
	cols = make([]int, len(lon))
	for i := range lon {
		cols[i] = nearest(lonAxis, float64(float32(lon[i])), dx)
		rows[i] = nearest(latAxis, float64(float32(lat[i])), dy)
	}
	return rows, cols, nil
}

func nearest(axis []float64, v float64, buf []float64) int {
	for i, a := range axis {
		buf[i] = math.Abs(a - v)
	}
	return floats.MinIdx(buf)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Scatter places values onto a dense rows x cols field at the given indices.
// Unassigned cells are NaN. When several values map to the same cell the last
// one wins.
func (g *Grid) Scatter(values []float64, rows, cols []int) ([][]float64, error) {
	if len(values) != len(rows) || len(values) != len(cols) {
		return nil, fmt.Errorf("%d values for %d row and %d column indices", len(values), len(rows), len(cols))
	}
	nr, nc := g.Shape()
	field := make([][]float64, nr)
	for r := range field {
		field[r] = make([]float64, nc)
		for c := range field[r] {
			field[r][c] = math.NaN()
		}
	}
	for i, v := range values {
		r, c := rows[i], cols[i]
		if r < 0 || r >= nr || c < 0 || c >= nc {
			return nil, fmt.Errorf("index (%d, %d) outside %dx%d grid", r, c, nr, nc)
		}
		field[r][c] = v
	}
	return field, nil
}
