package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/rtm0/hfrtotals/internal/ncdf"
	"github.com/rtm0/hfrtotals/internal/tuv"
)

var gridDims = []string{"time", "z", "lat", "lon"}

// errorText is the method specific description of u_err and v_err; %s is
// the velocity component.
var errorText = map[tuv.Method]struct{ longName, comment string }{
	tuv.OI: {
		longName: "Normalized uncertainty error associated with %s velocity component",
		comment:  "velocity measurements with error values over 0.6 are of questionable quality",
	},
	tuv.LSQ: {
		longName: "Associated GDOP mapping error value associated with %s velocity component",
		comment:  "velocity measurements with error values over 1.5 are of questionable quality",
	},
}

// assemble grids the totals and builds the dataset with its coordinates,
// data variables and per-variable attributes.
func (c *Converter) assemble(t *tuv.Totals, ts time.Time) (*ncdf.Dataset, error) {
	rows, cols, err := c.grid.NearestIndex(t.Lon, t.Lat)
	if err != nil {
		return nil, err
	}
	nr, nc := c.grid.Shape()
	params := t.Params.Values()

	ds := ncdf.New()
	for _, d := range []struct {
		name string
		n    int
	}{{"time", 1}, {"z", 1}, {"lat", nr}, {"lon", nc}, {"parameters", len(params)}} {
		if err := ds.AddDim(d.name, d.n); err != nil {
			return nil, err
		}
	}

	vars := []*ncdf.Variable{
		timeVar(ts),
		depthVar(),
		axisVar("lat", c.grid.Lat, "Latitude", "latitude", "degrees_north", "Y", 90),
		axisVar("lon", c.grid.Lon, "Longitude", "longitude", "degrees_east", "X", 180),
	}

	gridded := []struct {
		name   string
		typ    ncdf.Type
		values []float64
	}{
		{"u", ncdf.Float32, t.U},
		{"v", ncdf.Float32, t.V},
		{"u_err", ncdf.Float32, t.UErr},
		{"v_err", ncdf.Float32, t.VErr},
		{"uv_covariance", ncdf.Float32, t.UVCovariance},
		{"num_radials", ncdf.Int32, t.NumRads},
	}
	for _, g := range gridded {
		values := g.values
		if g.typ == ncdf.Float32 {
			values = toFloat32Precision(values)
		}
		field, err := c.grid.Scatter(values, rows, cols)
		if err != nil {
			return nil, fmt.Errorf("grid %s: %w", g.name, err)
		}
		v := ncdf.NewVariable(g.name, g.typ, gridDims, flatten(field))
		v.Attrs.Set("coordinates", "lon lat")
		v.Attrs.Set("grid_mapping", "crs")
		vars = append(vars, v)
	}
	vars = append(vars, parametersVar(t.Params), crsVar(), instrumentVar())

	for _, v := range vars {
		if err := ds.AddVar(v); err != nil {
			return nil, err
		}
	}
	c.setVariableAttributes(ds, t)
	return ds, nil
}

func (c *Converter) setVariableAttributes(ds *ncdf.Dataset, t *tuv.Totals) {
	velocity := func(name, long, std, units string) {
		a := ds.Var(name).Attrs
		a.Set("long_name", long)
		a.Set("standard_name", std)
		a.Set("short_name", name)
		a.Set("units", units)
		a.Set("valid_min", float32(-300))
		a.Set("valid_max", float32(300))
	}
	velocity("u", "Eastward Surface Current (cm/s)", "surface_eastward_sea_water_velocity", units(t.UUnits))
	velocity("v", "Northward Surface Current (cm/s)", "surface_northward_sea_water_velocity", units(t.VUnits))

	text := errorText[c.method]
	for name, component := range map[string]string{"u_err": "eastward", "v_err": "northward"} {
		a := ds.Var(name).Attrs
		a.Set("units", "1")
		a.Set("valid_min", float32(0))
		a.Set("valid_max", float32(1))
		a.Set("long_name", fmt.Sprintf(text.longName, component))
		a.Set("comment", text.comment)
	}

	a := ds.Var("uv_covariance").Attrs
	a.Set("long_name", "Eastward and Northward covariance directional information of u and v")
	a.Set("units", "1")
	a.Set("comment", "directional information of u and v")

	a = ds.Var("num_radials").Attrs
	a.Set("long_name", "Number of radial measurements used to calculate each totals velocity")
	a.Set("comment", "totals are not calculated with fewer than 3 contributing radial measurements from 2 sites")
}

func units(u string) string {
	if u == "" {
		return "cm s-1"
	}
	return u
}

func timeVar(ts time.Time) *ncdf.Variable {
	v := ncdf.NewVariable("time", ncdf.Float64, []string{"time"}, []float64{float64(ts.Unix())})
	v.Attrs.Set("standard_name", "time")
	v.Attrs.Set("units", "seconds since 1970-01-01 00:00:00")
	v.Attrs.Set("calendar", "gregorian")
	v.Attrs.Set("axis", "T")
	return v
}

func depthVar() *ncdf.Variable {
	v := ncdf.NewVariable("z", ncdf.Float32, []string{"z"}, []float64{0})
	v.Attrs.Set("long_name", "Average Depth of Sensor")
	v.Attrs.Set("standard_name", "depth")
	v.Attrs.Set("comment", "Derived from mean value of depth variable")
	v.Attrs.Set("units", "m")
	v.Attrs.Set("axis", "Z")
	v.Attrs.Set("positive", "down")
	return v
}

func axisVar(name string, axis []float32, long, std, units, cfAxis string, limit float32) *ncdf.Variable {
	values := make([]float64, len(axis))
	for i, x := range axis {
		values[i] = float64(x)
	}
	v := ncdf.NewVariable(name, ncdf.Float32, []string{name}, values)
	v.Attrs.Set("long_name", long)
	v.Attrs.Set("standard_name", std)
	v.Attrs.Set("short_name", name)
	v.Attrs.Set("units", units)
	v.Attrs.Set("axis", cfAxis)
	v.Attrs.Set("valid_min", -limit)
	v.Attrs.Set("valid_max", limit)
	return v
}

func parametersVar(p tuv.Params) *ncdf.Variable {
	var sb strings.Builder
	for i, d := range p.Descriptions() {
		fmt.Fprintf(&sb, "%d) %s\n", i+1, d)
	}
	v := ncdf.NewVariable("processing_parameters", ncdf.Float64, []string{"parameters"}, p.Values())
	v.Attrs.Set("long_name", "General and method specific processing parameter information")
	v.Attrs.Set("comment", sb.String())
	return v
}

func crsVar() *ncdf.Variable {
	v := ncdf.NewVariable("crs", ncdf.Int32, nil, []float64{0})
	v.Attrs.Set("grid_mapping_name", "latitude_longitude")
	v.Attrs.Set("inverse_flattening", 298.257223563)
	v.Attrs.Set("long_name", "Coordinate Reference System")
	v.Attrs.Set("semi_major_axis", 6378137.0)
	v.Attrs.Set("epsg_code", "EPSG:4326")
	v.Attrs.Set("comment", "http://www.opengis.net/def/crs/EPSG/0/4326")
	return v
}

func instrumentVar() *ncdf.Variable {
	v := ncdf.NewVariable("instrument", ncdf.Int32, nil, []float64{0})
	v.Attrs.Set("long_name", "CODAR SeaSonde High Frequency Radar")
	v.Attrs.Set("sensor_type", "Direction-finding high frequency radar antenna")
	v.Attrs.Set("make_model", "CODAR SeaSonde")
	v.Attrs.Set("serial_number", 1)
	return v
}

func toFloat32Precision(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(float32(x))
	}
	return out
}

func flatten(field [][]float64) []float64 {
	var out []float64
	for _, row := range field {
		out = append(out, row...)
	}
	return out
}
