// Package config holds the converter configuration: where grids and outputs
// live, the processing method, masking thresholds and the global metadata
// written into every file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rtm0/hfrtotals/internal/ncdf"
	"github.com/rtm0/hfrtotals/internal/tuv"
)

// Config is the converter configuration, usually read from a YAML file and
// then overridden by command-line flags.
type Config struct {
	Grid      string `yaml:"grid"`
	OutputDir string `yaml:"output_dir"`
	Method    string `yaml:"method"`
	// Domain overrides TUV.DomainName in output names when set.
	Domain string `yaml:"domain"`
	// Thresholds maps a data variable to the value above which its cells
	// are set to missing.
	Thresholds       map[string]float64 `yaml:"thresholds"`
	GlobalAttributes Attributes         `yaml:"global_attributes"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Method: "oi"}
}

// Load reads a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// MethodValue parses Method.
func (c *Config) MethodValue() (tuv.Method, error) {
	return tuv.ParseMethod(c.Method)
}

// Validate reports configuration problems.
func (c *Config) Validate() error {
	var errs []error
	if c.Grid == "" {
		errs = append(errs, errors.New("grid file not set"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory not set"))
	}
	if _, err := c.MethodValue(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Attribute is one global attribute from the configuration.
type Attribute struct {
	Name  string
	Value any
}

// Attributes is an ordered list of attributes. In YAML it is a mapping whose
// order is preserved.
type Attributes []Attribute

// UnmarshalYAML decodes a mapping of attribute names to scalar values. Ints,
// floats and bools keep their type; everything else is a string.
func (a *Attributes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: global_attributes must be a mapping", value.Line)
	}
	out := make(Attributes, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: attribute %s must be a scalar", v.Line, k.Value)
		}
		val, err := scalarValue(v)
		if err != nil {
			return fmt.Errorf("line %d: attribute %s: %w", v.Line, k.Value, err)
		}
		out = append(out, Attribute{Name: k.Value, Value: val})
	}
	*a = out
	return nil
}

func scalarValue(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return "", nil
	case "!!int":
		var i int
		err := n.Decode(&i)
		return i, err
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	}
	return n.Value, nil
}

const timeLayout = "2006-01-02T15:04:05Z"

// GlobalAttributes returns the default CF/ACDD global attributes for a file
// covering start to end, created at now, with user attributes applied on
// top.
func GlobalAttributes(user Attributes, start, end, now time.Time) *ncdf.Attributes {
	a := ncdf.NewAttributes()
	a.Set("Conventions", "CF-1.6, ACDD-1.3")
	a.Set("featureType", "grid")
	a.Set("date_created", now.UTC().Format(timeLayout))
	a.Set("date_modified", now.UTC().Format(timeLayout))
	a.Set("time_coverage_start", start.UTC().Format(timeLayout))
	a.Set("time_coverage_end", end.UTC().Format(timeLayout))
	a.Set("geospatial_lat_units", "degrees_north")
	a.Set("geospatial_lon_units", "degrees_east")
	a.Set("geospatial_vertical_min", float32(0))
	a.Set("geospatial_vertical_max", float32(0))
	a.Set("geospatial_vertical_units", "m")
	a.Set("geospatial_vertical_positive", "down")
	a.Set("license", "Freely Distributed")
	for _, attr := range user {
		a.Set(attr.Name, attr.Value)
	}
	return a
}
