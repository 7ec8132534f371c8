// Package ncdf holds a labeled, self-describing dataset in memory and writes
// it as a netCDF file.
package ncdf

import (
	"fmt"
	"math"
)

// Type is the storage type of a variable.
type Type int

// Storage types. The names follow the netCDF CDL type names.
const (
	Float32 Type = iota // 32-bit IEEE float
	Float64             // 64-bit IEEE float
	Int32               // 32-bit signed integer
)

// String returns the CDL name of t.
func (t Type) String() string {
	switch t {
	case Float32:
		return "float"
	case Float64:
		return "double"
	case Int32:
		return "int"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Variable is an n-dimensional array with attributes. Values are stored row
// major over Dims; NaN marks a missing value. A variable without Dims is a
// scalar holding exactly one value.
type Variable struct {
	Name   string
	Type   Type
	Dims   []string
	Values []float64
	Attrs  *Attributes
}

// NewVariable returns a variable with an empty attribute set.
func NewVariable(name string, t Type, dims []string, values []float64) *Variable {
	return &Variable{Name: name, Type: t, Dims: dims, Values: values, Attrs: NewAttributes()}
}

type dim struct {
	name string
	len  int
}

// Dataset is an ordered collection of dimensions, variables and global
// attributes.
type Dataset struct {
	Attrs *Attributes
	dims  []dim
	vars  []*Variable
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{Attrs: NewAttributes()}
}

// AddDim defines a dimension.
func (d *Dataset) AddDim(name string, n int) error {
	if _, ok := d.Dim(name); ok {
		return fmt.Errorf("dimension %s already defined", name)
	}
	if n <= 0 {
		return fmt.Errorf("dimension %s: length %d", name, n)
	}
	d.dims = append(d.dims, dim{name, n})
	return nil
}

// Dim returns the length of a dimension.
func (d *Dataset) Dim(name string) (int, bool) {
	for _, dm := range d.dims {
		if dm.name == name {
			return dm.len, true
		}
	}
	return 0, false
}

// Shape returns the dimension lengths of v.
func (d *Dataset) Shape(v *Variable) ([]int, error) {
	shape := make([]int, len(v.Dims))
	for i, name := range v.Dims {
		n, ok := d.Dim(name)
		if !ok {
			return nil, fmt.Errorf("variable %s: undefined dimension %s", v.Name, name)
		}
		shape[i] = n
	}
	return shape, nil
}

// AddVar adds v. Its dimensions must be defined and its length must match
// their product.
func (d *Dataset) AddVar(v *Variable) error {
	if d.Var(v.Name) != nil {
		return fmt.Errorf("variable %s already defined", v.Name)
	}
	shape, err := d.Shape(v)
	if err != nil {
		return err
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(v.Values) != n {
		return fmt.Errorf("variable %s: %d values for shape %v", v.Name, len(v.Values), shape)
	}
	if v.Attrs == nil {
		v.Attrs = NewAttributes()
	}
	d.vars = append(d.vars, v)
	return nil
}

// Var returns the named variable or nil.
func (d *Dataset) Var(name string) *Variable {
	for _, v := range d.vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// IsCoord reports whether v is a coordinate variable, i.e. a one
// dimensional variable named after its dimension.
func (d *Dataset) IsCoord(v *Variable) bool {
	return len(v.Dims) == 1 && v.Dims[0] == v.Name
}

// DataVars returns the variables that are not coordinates.
func (d *Dataset) DataVars() []*Variable {
	var out []*Variable
	for _, v := range d.vars {
		if !d.IsCoord(v) {
			out = append(out, v)
		}
	}
	return out
}

// Mask sets every value above its variable's threshold to missing. Each
// threshold only affects its own variable and is compared in the variable's
// storage precision, so a float value equal to the threshold is kept.
// Unknown variable names are an error and leave the dataset unchanged.
func (d *Dataset) Mask(thresholds map[string]float64) error {
	for name := range thresholds {
		if d.Var(name) == nil {
			return fmt.Errorf("mask: no variable %s", name)
		}
	}
	for name, limit := range thresholds {
		v := d.Var(name)
		for i, x := range v.Values {
			if exceeds(v.Type, x, limit) {
				v.Values[i] = math.NaN()
			}
		}
	}
	return nil
}

func exceeds(t Type, x, limit float64) bool {
	if t == Float32 {
		return float32(x) > float32(limit)
	}
	return x > limit
}
