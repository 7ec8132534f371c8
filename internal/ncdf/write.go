package ncdf

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
)

// Write stores ds at path. Variables missing from enc are written without a
// fill value. The file is written under a temporary name in the same
// directory and renamed into place, so a failed write leaves nothing at
// path.
func Write(path string, ds *Dataset, enc map[string]Encoding) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Close(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	cw, err := cdf.OpenWriter(tmpName)
	if err != nil {
		return fmt.Errorf("open writer: %w", err)
	}
	if err := writeAll(cw, ds, enc); err != nil {
		cw.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	return os.Rename(tmpName, path)
}

// writer is the part of the cdf writer used by writeAll.
type writer interface {
	AddGlobalAttrs(attrs api.AttributeMap) error
	AddVar(name string, v api.Variable) error
}

func writeAll(cw writer, ds *Dataset, enc map[string]Encoding) error {
	if ds.Attrs.Len() > 0 {
		attrs, err := ds.Attrs.orderedMap()
		if err != nil {
			return fmt.Errorf("global attributes: %w", err)
		}
		if err := cw.AddGlobalAttrs(attrs); err != nil {
			return fmt.Errorf("global attributes: %w", err)
		}
	}
	for _, v := range ds.vars {
		av, err := ds.apiVariable(v, enc[v.Name])
		if err != nil {
			return err
		}
		if err := cw.AddVar(v.Name, av); err != nil {
			return fmt.Errorf("variable %s: %w", v.Name, err)
		}
	}
	return nil
}

func (d *Dataset) apiVariable(v *Variable, e Encoding) (api.Variable, error) {
	shape, err := d.Shape(v)
	if err != nil {
		return api.Variable{}, err
	}
	attrs := NewAttributes()
	attrs.Merge(v.Attrs)
	if e.HasFill {
		attrs.Set("_FillValue", typed(v.Type, e.FillValue))
	} else {
		attrs.Delete("_FillValue")
	}
	values, err := v.typedValues(e)
	if err != nil {
		return api.Variable{}, err
	}
	var out any
	if len(shape) == 0 {
		out = reflect.ValueOf(values).Index(0).Interface()
	} else {
		out = nest(reflect.ValueOf(values), shape).Interface()
	}
	am, err := attrs.orderedMap()
	if err != nil {
		return api.Variable{}, fmt.Errorf("variable %s: %w", v.Name, err)
	}
	return api.Variable{Values: out, Dimensions: v.Dims, Attributes: am}, nil
}

var errNaNWithoutFill = errors.New("missing values but no fill value")

// typedValues converts the flat values to the storage type, replacing NaN
// with the fill value.
func (v *Variable) typedValues(e Encoding) (any, error) {
	fill := func(x float64) float64 {
		if math.IsNaN(x) && e.HasFill {
			return e.FillValue
		}
		return x
	}
	switch v.Type {
	case Float32:
		out := make([]float32, len(v.Values))
		for i, x := range v.Values {
			out[i] = float32(fill(x))
		}
		return out, nil
	case Float64:
		out := make([]float64, len(v.Values))
		for i, x := range v.Values {
			out[i] = fill(x)
		}
		return out, nil
	case Int32:
		out := make([]int32, len(v.Values))
		for i, x := range v.Values {
			x = fill(x)
			if math.IsNaN(x) {
				return nil, fmt.Errorf("variable %s: %w", v.Name, errNaNWithoutFill)
			}
			out[i] = int32(math.Round(x))
		}
		return out, nil
	}
	return nil, fmt.Errorf("variable %s: unsupported type %v", v.Name, v.Type)
}

func typed(t Type, x float64) any {
	switch t {
	case Float32:
		return float32(x)
	case Int32:
		return int32(x)
	}
	return x
}

// nest reshapes a flat slice into nested slices of the given shape, e.g.
// []float32 of length 6 with shape [2 3] into [][]float32.
func nest(flat reflect.Value, shape []int) reflect.Value {
	if len(shape) == 1 {
		return flat
	}
	n := shape[0]
	step := 0
	if n > 0 {
		step = flat.Len() / n
	}
	elemType := nestedType(flat.Type().Elem(), len(shape)-1)
	out := reflect.MakeSlice(reflect.SliceOf(elemType), n, n)
	for i := 0; i < n; i++ {
		out.Index(i).Set(nest(flat.Slice(i*step, (i+1)*step), shape[1:]))
	}
	return out
}

func nestedType(elem reflect.Type, rank int) reflect.Type {
	t := elem
	for i := 0; i < rank; i++ {
		t = reflect.SliceOf(t)
	}
	return t
}
