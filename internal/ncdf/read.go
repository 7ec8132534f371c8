package ncdf

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// File is a netCDF file opened for reading.
type File struct {
	nc api.Group
}

// Open opens a netCDF file.
func Open(path string) (*File, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{nc: nc}, nil
}

// Close closes the file.
func (f *File) Close() {
	f.nc.Close()
}

// GlobalAttr returns a global attribute.
func (f *File) GlobalAttr(key string) (any, bool) {
	return f.nc.Attributes().Get(key)
}

// Attr returns an attribute of a variable.
func (f *File) Attr(varName, key string) (any, bool, error) {
	vg, err := f.nc.GetVarGetter(varName)
	if err != nil {
		return nil, false, err
	}
	v, ok := vg.Attributes().Get(key)
	return v, ok, nil
}

// Values returns all values of a variable as T, e.g. []float32 for a
// coordinate or [][][][]float32 for a time, depth, lat, lon field.
func Values[T any](f *File, name string) (T, error) {
	var zero T
	vg, err := f.nc.GetVarGetter(name)
	if err != nil {
		return zero, err
	}
	v, err := vg.Values()
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("variable %s holds %T, not %T", name, v, zero)
	}
	return t, nil
}

// Summary returns the variables of the file and their dimensions, suitable
// for logging.
func (f *File) Summary() []any {
	names := f.nc.ListVariables()
	vars := make([]string, 0, len(names))
	for _, name := range names {
		vg, err := f.nc.GetVarGetter(name)
		if err != nil {
			vars = append(vars, name+"(?)")
			continue
		}
		vars = append(vars, fmt.Sprintf("%s(%s)", name, strings.Join(vg.Dimensions(), ",")))
	}
	return []any{
		"vars", vars,
		"varCnt", len(names),
		"globalAttrCnt", len(f.nc.Attributes().Keys()),
	}
}

// Summarize opens path and returns its Summary.
func Summarize(path string) ([]any, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Summary(), nil
}
