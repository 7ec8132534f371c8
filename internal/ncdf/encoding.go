package ncdf

// DefaultFillValue replaces missing values in data variables.
const DefaultFillValue = -999

// Encoding controls how a variable is stored. Files are written in the
// netCDF classic format, which has no per-variable compression and no
// unlimited dimensions, so the fill value is the only setting.
type Encoding struct {
	// FillValue is written for missing values and recorded as _FillValue
	// when HasFill is set.
	FillValue float64
	HasFill   bool
}

// DefaultEncoding returns the encoding of every variable in ds: data
// variables with at least one dimension get DefaultFillValue; coordinates
// and scalar containers are stored without a fill value so their values are
// kept exactly.
func DefaultEncoding(ds *Dataset) map[string]Encoding {
	enc := make(map[string]Encoding, len(ds.vars))
	for _, v := range ds.vars {
		enc[v.Name] = Encoding{}
	}
	for _, v := range ds.DataVars() {
		if len(v.Dims) > 0 {
			enc[v.Name] = Encoding{FillValue: DefaultFillValue, HasFill: true}
		}
	}
	return enc
}
