// Package tuv reads HF radar total vector (TUV) structs saved by the HFRProgs
// MATLAB toolbox.
package tuv

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidInput matches every per-file input problem. Callers skip such
	// files instead of aborting a batch.
	ErrInvalidInput = errors.New("invalid totals file")
	// ErrUnreadable means the file could not be parsed as a MAT file holding a
	// TUV struct.
	ErrUnreadable = fmt.Errorf("%w: unreadable", ErrInvalidInput)
	// ErrMissingField means a field required by the processing method is
	// absent or has the wrong type or length.
	ErrMissingField = fmt.Errorf("%w: missing required field", ErrInvalidInput)
)

// Method is the algorithm HFRProgs used to combine radials into totals.
type Method int

const (
	// OI is optimal interpolation (makeTotalsOI).
	OI Method = iota + 1
	// LSQ is unweighted least squares (makeTotals).
	LSQ
)

// ParseMethod parses "oi" or "lsq", ignoring case.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oi":
		return OI, nil
	case "lsq":
		return LSQ, nil
	}
	return 0, fmt.Errorf("unknown method %q: want oi or lsq", s)
}

// String returns the method name accepted by ParseMethod.
func (m Method) String() string {
	switch m {
	case OI:
		return "oi"
	case LSQ:
		return "lsq"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Label is the human readable method name used in file metadata.
func (m Method) Label() string {
	switch m {
	case OI:
		return "Optimal Interpolation"
	case LSQ:
		return "Unweighted Least Squares"
	}
	return m.String()
}

// Params holds the method specific processing parameters. It is implemented
// by OIParams and LSQParams only.
type Params interface {
	Method() Method
	// Values returns the parameters in their documented output order.
	Values() []float64
	// Descriptions returns one line per entry of Values.
	Descriptions() []string
	sealed()
}

// OIParams are the makeTotalsOI parameters.
type OIParams struct {
	MaxSpeed      float64 // cleanTotals maxspd, cm/s
	MinSites      float64
	MinRads       float64
	TempThreshold float64 // fraction of a day
	Sx, Sy        float64 // decorrelation scales
	ModelVariance float64 // mdlvar, cm2 s-2
	ErrorVariance float64 // errvar, cm2 s-2
}

// Method returns OI.
func (OIParams) Method() Method { return OI }
func (OIParams) sealed()        {}

// Values returns maxspd, MinNumSites, MinNumRads, tempthresh, sx, sy, mdlvar
// and errvar.
func (p OIParams) Values() []float64 {
	return []float64{p.MaxSpeed, p.MinSites, p.MinRads, p.TempThreshold, p.Sx, p.Sy, p.ModelVariance, p.ErrorVariance}
}

// Descriptions documents Values for the processing_parameters comment.
func (OIParams) Descriptions() []string {
	return []string{
		"Maximum Total Speed Threshold (cm s-1)",
		"Minimum number of radial sites",
		"Minimum number of radial vectors",
		"Temporal search window for radial solutions (Fraction of a day)",
		"Decorrelation scales in the north direction",
		"Decorrelation scales in the east direction",
		"Signal variance of the surface current fields (cm2 s-2)",
		"Data error variance of the input radial velocities (cm2 s-2)",
	}
}

// LSQParams are the makeTotals parameters.
type LSQParams struct {
	MaxSpeed         float64
	MinSites         float64
	MinRads          float64
	TempThreshold    float64
	SpatialThreshold float64 // search radius, km
}

// Method returns LSQ.
func (LSQParams) Method() Method { return LSQ }
func (LSQParams) sealed()        {}

// Values returns maxspd, MinNumSites, MinNumRads, tempthresh and spatthresh.
func (p LSQParams) Values() []float64 {
	return []float64{p.MaxSpeed, p.MinSites, p.MinRads, p.TempThreshold, p.SpatialThreshold}
}

// Descriptions documents Values for the processing_parameters comment.
func (LSQParams) Descriptions() []string {
	return []string{
		"Maximum Total Speed Threshold (cm s-1)",
		"Minimum number of radial sites.",
		"Minimum number of radial vectors.",
		"Temporal search window for radial solutions (Fractions of a day)",
		"Spatial search radius for radial solutions (km)",
	}
}

// Totals is one TUV struct: scattered total vectors and their provenance.
// All per-point slices have the same length.
type Totals struct {
	DomainName string
	// TimeStamp is TUV.TimeStamp converted from a MATLAB datenum; zero when
	// the struct does not carry one.
	TimeStamp time.Time

	Lon, Lat       []float64
	U, V           []float64
	UUnits, VUnits string

	UErr, VErr   []float64
	UVCovariance []float64
	NumRads      []float64

	Params Params
}

// Len returns the number of total vectors.
func (t *Totals) Len() int { return len(t.Lon) }
