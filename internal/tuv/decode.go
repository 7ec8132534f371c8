package tuv

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldSet names the method specific locations of the TUV fields.
type fieldSet struct {
	errorEstimates string // struct array element holding Uerr, Verr, UVCovariance
	numRads        string
	params         string
}

var fieldSets = map[Method]fieldSet{
	OI: {
		errorEstimates: "ErrorEstimates[0]",
		numRads:        "OtherMatrixVars.makeTotalsOI_TotalsNumRads",
		params:         "OtherMetadata.makeTotalsOI.parameters",
	},
	LSQ: {
		errorEstimates: "ErrorEstimates[1]",
		numRads:        "OtherMatrixVars.makeTotals_TotalsNumRads",
		params:         "OtherMetadata.makeTotals.parameters",
	},
}

// decoder reads typed values out of a TUV node and keeps the first error.
type decoder struct {
	root *node
	err  error
}

func (d *decoder) fail(path, format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("TUV.%s: %s: %w", path, fmt.Sprintf(format, args...), ErrMissingField)
	}
}

// lookup resolves a dotted path. A segment may select a struct array element
// with name[i]; without an index the first element is used.
func (d *decoder) lookup(path string) (*node, bool) {
	n := d.root
	for _, seg := range strings.Split(path, ".") {
		name, idx, indexed := seg, 0, false
		if i := strings.IndexByte(seg, '['); i >= 0 && strings.HasSuffix(seg, "]") {
			v, err := strconv.Atoi(seg[i+1 : len(seg)-1])
			if err != nil || v < 0 {
				return nil, false
			}
			name, idx, indexed = seg[:i], v, true
		}
		if n.kind != kindStruct || len(n.elems) == 0 {
			return nil, false
		}
		next, ok := n.elems[0][name]
		if !ok {
			return nil, false
		}
		if indexed {
			if next.kind != kindStruct || idx >= len(next.elems) {
				return nil, false
			}
			next = &node{kind: kindStruct, elems: next.elems[idx : idx+1]}
		}
		n = next
	}
	return n, true
}

func (d *decoder) floats(path string, want int) []float64 {
	if d.err != nil {
		return nil
	}
	n, ok := d.lookup(path)
	if !ok {
		d.fail(path, "not found")
		return nil
	}
	if n.kind != kindNumeric {
		d.fail(path, "%s value, want numeric", n.kind)
		return nil
	}
	if want >= 0 && len(n.num) != want {
		d.fail(path, "%d values, want %d", len(n.num), want)
		return nil
	}
	return n.num
}

func (d *decoder) scalar(path string) float64 {
	v := d.floats(path, 1)
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func (d *decoder) str(path string) string {
	if d.err != nil {
		return ""
	}
	n, ok := d.lookup(path)
	if !ok {
		d.fail(path, "not found")
		return ""
	}
	return d.asString(path, n)
}

func (d *decoder) asString(path string, n *node) string {
	switch {
	case n.kind == kindChar:
		return n.str
	case n.kind == kindNumeric && len(n.num) == 0:
		// MATLAB saves '' as an empty double in some versions.
		return ""
	}
	d.fail(path, "%s value, want char", n.kind)
	return ""
}

// optional returns the node at path if present.
func (d *decoder) optional(path string) (*node, bool) {
	if d.err != nil {
		return nil, false
	}
	return d.lookup(path)
}

// decode validates a TUV struct against the schema of method m.
func decode(root *node, m Method) (*Totals, error) {
	fs, ok := fieldSets[m]
	if !ok {
		return nil, fmt.Errorf("decode totals: %v", m)
	}
	if root.kind != kindStruct {
		return nil, fmt.Errorf("TUV is a %s value, want struct: %w", root.kind, ErrUnreadable)
	}
	d := &decoder{root: root}
	t := &Totals{}

	if n, ok := d.optional("DomainName"); ok {
		t.DomainName = d.asString("DomainName", n)
	}
	if n, ok := d.optional("TimeStamp"); ok && n.kind == kindNumeric && len(n.num) == 1 {
		t.TimeStamp = DatenumToTime(n.num[0])
	}

	lonlat := d.floats("LonLat", -1)
	if d.err == nil && len(lonlat)%2 != 0 {
		d.fail("LonLat", "%d values, want two columns", len(lonlat))
	}
	n := len(lonlat) / 2
	if d.err == nil {
		// Column major N x 2: longitudes first.
		t.Lon, t.Lat = lonlat[:n], lonlat[n:]
	}
	t.U = d.floats("U", n)
	t.V = d.floats("V", n)
	t.UUnits = d.str("UUnits")
	t.VUnits = d.str("VUnits")

	t.UErr = d.floats(fs.errorEstimates+".Uerr", n)
	t.VErr = d.floats(fs.errorEstimates+".Verr", n)
	t.UVCovariance = d.floats(fs.errorEstimates+".UVCovariance", n)
	t.NumRads = d.floats(fs.numRads, n)

	maxSpeed := d.scalar("OtherMetadata.cleanTotals.maxspd")
	p := fs.params + "."
	switch m {
	case OI:
		t.Params = OIParams{
			MaxSpeed:      maxSpeed,
			MinSites:      d.scalar(p + "MinNumSites"),
			MinRads:       d.scalar(p + "MinNumRads"),
			TempThreshold: d.scalar(p + "tempthresh"),
			Sx:            d.scalar(p + "sx"),
			Sy:            d.scalar(p + "sy"),
			ModelVariance: d.scalar(p + "mdlvar"),
			ErrorVariance: d.scalar(p + "errvar"),
		}
	case LSQ:
		t.Params = LSQParams{
			MaxSpeed:         maxSpeed,
			MinSites:         d.scalar(p + "MinNumSites"),
			MinRads:          d.scalar(p + "MinNumRads"),
			TempThreshold:    d.scalar(p + "tempthresh"),
			SpatialThreshold: d.scalar(p + "spatthresh"),
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return t, nil
}
