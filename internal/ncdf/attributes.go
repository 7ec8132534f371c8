package ncdf

import (
	"fmt"
	"strconv"

	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Attributes is an ordered set of netCDF attributes. Values are strings or
// numbers (int32, float32, float64, and slices of those).
type Attributes struct {
	keys []string
	vals map[string]any
}

// NewAttributes returns an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{vals: map[string]any{}}
}

// Set sets key to v. A new key is appended; an existing key keeps its
// position. Go ints are stored as int32 and bools as "true"/"false".
func (a *Attributes) Set(key string, v any) {
	switch x := v.(type) {
	case int:
		v = int32(x)
	case int64:
		v = int32(x)
	case uint:
		v = int32(x)
	case bool:
		v = strconv.FormatBool(x)
	}
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = v
}

// Get returns the value of key.
func (a *Attributes) Get(key string) (any, bool) {
	v, ok := a.vals[key]
	return v, ok
}

// String returns the value of key if it is a string.
func (a *Attributes) String(key string) string {
	s, _ := a.vals[key].(string)
	return s
}

// Delete removes key.
func (a *Attributes) Delete(key string) {
	if _, ok := a.vals[key]; !ok {
		return
	}
	delete(a.vals, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i:i], a.keys[i+1:]...)
			break
		}
	}
}

// Merge sets every attribute of b on a, in b's order.
func (a *Attributes) Merge(b *Attributes) {
	if b == nil {
		return
	}
	for _, k := range b.keys {
		a.Set(k, b.vals[k])
	}
}

// Keys returns the attribute names in order.
func (a *Attributes) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Len returns the number of attributes.
func (a *Attributes) Len() int { return len(a.keys) }

func (a *Attributes) orderedMap() (*util.OrderedMap, error) {
	vals := make(map[string]any, len(a.vals))
	for _, k := range a.keys {
		v := a.vals[k]
		switch v.(type) {
		case string, int8, int16, int32, float32, float64,
			[]int8, []int16, []int32, []float32, []float64:
		default:
			return nil, fmt.Errorf("attribute %s: unsupported type %T", k, v)
		}
		vals[k] = v
	}
	return util.NewOrderedMap(a.Keys(), vals)
}
