package tuv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/florianl/matf"
)

type kind int

const (
	kindNumeric kind = iota
	kindChar
	kindStruct
	kindCell
)

func (k kind) String() string {
	switch k {
	case kindNumeric:
		return "numeric"
	case kindChar:
		return "char"
	case kindStruct:
		return "struct"
	case kindCell:
		return "cell"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// node is a MATLAB value reduced to what the totals schema needs: flattened
// numeric data (column major), strings, struct arrays and cell arrays.
type node struct {
	kind  kind
	num   []float64
	str   string
	elems []map[string]*node
	cells []*node
}

func numNode(v ...float64) *node { return &node{kind: kindNumeric, num: v} }

func strNode(s string) *node { return &node{kind: kindChar, str: s} }

// fromMatf converts the Content of a matf matrix into a node.
func fromMatf(content any) (*node, error) {
	switch c := content.(type) {
	case nil:
		return numNode(), nil
	case matf.MatMatrix:
		return fromMatf(c.Content)
	case matf.NumPrt:
		return fromNumeric(c.RealPart)
	case matf.CharPrt:
		return fromChars(c.Chars), nil
	case matf.CellPrt:
		n := &node{kind: kindCell, cells: make([]*node, len(c.Cells))}
		for i, m := range c.Cells {
			v, err := fromMatf(m.Content)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %w", i, err)
			}
			n.cells[i] = v
		}
		return n, nil
	case matf.StructPrt:
		return fromStruct(c)
	case []any:
		return fromNumeric(c)
	}
	return nil, fmt.Errorf("unsupported MAT content of type %T", content)
}

// fromNumeric flattens a matf real part. Elements keep the storage type of
// the file, so every Go numeric type is accepted.
func fromNumeric(part any) (*node, error) {
	if part == nil {
		return numNode(), nil
	}
	vals, ok := part.([]any)
	if !ok {
		return nil, fmt.Errorf("numeric data of type %T", part)
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		x, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return numNode(out...), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("non-numeric value of type %T", v)
}

// fromChars joins the rows of a char array. UTF-16 data reaches us as raw
// bytes, so NUL bytes are dropped.
func fromChars(rows []string) *node {
	s := strings.ReplaceAll(strings.Join(rows, ""), "\x00", "")
	return strNode(strings.TrimSpace(s))
}

// fromStruct converts a struct array. FieldValues holds one value per array
// element for each field; field names arrive NUL padded.
func fromStruct(s matf.StructPrt) (*node, error) {
	n := &node{kind: kindStruct}
	for _, raw := range s.FieldNames {
		name := strings.TrimRight(raw, "\x00")
		for i, v := range s.FieldValues[raw] {
			if i == len(n.elems) {
				n.elems = append(n.elems, map[string]*node{})
			}
			c, err := fromMatf(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", name, err)
			}
			n.elems[i][name] = c
		}
	}
	if len(n.elems) == 0 {
		n.elems = []map[string]*node{{}}
	}
	return n, nil
}
