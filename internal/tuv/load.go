package tuv

import (
	"errors"
	"fmt"
	"io"

	"github.com/florianl/matf"
)

// TUVName is the MAT variable holding the totals struct.
const TUVName = "TUV"

// Load reads the TUV struct from a MAT file and validates it against the
// schema of method m.
func Load(path string, m Method) (*Totals, error) {
	root, err := readTUV(path)
	if err != nil {
		return nil, err
	}
	return decode(root, m)
}

func readTUV(path string) (root *node, err error) {
	defer func() {
		// matf panics on some malformed inputs.
		if r := recover(); r != nil {
			root, err = nil, fmt.Errorf("%s: %v: %w", path, r, ErrUnreadable)
		}
	}()

	f, err := matf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrUnreadable)
	}
	defer matf.Close(f)

	for {
		el, err := matf.ReadDataElement(f)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrUnreadable)
		}
		if el.Name == TUVName {
			root, err := fromMatf(el.Content)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %v: %w", path, TUVName, err, ErrUnreadable)
			}
			return root, nil
		}
	}
	return nil, fmt.Errorf("%s: no %s variable: %w", path, TUVName, ErrUnreadable)
}
