// Package vars abstracts the experiment variable store: a hierarchical
// key-value tree with paths like /Equipment/<side>/<detector>/variables/<param>
// holding typed arrays. Detectors read a fixed schema from a Source once
// per run; missing keys warn and keep identity defaults, never error.
package vars

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/recoil.report/internal/monitoring"
)

// ErrNotFound reports a path with no value in the store.
var ErrNotFound = errors.New("variable not found")

// Source is the read-only view of the variable store.
type Source interface {
	IntArray(path string) ([]int, error)
	DoubleArray(path string) ([]float64, error)
	String(path string) (string, error)
}

// FillInts copies the array at path into out. A missing or short key
// warns and leaves the untouched entries at their defaults.
func FillInts(src Source, path string, out []int) {
	values, err := src.IntArray(path)
	if err != nil {
		monitoring.Warnf("vars: %q: %v (keeping defaults)", path, err)
		return
	}
	if len(values) != len(out) {
		monitoring.Warnf("vars: %q has %d values, want %d", path, len(values), len(out))
	}
	copy(out, values)
}

// FillDoubles copies the array at path into out, warning like FillInts.
func FillDoubles(src Source, path string, out []float64) {
	values, err := src.DoubleArray(path)
	if err != nil {
		monitoring.Warnf("vars: %q: %v (keeping defaults)", path, err)
		return
	}
	if len(values) != len(out) {
		monitoring.Warnf("vars: %q has %d values, want %d", path, len(values), len(out))
	}
	copy(out, values)
}

// FillString copies the string at path into out, warning when absent.
func FillString(src Source, path string, out *string) {
	value, err := src.String(path)
	if err != nil {
		monitoring.Warnf("vars: %q: %v (keeping default)", path, err)
		return
	}
	*out = value
}

// FileSource reads the variable tree from a YAML file. Path segments map
// to nested mapping keys; leaf values are scalars or sequences.
type FileSource struct {
	root map[string]interface{}
}

// LoadFile parses a YAML variable file.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variables file: %w", err)
	}
	return Parse(data)
}

// Parse builds a FileSource from YAML bytes.
func Parse(data []byte) (*FileSource, error) {
	var root map[string]interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse variables file: %w", err)
	}
	return &FileSource{root: root}, nil
}

// lookup walks the tree along the /-separated path.
func (f *FileSource) lookup(path string) (interface{}, error) {
	node := interface{}(f.root)
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		node, ok = m[seg]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
	}
	return node, nil
}

// IntArray returns the integer array stored at path.
func (f *FileSource) IntArray(path string) ([]int, error) {
	node, err := f.lookup(path)
	if err != nil {
		return nil, err
	}
	seq, ok := node.([]interface{})
	if !ok {
		seq = []interface{}{node}
	}
	out := make([]int, len(seq))
	for i, v := range seq {
		switch n := v.(type) {
		case int:
			out[i] = n
		case float64:
			out[i] = int(n)
		default:
			return nil, fmt.Errorf("%q[%d]: not an integer (%T)", path, i, v)
		}
	}
	return out, nil
}

// DoubleArray returns the float array stored at path.
func (f *FileSource) DoubleArray(path string) ([]float64, error) {
	node, err := f.lookup(path)
	if err != nil {
		return nil, err
	}
	seq, ok := node.([]interface{})
	if !ok {
		seq = []interface{}{node}
	}
	out := make([]float64, len(seq))
	for i, v := range seq {
		switch n := v.(type) {
		case int:
			out[i] = float64(n)
		case float64:
			out[i] = n
		default:
			return nil, fmt.Errorf("%q[%d]: not a number (%T)", path, i, v)
		}
	}
	return out, nil
}

// String returns the string stored at path.
func (f *FileSource) String(path string) (string, error) {
	node, err := f.lookup(path)
	if err != nil {
		return "", err
	}
	s, ok := node.(string)
	if !ok {
		return "", fmt.Errorf("%q: not a string (%T)", path, node)
	}
	return s, nil
}

// MapSource is a flat in-memory Source keyed by full path, for tests and
// programmatic configuration.
type MapSource map[string]interface{}

// IntArray returns the integer array stored at path.
func (m MapSource) IntArray(path string) ([]int, error) {
	v, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	out, ok := v.([]int)
	if !ok {
		return nil, fmt.Errorf("%q: not an int array (%T)", path, v)
	}
	return out, nil
}

// DoubleArray returns the float array stored at path.
func (m MapSource) DoubleArray(path string) ([]float64, error) {
	v, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	out, ok := v.([]float64)
	if !ok {
		return nil, fmt.Errorf("%q: not a double array (%T)", path, v)
	}
	return out, nil
}

// String returns the string stored at path.
func (m MapSource) String(path string) (string, error) {
	v, ok := m[path]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	out, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q: not a string (%T)", path, v)
	}
	return out, nil
}
