package accel

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOptions = errors.New("bvh: invalid build options")
	ErrNilMesh        = errors.New("bvh: nil mesh")
	ErrCorruptTree    = errors.New("bvh: corrupt tree data")
	ErrMeshMismatch   = errors.New("bvh: tree does not match mesh")
	ErrStackOverflow  = errors.New("bvh: traversal stack overflow")
)

// ConfigurationError reports a build option outside its accepted range.
type ConfigurationError struct {
	Option string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bvh: invalid value %v for option %q: %s", e.Value, e.Option, e.Reason)
}

// Is allows errors.Is(err, ErrInvalidOptions) to match configuration errors.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidOptions
}

// IOError wraps failures to read or write persisted trees.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("bvh: %s: %s", e.Op, e.Err.Error())
	}
	return fmt.Sprintf("bvh: %s %s: %s", e.Op, e.Path, e.Err.Error())
}

func (e *IOError) Unwrap() error {
	return e.Err
}
