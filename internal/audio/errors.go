package audio

import "fmt"

// LoadError indicates that an input file could not be read or decoded.
// It is surfaced immediately and never retried.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load audio %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
