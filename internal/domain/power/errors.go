package power

import "fmt"

// LoadError means a library, netlist, constraints or parasitics input could
// not be loaded or the top design could not be linked. Fatal before any
// corner is evaluated.
type LoadError struct {
	Stage string // libraries | netlist | link | constraints | parasitics
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load %s %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ScopeMismatchError means the waveform's top scope could not be normalized
// to the identifier the engine's trace loader expects.
type ScopeMismatchError struct {
	Path   string
	Reason string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("waveform scope mismatch in %s: %s", e.Path, e.Reason)
}

// ShapeMismatchError means a raw power vector does not have the expected
// shape. It indicates a structural incompatibility with the engine's output
// format, so it is fatal for the whole run.
type ShapeMismatchError struct {
	Length int
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("power vector shape mismatch (length %d): %s", e.Length, e.Reason)
}

// QueryError means the engine failed to compute power at the current state.
type QueryError struct {
	Output string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("power query failed: %v: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("power query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// WriteError means a report file could not be serialized to disk.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
