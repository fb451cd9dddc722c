// Package pt drives an external static timing/power analysis shell
// (pt_shell compatible) over a command pipe. The engine's estimation
// algorithm is opaque to this package; only its command surface and the
// shape of its numeric output matter here.
package pt

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
)

// resetToggleRate pins the reset input low enough that reset toggling is not
// counted as real stimulus.
const resetToggleRate = 0.05

// OpenParams names every design input one session loads.
type OpenParams struct {
	Binary       string
	Args         []string
	LibraryDir   string
	Netlist      string
	TopDesign    string
	Constraints  string // optional SDC
	Parasitics   string // optional SPEF
	QueryCommand string
}

// Session owns one engine process for an entire run. Clock and activity
// state live inside the engine and are overwritten per corner, so a session
// has a single owner and corners are strictly sequential.
type Session struct {
	tr    transport
	query string
	log   *zap.Logger
}

// Open starts the engine, loads every standard-cell library found in the
// library directory, reads and links the netlist against the top design
// name, and optionally reads constraints and parasitics. Any failure is a
// LoadError and aborts the whole run; there is no partial-session recovery.
func Open(ctx context.Context, p OpenParams, log *zap.Logger) (*Session, error) {
	libs, err := findLibraries(p.LibraryDir)
	if err != nil {
		return nil, &power.LoadError{Stage: "libraries", Path: p.LibraryDir, Err: err}
	}

	tr, err := newShellTransport(ctx, p.Binary, p.Args)
	if err != nil {
		return nil, &power.LoadError{Stage: "engine", Path: p.Binary, Err: err}
	}

	s := &Session{tr: tr, query: p.QueryCommand, log: log}

	if _, err := tr.send("set power_enable_analysis true"); err != nil {
		s.Close()
		return nil, &power.LoadError{Stage: "engine", Path: p.Binary, Err: err}
	}
	for _, lib := range libs {
		if _, err := tr.send(readLibraryCommand(lib)); err != nil {
			s.Close()
			return nil, &power.LoadError{Stage: "libraries", Path: lib, Err: err}
		}
		log.Debug("loaded standard-cell library", zap.String("path", lib))
	}
	if _, err := tr.send(fmt.Sprintf("read_verilog {%s}", p.Netlist)); err != nil {
		s.Close()
		return nil, &power.LoadError{Stage: "netlist", Path: p.Netlist, Err: err}
	}
	if _, err := tr.send(fmt.Sprintf("link_design %s", p.TopDesign)); err != nil {
		s.Close()
		return nil, &power.LoadError{Stage: "link", Path: p.TopDesign, Err: err}
	}
	if p.Constraints != "" {
		if _, err := tr.send(fmt.Sprintf("read_sdc {%s}", p.Constraints)); err != nil {
			s.Close()
			return nil, &power.LoadError{Stage: "constraints", Path: p.Constraints, Err: err}
		}
	}
	if p.Parasitics != "" {
		if _, err := tr.send(fmt.Sprintf("read_parasitics {%s}", p.Parasitics)); err != nil {
			s.Close()
			return nil, &power.LoadError{Stage: "parasitics", Path: p.Parasitics, Err: err}
		}
	}

	log.Info("analysis session ready",
		zap.String("top", p.TopDesign),
		zap.Int("libraries", len(libs)))
	return s, nil
}

// ApplySyntheticActivity recreates the clock at the corner's period,
// propagates it, applies a uniform toggle rate to all inputs and then pins
// the reset input back down. It must be re-invoked for every corner.
func (s *Session) ApplySyntheticActivity(ctx context.Context, clockPort, resetPort string, periodNS, activity float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmds := []string{
		fmt.Sprintf("create_clock -name %s -period %g [get_ports {%s}]", clockPort, periodNS, clockPort),
		"set_propagated_clock [all_clocks]",
		fmt.Sprintf("set_switching_activity -toggle_rate %g -static_probability 0.5 [all_inputs]", activity),
		fmt.Sprintf("set_switching_activity -toggle_rate %g [get_ports {%s}]", resetToggleRate, resetPort),
	}
	for _, cmd := range cmds {
		if _, err := s.tr.send(cmd); err != nil {
			return fmt.Errorf("apply synthetic activity: %w", err)
		}
	}
	return nil
}

// ApplyTraceActivity recreates and propagates the clock, then loads
// per-signal switching activity from a scope-corrected waveform.
func (s *Session) ApplyTraceActivity(ctx context.Context, clockPort string, periodNS float64, waveformPath, scope string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmds := []string{
		fmt.Sprintf("create_clock -name %s -period %g [get_ports {%s}]", clockPort, periodNS, clockPort),
		"set_propagated_clock [all_clocks]",
		fmt.Sprintf("read_vcd -strip_path %s {%s}", scope, waveformPath),
	}
	for _, cmd := range cmds {
		if _, err := s.tr.send(cmd); err != nil {
			return fmt.Errorf("apply trace activity: %w", err)
		}
	}
	return nil
}

// QueryPower runs the engine's power estimator at current state and returns
// its numeric output flattened into a vector, in emission order.
func (s *Session) QueryPower(ctx context.Context) (power.RawPowerVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.tr.send(s.query)
	if err != nil {
		return nil, &power.QueryError{Output: out, Err: err}
	}
	vec := parseVector(out)
	if len(vec) == 0 {
		return nil, &power.QueryError{Output: out, Err: fmt.Errorf("no numeric values in engine output")}
	}
	return vec, nil
}

// Close shuts the engine process down. Safe to call after a failed Open.
func (s *Session) Close() error {
	return s.tr.close()
}

// findLibraries lists every characterized library file in dir, sorted so
// load order is reproducible.
func findLibraries(dir string) ([]string, error) {
	var libs []string
	for _, pattern := range []string{"*.db", "*.lib"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		libs = append(libs, matches...)
	}
	if len(libs) == 0 {
		return nil, fmt.Errorf("no .db or .lib files in %s", dir)
	}
	sort.Strings(libs)
	return libs, nil
}

func readLibraryCommand(path string) string {
	if filepath.Ext(path) == ".db" {
		return fmt.Sprintf("read_db {%s}", path)
	}
	return fmt.Sprintf("read_lib {%s}", path)
}

// parseVector flattens every numeric token in the engine output, in order.
// Unit suffixes and table decoration are skipped; only bare numbers count.
func parseVector(out string) power.RawPowerVector {
	var vec power.RawPowerVector
	for _, tok := range strings.Fields(out) {
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			vec = append(vec, v)
		}
	}
	return vec
}
