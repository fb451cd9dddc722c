// Package characterize holds the sweep and trace run drivers.
package characterize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antmicro/dram-power-analysis/internal/application"
	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
)

// State of one run. Failed is terminal and reachable from every
// non-terminal state.
type State string

const (
	StateIdle              State = "idle"
	StateLoadingDesign     State = "loading_design"
	StateEvaluatingCorners State = "evaluating_corners"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// SessionOpener defers engine startup to the caller so the service owns the
// session's lifetime without knowing how it is built.
type SessionOpener func(ctx context.Context) (power.Session, error)

// Service implements the sweep and trace use-cases. It is strictly
// sequential: one engine session serves a whole run and its clock/activity
// state is overwritten between corners, so corners are never evaluated in
// parallel.
type Service struct {
	OpenSession SessionOpener
	Writer      power.ReportWriter
	Normalizer  power.ScopeNormalizer // trace mode only
	History     power.History         // optional
	Artifacts   power.ArtifactStore   // optional
	Clock       application.Clock
	Log         *zap.Logger

	state State
}

// SweepCommand describes one synthetic sweep run.
type SweepCommand struct {
	FrequenciesMHz []float64
	Activities     []float64
	OutDir         string
	ClockPort      string
	ResetPort      string
}

// TraceCommand describes one trace-driven run.
type TraceCommand struct {
	FrequencyMHz float64
	OutDir       string
	ClockPort    string
	Waveform     string
	Scope        string
}

// RunResult summarizes a completed run.
type RunResult struct {
	RunID   string   `json:"run_id"`
	Mode    string   `json:"mode"`
	Corners int      `json:"corners"`
	Files   []string `json:"files"`
}

// State reports the driver's current run state.
func (s *Service) State() State {
	if s.state == "" {
		return StateIdle
	}
	return s.state
}

// RunSweep evaluates the full frequency x activity grid in enumeration
// order. Any stage error is fatal: the run stops at the corner in progress
// and files already written stay on disk.
func (s *Service) RunSweep(ctx context.Context, cmd SweepCommand) (RunResult, error) {
	runID := uuid.New().String()
	corners := power.EnumerateCorners(cmd.FrequenciesMHz, cmd.Activities)
	s.Log.Info("starting sweep run",
		zap.String("run_id", runID),
		zap.Int("corners", len(corners)))

	sess, err := s.openSession(ctx, cmd.OutDir)
	if err != nil {
		return RunResult{RunID: runID, Mode: "sweep"}, err
	}
	defer sess.Close()

	s.setState(StateEvaluatingCorners)
	res := RunResult{RunID: runID, Mode: "sweep"}
	for _, corner := range corners {
		if err := sess.ApplySyntheticActivity(ctx, cmd.ClockPort, cmd.ResetPort, corner.PeriodNS(), corner.Activity); err != nil {
			return res, s.fail(corner, err)
		}
		path, err := s.evaluate(ctx, sess, runID, "sweep", cmd.OutDir, corner)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)
		res.Corners++
	}

	s.setState(StateCompleted)
	s.Log.Info("sweep run completed", zap.String("run_id", runID), zap.Int("corners", res.Corners))
	return res, nil
}

// RunTrace normalizes the waveform's top scope, then evaluates the single
// trace-driven corner. Scope normalization happens before the session is
// opened; its failure aborts the run with nothing loaded.
func (s *Service) RunTrace(ctx context.Context, cmd TraceCommand) (RunResult, error) {
	runID := uuid.New().String()
	corner := power.TraceCorner(cmd.FrequencyMHz)
	s.Log.Info("starting trace run",
		zap.String("run_id", runID),
		zap.String("waveform", cmd.Waveform),
		zap.String("scope", cmd.Scope))

	if err := os.MkdirAll(cmd.OutDir, 0o755); err != nil {
		s.setState(StateFailed)
		return RunResult{RunID: runID, Mode: "trace"}, err
	}
	normalized := filepath.Join(cmd.OutDir, "activity_normalized.vcd")
	if err := s.Normalizer.NormalizeScope(cmd.Waveform, normalized); err != nil {
		s.setState(StateFailed)
		return RunResult{RunID: runID, Mode: "trace"}, err
	}

	sess, err := s.openSession(ctx, cmd.OutDir)
	if err != nil {
		return RunResult{RunID: runID, Mode: "trace"}, err
	}
	defer sess.Close()

	s.setState(StateEvaluatingCorners)
	res := RunResult{RunID: runID, Mode: "trace"}
	if err := sess.ApplyTraceActivity(ctx, cmd.ClockPort, corner.PeriodNS(), normalized, cmd.Scope); err != nil {
		return res, s.fail(corner, err)
	}
	path, err := s.evaluate(ctx, sess, runID, "trace", cmd.OutDir, corner)
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, path)
	res.Corners = 1

	s.setState(StateCompleted)
	s.Log.Info("trace run completed", zap.String("run_id", runID))
	return res, nil
}

func (s *Service) openSession(ctx context.Context, outDir string) (power.Session, error) {
	s.setState(StateLoadingDesign)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		s.setState(StateFailed)
		return nil, err
	}
	sess, err := s.OpenSession(ctx)
	if err != nil {
		s.setState(StateFailed)
		return nil, err
	}
	return sess, nil
}

// evaluate runs query -> reshape -> write for one corner whose activity is
// already applied, then feeds the optional artifact and history sinks.
func (s *Service) evaluate(ctx context.Context, sess power.Session, runID, mode, outDir string, corner power.Corner) (string, error) {
	vec, err := sess.QueryPower(ctx)
	if err != nil {
		return "", s.fail(corner, err)
	}
	rep, err := power.Reshape(vec)
	if err != nil {
		return "", s.fail(corner, err)
	}
	path := filepath.Join(outDir, corner.ReportFileName())
	if err := s.Writer.Write(path, corner, rep); err != nil {
		return "", s.fail(corner, err)
	}
	s.Log.Info("corner evaluated",
		zap.String("corner", corner.String()),
		zap.String("report", path),
		zap.Float64("total_w", rep[power.MetricTotal][power.CategoryTotal]))

	// Artifact upload and history rows are best effort: the report file set
	// on disk is the contract, so sink failures are logged, not fatal.
	artifactURL := ""
	if s.Artifacts != nil {
		url, err := s.Artifacts.Upload(ctx, path, runID+"/"+corner.ReportFileName())
		if err != nil {
			s.Log.Warn("artifact upload failed", zap.String("report", path), zap.Error(err))
		} else {
			artifactURL = url
		}
	}
	if s.History != nil {
		rec := cornerRecord(runID, mode, corner, rep, path, artifactURL, s.Clock)
		if err := s.History.Save(ctx, rec); err != nil {
			s.Log.Warn("history save failed", zap.String("corner", corner.String()), zap.Error(err))
		}
	}
	return path, nil
}

func (s *Service) fail(corner power.Corner, err error) error {
	s.setState(StateFailed)
	return fmt.Errorf("corner %s: %w", corner, err)
}

func (s *Service) setState(next State) {
	s.state = next
	s.Log.Debug("run state", zap.String("state", string(next)))
}

func cornerRecord(runID, mode string, corner power.Corner, rep power.PowerReport, path, artifactURL string, clock application.Clock) *power.CornerRecord {
	activity := power.ActivityTrace
	if !corner.TraceDriven {
		activity = fmt.Sprintf("%g", corner.Activity)
	}
	return &power.CornerRecord{
		ID:           runID + "/" + corner.ReportFileName(),
		RunID:        runID,
		Mode:         mode,
		FrequencyMHz: corner.FrequencyMHz,
		Activity:     activity,
		ReportPath:   path,
		ArtifactURL:  artifactURL,
		InternalW:    rep[power.MetricInternal][power.CategoryTotal],
		SwitchingW:   rep[power.MetricSwitching][power.CategoryTotal],
		LeakageW:     rep[power.MetricLeakage][power.CategoryTotal],
		TotalW:       rep[power.MetricTotal][power.CategoryTotal],
		Status:       "ok",
		EvaluatedAt:  clock.Now(),
	}
}
