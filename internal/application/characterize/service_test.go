package characterize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/antmicro/dram-power-analysis/internal/application"
	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
	"github.com/antmicro/dram-power-analysis/internal/infra/report"
)

// fakeSession replays canned vectors and records every applied corner.
type fakeSession struct {
	applied     []power.Corner
	traceCalls  int
	vectors     []power.RawPowerVector
	queries     int
	failQueryAt int // 1-based query index to fail at, 0 = never
	closed      bool
}

func (f *fakeSession) ApplySyntheticActivity(_ context.Context, _, _ string, periodNS, activity float64) error {
	f.applied = append(f.applied, power.Corner{FrequencyMHz: 1000.0 / periodNS, Activity: activity})
	return nil
}

func (f *fakeSession) ApplyTraceActivity(_ context.Context, _ string, periodNS float64, _, _ string) error {
	f.traceCalls++
	f.applied = append(f.applied, power.Corner{FrequencyMHz: 1000.0 / periodNS, TraceDriven: true})
	return nil
}

func (f *fakeSession) QueryPower(context.Context) (power.RawPowerVector, error) {
	f.queries++
	if f.failQueryAt != 0 && f.queries == f.failQueryAt {
		return nil, &power.QueryError{Err: fmt.Errorf("unresolved timing")}
	}
	vec := f.vectors[(f.queries-1)%len(f.vectors)]
	return vec, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type fakeNormalizer struct {
	calls int
	err   error
}

func (f *fakeNormalizer) NormalizeScope(in, out string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("$scope module TOP $end\n"), 0o644)
}

type fakeHistory struct {
	saved []*power.CornerRecord
}

func (f *fakeHistory) Save(_ context.Context, rec *power.CornerRecord) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeHistory) Latest(context.Context, int) ([]*power.CornerRecord, error) {
	return f.saved, nil
}

func (f *fakeHistory) Summary(context.Context, int) (int, int, float64, error) {
	return 0, len(f.saved), 0, nil
}

func uniformVector(v float64) power.RawPowerVector {
	vec := make(power.RawPowerVector, 24)
	for i := range vec {
		vec[i] = v
	}
	return vec
}

func newService(sess *fakeSession, hist power.History) *Service {
	return &Service{
		OpenSession: func(context.Context) (power.Session, error) { return sess, nil },
		Writer:      report.NewWriter("dram_ctrl"),
		Normalizer:  &fakeNormalizer{},
		History:     hist,
		Clock:       application.SystemClock{},
		Log:         zap.NewNop(),
	}
}

func TestRunSweepWritesFilesInEnumerationOrder(t *testing.T) {
	dir := t.TempDir()
	sess := &fakeSession{vectors: []power.RawPowerVector{uniformVector(1.0)}}
	hist := &fakeHistory{}
	svc := newService(sess, hist)

	res, err := svc.RunSweep(context.Background(), SweepCommand{
		FrequenciesMHz: []float64{100, 200},
		Activities:     []float64{0.0, 0.5, 1.0},
		OutDir:         dir,
		ClockPort:      "clk",
		ResetPort:      "rst",
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, svc.State())
	assert.Equal(t, 6, res.Corners)
	assert.True(t, sess.closed)

	want := []string{
		"power_analysis_sweep_f100_a0.json",
		"power_analysis_sweep_f100_a50.json",
		"power_analysis_sweep_f100_a100.json",
		"power_analysis_sweep_f200_a0.json",
		"power_analysis_sweep_f200_a50.json",
		"power_analysis_sweep_f200_a100.json",
	}
	var got []string
	for _, p := range res.Files {
		got = append(got, filepath.Base(p))
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	assert.Equal(t, want, got)
	assert.Len(t, hist.saved, 6)
	assert.Equal(t, "sweep", hist.saved[0].Mode)
	assert.Equal(t, 5.0, hist.saved[0].TotalW)
}

func TestRunSweepAppliesActivityPerCorner(t *testing.T) {
	sess := &fakeSession{vectors: []power.RawPowerVector{uniformVector(1.0)}}
	svc := newService(sess, nil)

	_, err := svc.RunSweep(context.Background(), SweepCommand{
		FrequenciesMHz: []float64{100},
		Activities:     []float64{0.1, 0.9},
		OutDir:         t.TempDir(),
		ClockPort:      "clk",
		ResetPort:      "rst",
	})
	require.NoError(t, err)

	require.Len(t, sess.applied, 2)
	assert.InDelta(t, 0.1, sess.applied[0].Activity, 1e-12)
	assert.InDelta(t, 0.9, sess.applied[1].Activity, 1e-12)
	assert.InDelta(t, 100.0, sess.applied[0].FrequencyMHz, 1e-9)
}

func TestRunSweepAbortsOnQueryError(t *testing.T) {
	dir := t.TempDir()
	sess := &fakeSession{
		vectors:     []power.RawPowerVector{uniformVector(1.0)},
		failQueryAt: 2,
	}
	svc := newService(sess, nil)

	_, err := svc.RunSweep(context.Background(), SweepCommand{
		FrequenciesMHz: []float64{100},
		Activities:     []float64{0.0, 0.5, 1.0},
		OutDir:         dir,
		ClockPort:      "clk",
		ResetPort:      "rst",
	})

	require.Error(t, err)
	var queryErr *power.QueryError
	assert.ErrorAs(t, err, &queryErr)
	// error names the corner in progress
	assert.Contains(t, err.Error(), "activity=0.5")
	assert.Equal(t, StateFailed, svc.State())
	assert.True(t, sess.closed)

	// the first corner's file stays valid, later corners never ran
	_, err = os.Stat(filepath.Join(dir, "power_analysis_sweep_f100_a0.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "power_analysis_sweep_f100_a50.json"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 2, sess.queries)
}

func TestRunSweepAbortsOnShapeMismatch(t *testing.T) {
	sess := &fakeSession{vectors: []power.RawPowerVector{make(power.RawPowerVector, 23)}}
	svc := newService(sess, nil)

	_, err := svc.RunSweep(context.Background(), SweepCommand{
		FrequenciesMHz: []float64{100},
		Activities:     []float64{0.5},
		OutDir:         t.TempDir(),
		ClockPort:      "clk",
		ResetPort:      "rst",
	})
	var shapeErr *power.ShapeMismatchError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, StateFailed, svc.State())
}

func TestRunSweepOpenFailure(t *testing.T) {
	svc := newService(nil, nil)
	svc.OpenSession = func(context.Context) (power.Session, error) {
		return nil, &power.LoadError{Stage: "link", Path: "dram_ctrl", Err: fmt.Errorf("unresolved design")}
	}

	_, err := svc.RunSweep(context.Background(), SweepCommand{
		FrequenciesMHz: []float64{100},
		Activities:     []float64{0.5},
		OutDir:         t.TempDir(),
		ClockPort:      "clk",
		ResetPort:      "rst",
	})
	var loadErr *power.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, StateFailed, svc.State())
}

func TestRunSweepEmptyGridCompletes(t *testing.T) {
	sess := &fakeSession{vectors: []power.RawPowerVector{uniformVector(1.0)}}
	svc := newService(sess, nil)

	res, err := svc.RunSweep(context.Background(), SweepCommand{
		FrequenciesMHz: nil,
		Activities:     []float64{0.5},
		OutDir:         t.TempDir(),
		ClockPort:      "clk",
		ResetPort:      "rst",
	})
	require.NoError(t, err)
	assert.Zero(t, res.Corners)
	assert.Zero(t, sess.queries)
	assert.Equal(t, StateCompleted, svc.State())
}

func TestRunTrace(t *testing.T) {
	dir := t.TempDir()
	sess := &fakeSession{vectors: []power.RawPowerVector{uniformVector(2.0)}}
	norm := &fakeNormalizer{}
	svc := newService(sess, nil)
	svc.Normalizer = norm

	res, err := svc.RunTrace(context.Background(), TraceCommand{
		FrequencyMHz: 266,
		OutDir:       dir,
		ClockPort:    "clk",
		Waveform:     filepath.Join(dir, "dump.vcd"),
		Scope:        "TOP/dram_ctrl",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, norm.calls)
	assert.Equal(t, 1, sess.traceCalls)
	assert.Equal(t, 1, res.Corners)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "power_analysis_vcd_f266.json", filepath.Base(res.Files[0]))
	assert.Equal(t, StateCompleted, svc.State())
}

func TestRunTraceScopeMismatchAbortsBeforeOpen(t *testing.T) {
	opened := false
	sess := &fakeSession{vectors: []power.RawPowerVector{uniformVector(1.0)}}
	svc := newService(sess, nil)
	svc.OpenSession = func(context.Context) (power.Session, error) {
		opened = true
		return sess, nil
	}
	svc.Normalizer = &fakeNormalizer{err: &power.ScopeMismatchError{Path: "dump.vcd", Reason: "no $scope declaration found"}}

	_, err := svc.RunTrace(context.Background(), TraceCommand{
		FrequencyMHz: 266,
		OutDir:       t.TempDir(),
		ClockPort:    "clk",
		Waveform:     "dump.vcd",
		Scope:        "TOP/dram_ctrl",
	})
	var scopeErr *power.ScopeMismatchError
	require.ErrorAs(t, err, &scopeErr)
	assert.False(t, opened, "session must not open after a scope mismatch")
	assert.Equal(t, StateFailed, svc.State())
}
