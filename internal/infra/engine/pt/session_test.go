package pt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
)

// fakeTransport records commands and replies from a canned script.
type fakeTransport struct {
	sent    []string
	replies map[string]string
	failOn  string
	closed  bool
}

func (f *fakeTransport) send(cmd string) (string, error) {
	f.sent = append(f.sent, cmd)
	if f.failOn != "" && cmd == f.failOn {
		return "", fmt.Errorf("engine reported: Error: unresolved timing")
	}
	return f.replies[cmd], nil
}

func (f *fakeTransport) close() error {
	f.closed = true
	return nil
}

func newFakeSession(tr *fakeTransport, query string) *Session {
	return &Session{tr: tr, query: query, log: zap.NewNop()}
}

func TestApplySyntheticActivityCommands(t *testing.T) {
	tr := &fakeTransport{}
	s := newFakeSession(tr, "report_power -nosplit")

	err := s.ApplySyntheticActivity(context.Background(), "clk", "rst", 10.0, 0.5)
	require.NoError(t, err)

	require.Len(t, tr.sent, 4)
	assert.Equal(t, "create_clock -name clk -period 10 [get_ports {clk}]", tr.sent[0])
	assert.Equal(t, "set_propagated_clock [all_clocks]", tr.sent[1])
	assert.Equal(t, "set_switching_activity -toggle_rate 0.5 -static_probability 0.5 [all_inputs]", tr.sent[2])
	// reset activity is pinned low after the uniform assignment
	assert.Equal(t, "set_switching_activity -toggle_rate 0.05 [get_ports {rst}]", tr.sent[3])
}

func TestApplyTraceActivityCommands(t *testing.T) {
	tr := &fakeTransport{}
	s := newFakeSession(tr, "report_power -nosplit")

	err := s.ApplyTraceActivity(context.Background(), "clk", 3.75, "/tmp/dump.vcd", "TOP/dram_ctrl")
	require.NoError(t, err)

	require.Len(t, tr.sent, 3)
	assert.Equal(t, "read_vcd -strip_path TOP/dram_ctrl {/tmp/dump.vcd}", tr.sent[2])
}

func TestQueryPowerParsesFlatVector(t *testing.T) {
	const query = "report_power -nosplit"
	tr := &fakeTransport{replies: map[string]string{
		query: "Power Group  Internal Switching Leakage Total\n" +
			"totals 4.0 3.0 2.0 9.0\n" +
			"sequential 1.0 1.0 1.0 3.0\n" +
			"combinational 1.0 1.0 1.0 3.0\n" +
			"clock 1.0 1.0 1.0 3.0\n" +
			"macro 0.0 0.0 0.0 0.0\n" +
			"pad 1.0 1.0 1.0 3.0\n",
	}}
	s := newFakeSession(tr, query)

	vec, err := s.QueryPower(context.Background())
	require.NoError(t, err)
	require.Len(t, vec, 24)
	assert.Equal(t, power.RawPowerVector{4, 3, 2, 9}, vec[:4])

	rep, err := power.Reshape(vec)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rep[power.MetricInternal][power.CategoryTotal])
}

func TestQueryPowerEngineError(t *testing.T) {
	const query = "report_power -nosplit"
	tr := &fakeTransport{failOn: query}
	s := newFakeSession(tr, query)

	_, err := s.QueryPower(context.Background())
	var queryErr *power.QueryError
	assert.ErrorAs(t, err, &queryErr)
}

func TestQueryPowerNoNumbers(t *testing.T) {
	const query = "report_power -nosplit"
	tr := &fakeTransport{replies: map[string]string{query: "nothing to report"}}
	s := newFakeSession(tr, query)

	_, err := s.QueryPower(context.Background())
	var queryErr *power.QueryError
	assert.ErrorAs(t, err, &queryErr)
}

func TestFindLibraries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"slow.db", "fast.db", "io.lib", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	libs, err := findLibraries(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "fast.db"),
		filepath.Join(dir, "io.lib"),
		filepath.Join(dir, "slow.db"),
	}, libs)
}

func TestFindLibrariesEmptyDir(t *testing.T) {
	_, err := findLibraries(t.TempDir())
	assert.Error(t, err)
}

func TestReadLibraryCommand(t *testing.T) {
	assert.Equal(t, "read_db {/l/a.db}", readLibraryCommand("/l/a.db"))
	assert.Equal(t, "read_lib {/l/a.lib}", readLibraryCommand("/l/a.lib"))
}
