// Package report serializes per-corner power reports to disk.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
)

// Writer emits one JSON file per corner. Key order is fixed (metrics in
// internal/switching/leakage/total order, categories in sequential/
// combinational/clock/macro/pad/total order) so report files diff cleanly
// across runs.
type Writer struct {
	Prefix string
}

// NewWriter returns a writer emitting "<prefix>__power__<metric>__<category>"
// result keys.
func NewWriter(prefix string) *Writer {
	return &Writer{Prefix: prefix}
}

// Write serializes the corner's report to path. The file appears complete or
// the call fails with a WriteError; a crash mid-write can still leave a
// partial file behind, which the next run overwrites.
func (w *Writer) Write(path string, corner power.Corner, rep power.PowerReport) error {
	data, err := w.marshal(corner, rep)
	if err != nil {
		return &power.WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &power.WriteError{Path: path, Err: err}
	}
	return nil
}

// marshal builds the document by hand so key order is deterministic, then
// reindents through encoding/json to guarantee syntactic validity.
func (w *Writer) marshal(corner power.Corner, rep power.PowerReport) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	freq, err := json.Marshal(corner.FrequencyMHz)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, `"frequency":%s,`, freq)

	if corner.TraceDriven {
		fmt.Fprintf(&buf, `"activity":%q,`, power.ActivityTrace)
	} else {
		act, err := json.Marshal(corner.Activity)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, `"activity":%s,`, act)
	}

	buf.WriteString(`"results":{`)
	first := true
	for _, metric := range power.MetricOrder {
		for _, cat := range power.CategoryOrder {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			val, err := json.Marshal(rep[metric][cat])
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&buf, `"%s__power__%s__%s":%s`, w.Prefix, metric, cat, val)
		}
	}
	buf.WriteString("}}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
