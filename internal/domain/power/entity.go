package power

import (
	"fmt"
	"math"
	"time"
)

// Metric is one of the four power columns the engine reports per group.
type Metric string

const (
	MetricInternal  Metric = "internal"
	MetricSwitching Metric = "switching"
	MetricLeakage   Metric = "leakage"
	MetricTotal     Metric = "total"
)

// MetricOrder is the positional order of metrics inside a 4-value group
// and the serialization order of report keys.
var MetricOrder = []Metric{MetricInternal, MetricSwitching, MetricLeakage, MetricTotal}

// Category is one logical cell group in the design.
type Category string

const (
	CategorySequential    Category = "sequential"
	CategoryCombinational Category = "combinational"
	CategoryClock         Category = "clock"
	CategoryMacro         Category = "macro"
	CategoryPad           Category = "pad"
	CategoryTotal         Category = "total"
)

// GroupOrder is the order in which category groups appear in a raw vector,
// after the discarded engine-totals group.
var GroupOrder = []Category{
	CategorySequential,
	CategoryCombinational,
	CategoryClock,
	CategoryMacro,
	CategoryPad,
}

// CategoryOrder is the serialization order of categories within one metric.
var CategoryOrder = []Category{
	CategorySequential,
	CategoryCombinational,
	CategoryClock,
	CategoryMacro,
	CategoryPad,
	CategoryTotal,
}

// ActivityTrace is the activity marker written for trace-driven corners.
const ActivityTrace = "trace"

// Corner is one operating point. Activity is only meaningful when
// TraceDriven is false.
type Corner struct {
	FrequencyMHz float64
	Activity     float64
	TraceDriven  bool
}

// PeriodNS returns the clock period for this corner in nanoseconds.
func (c Corner) PeriodNS() float64 {
	return 1000.0 / c.FrequencyMHz
}

// ReportFileName returns the deterministic report file name for this corner:
// sweep corners encode frequency and activity, trace corners frequency only.
func (c Corner) ReportFileName() string {
	freq := int(math.Floor(c.FrequencyMHz))
	if c.TraceDriven {
		return fmt.Sprintf("power_analysis_vcd_f%d.json", freq)
	}
	return fmt.Sprintf("power_analysis_sweep_f%d_a%d.json", freq, int(math.Floor(c.Activity*100)))
}

// String names the corner for log and error messages.
func (c Corner) String() string {
	if c.TraceDriven {
		return fmt.Sprintf("f=%gMHz activity=trace", c.FrequencyMHz)
	}
	return fmt.Sprintf("f=%gMHz activity=%g", c.FrequencyMHz, c.Activity)
}

// RawPowerVector is the flat numeric result of one engine power query.
type RawPowerVector []float64

// PowerReport maps metric -> category -> watts. The total category is always
// the recomputed sum of the five cell-group categories, never the engine's
// own aggregate.
type PowerReport map[Metric]map[Category]float64

// CornerRecord is one persisted history row: a corner's headline numbers plus
// where its report landed.
type CornerRecord struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Mode         string    `json:"mode"`
	FrequencyMHz float64   `json:"frequency_mhz"`
	Activity     string    `json:"activity"`
	ReportPath   string    `json:"report_path"`
	ArtifactURL  string    `json:"artifact_url,omitempty"`
	InternalW    float64   `json:"internal_w"`
	SwitchingW   float64   `json:"switching_w"`
	LeakageW     float64   `json:"leakage_w"`
	TotalW       float64   `json:"total_w"`
	Status       string    `json:"status"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}
