package power

import "context"

// Session port (interface to the external timing/power analysis engine).
// One session serves an entire run; its clock/activity state is mutated in
// place between corners, so a session must never be shared across goroutines.
type Session interface {
	ApplySyntheticActivity(ctx context.Context, clockPort, resetPort string, periodNS, activity float64) error
	ApplyTraceActivity(ctx context.Context, clockPort string, periodNS float64, waveformPath, scope string) error
	QueryPower(ctx context.Context) (RawPowerVector, error)
	Close() error
}

// ReportWriter port (serialization of one corner's report).
type ReportWriter interface {
	Write(path string, corner Corner, report PowerReport) error
}

// ScopeNormalizer port (waveform top-scope correction, trace mode only).
type ScopeNormalizer interface {
	NormalizeScope(inputPath, outputPath string) error
}

// History port (optional persistence of per-corner headline numbers).
type History interface {
	Save(ctx context.Context, rec *CornerRecord) error
	Latest(ctx context.Context, limit int) ([]*CornerRecord, error)
	Summary(ctx context.Context, sinceDays int) (runs int, corners int, maxTotalW float64, err error)
}

// ArtifactStore port (optional upload of written report files).
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
