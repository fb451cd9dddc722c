package mysql

import (
	"context"
	"database/sql"
	"time"

	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
)

type CornerRepository struct {
	db *sql.DB
}

func NewCornerRepository(db *sql.DB) *CornerRepository {
	return &CornerRepository{db: db}
}

// Save insert/update one corner history row
func (r *CornerRepository) Save(ctx context.Context, rec *power.CornerRecord) error {
	const q = `
INSERT INTO power_corners
(id, run_id, mode, frequency_mhz, activity, report_path, artifact_url,
 internal_w, switching_w, leakage_w, total_w, status, evaluated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 report_path=VALUES(report_path), artifact_url=VALUES(artifact_url),
 internal_w=VALUES(internal_w), switching_w=VALUES(switching_w),
 leakage_w=VALUES(leakage_w), total_w=VALUES(total_w),
 status=VALUES(status), evaluated_at=VALUES(evaluated_at);
`
	mode := stringOrDash(rec.Mode)
	status := stringOrDash(rec.Status)
	evaluated := rec.EvaluatedAt
	if evaluated.IsZero() {
		evaluated = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.RunID, mode, rec.FrequencyMHz, rec.Activity,
		rec.ReportPath, rec.ArtifactURL,
		rec.InternalW, rec.SwitchingW, rec.LeakageW, rec.TotalW,
		status, evaluated,
	)
	return err
}

// Latest corner rows, newest first
func (r *CornerRepository) Latest(ctx context.Context, limit int) ([]*power.CornerRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, run_id, mode, frequency_mhz, activity, report_path, artifact_url,
       internal_w, switching_w, leakage_w, total_w, status, evaluated_at
FROM power_corners
ORDER BY evaluated_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*power.CornerRecord
	for rows.Next() {
		var rec power.CornerRecord
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Mode, &rec.FrequencyMHz, &rec.Activity,
			&rec.ReportPath, &rec.ArtifactURL,
			&rec.InternalW, &rec.SwitchingW, &rec.LeakageW, &rec.TotalW,
			&rec.Status, &rec.EvaluatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Summary over the last N days: distinct runs, corner count, worst total power
func (r *CornerRepository) Summary(ctx context.Context, sinceDays int) (int, int, float64, error) {
	if sinceDays <= 0 {
		sinceDays = 30
	}
	const q = `
SELECT COUNT(DISTINCT run_id), COUNT(*), COALESCE(MAX(total_w), 0)
FROM power_corners
WHERE evaluated_at >= (NOW() - INTERVAL ? DAY);
`
	var runs, corners int
	var maxTotal float64
	err := r.db.QueryRowContext(ctx, q, sinceDays).Scan(&runs, &corners, &maxTotal)
	if err != nil {
		return 0, 0, 0, err
	}
	return runs, corners, maxTotal, nil
}
