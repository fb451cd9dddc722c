package postgres

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
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
 report_path = EXCLUDED.report_path,
 artifact_url = EXCLUDED.artifact_url,
 internal_w = EXCLUDED.internal_w,
 switching_w = EXCLUDED.switching_w,
 leakage_w = EXCLUDED.leakage_w,
 total_w = EXCLUDED.total_w,
 status = EXCLUDED.status,
 evaluated_at = EXCLUDED.evaluated_at;`

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
ORDER BY evaluated_at DESC LIMIT $1;`

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
WHERE evaluated_at >= NOW() - ($1 || ' days')::interval;`

	var runs, corners int
	var maxTotal float64
	err := r.db.QueryRowContext(ctx, q, sinceDays).Scan(&runs, &corners, &maxTotal)
	if err != nil {
		return 0, 0, 0, err
	}
	return runs, corners, maxTotal, nil
}
