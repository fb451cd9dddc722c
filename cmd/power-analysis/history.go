package main

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	power "github.com/antmicro/dram-power-analysis/internal/domain/power"
	mysqlp "github.com/antmicro/dram-power-analysis/internal/infra/db/mysql"
	postgresp "github.com/antmicro/dram-power-analysis/internal/infra/db/postgres"
)

// openHistory connects the optional corner history repository, returning the
// underlying handle so serve can health-check it. An unconfigured or
// unreachable database disables history rather than failing the run: report
// files on disk are the pipeline's contract.
func openHistory(ctx context.Context) (power.History, *sql.DB) {
	switch cfg.Database.Driver {
	case "":
		return nil, nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.Warn("mysql connect failed, continuing without history", zap.Error(err))
			return nil, nil
		}
		return mysqlp.NewCornerRepository(db), db
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.Warn("postgres connect failed, continuing without history", zap.Error(err))
			return nil, nil
		}
		return postgresp.NewCornerRepository(db), db
	default:
		logger.Warn("unknown database driver, continuing without history",
			zap.String("driver", cfg.Database.Driver))
		return nil, nil
	}
}
