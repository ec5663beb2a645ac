package data

import (
	"database/sql"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	_ "github.com/lib/pq"

	"github.com/iWorld-y/report_forge/app/report_forge/internal/conf"
	"github.com/iWorld-y/report_forge/app/report_forge/internal/repo"
	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
)

type Data struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	report_type TEXT NOT NULL,
	status TEXT NOT NULL,
	spec JSONB NOT NULL,
	report JSONB,
	diagnostic TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS reports_created_at_idx ON reports (created_at DESC);
CREATE TABLE IF NOT EXISTS report_exports (
	report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	format TEXT NOT NULL,
	content BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (report_id, format)
)`

// NewData 未配置数据库时 db 为空，仓库退化为内存实现。
// data.database 优先，其次使用 forge.db 拼出的 postgres 连接串
func NewData(c *conf.Data, forge *config.Config, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	driver, source := "", ""
	if c != nil && c.Database != nil && c.Database.Driver != "" {
		driver, source = c.Database.Driver, c.Database.Source
	} else if forge != nil && forge.DB.DSN() != "" {
		driver, source = "postgres", forge.DB.DSN()
	}
	if driver == "" {
		helper.Info("no database configured, using in-memory report store")
		return &Data{}, func() {}, nil
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to init reports schema: %w", err)
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		db.Close()
	}
	return &Data{db: db}, cleanup, nil
}

// NewReportRepo 根据是否配置数据库选择实现
func NewReportRepo(data *Data, logger log.Logger) repo.ReportRepo {
	if data.db == nil {
		return newMemoryRepo()
	}
	return newPostgresRepo(data.db, logger)
}
