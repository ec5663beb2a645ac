package data

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	dm "github.com/iWorld-y/report_forge/app/report_forge/pkg/model"
)

type postgresRepo struct {
	db  *sql.DB
	log *log.Helper
}

func newPostgresRepo(db *sql.DB, logger log.Logger) *postgresRepo {
	return &postgresRepo{db: db, log: log.NewHelper(logger)}
}

func (r *postgresRepo) Create(ctx context.Context, rec *dm.Record) error {
	spec, report, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reports (id, topic, report_type, status, spec, report, diagnostic, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, removeNullBytes(rec.Spec.Topic), string(rec.Spec.ReportType), string(rec.Status),
		spec, report, removeNullBytes(rec.Diagnostic), rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *postgresRepo) Update(ctx context.Context, rec *dm.Record) error {
	spec, report, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = $2, spec = $3, report = $4, diagnostic = $5, updated_at = $6
		WHERE id = $1`,
		rec.ID, string(rec.Status), spec, report, removeNullBytes(rec.Diagnostic), rec.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("REPORT_NOT_FOUND", "report not found")
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*dm.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, spec, report, diagnostic, created_at, updated_at
		FROM reports WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("REPORT_NOT_FOUND", "report not found")
		}
		return nil, err
	}
	return rec, nil
}

func (r *postgresRepo) List(ctx context.Context, page, pageSize int) ([]*dm.Record, int, error) {
	offset := (page - 1) * pageSize
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, spec, report, diagnostic, created_at, updated_at
		FROM reports ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*dm.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *postgresRepo) SaveExport(ctx context.Context, id string, format dm.Format, content []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_exports (report_id, format, content) VALUES ($1, $2, $3)
		ON CONFLICT (report_id, format) DO UPDATE SET content = EXCLUDED.content, created_at = CURRENT_TIMESTAMP`,
		id, string(format), content)
	return err
}

func (r *postgresRepo) GetExport(ctx context.Context, id string, format dm.Format) ([]byte, error) {
	var content []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT content FROM report_exports WHERE report_id = $1 AND format = $2`, id, string(format)).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("EXPORT_NOT_FOUND", "export not rendered yet")
	}
	return content, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*dm.Record, error) {
	var (
		rec    dm.Record
		status string
		spec   []byte
		report []byte
	)
	if err := s.Scan(&rec.ID, &status, &spec, &report, &rec.Diagnostic, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = dm.Status(status)
	if err := json.Unmarshal(spec, &rec.Spec); err != nil {
		return nil, err
	}
	if len(report) > 0 {
		rec.Report = &dm.Report{}
		if err := json.Unmarshal(report, rec.Report); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// encodeRecord 序列化 JSONB 字段，report 为空时写入 NULL
func encodeRecord(rec *dm.Record) (spec string, report any, err error) {
	if spec, err = marshalJSONB(rec.Spec); err != nil {
		return "", nil, err
	}
	if rec.Report == nil {
		return spec, nil, nil
	}
	out, err := marshalJSONB(rec.Report)
	if err != nil {
		return "", nil, err
	}
	return spec, out, nil
}

// marshalJSONB PostgreSQL JSONB 不接受 \u0000，先去掉所有字符串里的 NULL 字节再序列化
func marshalJSONB(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if !bytes.Contains(b, []byte(`\u0000`)) {
		return string(b), nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return "", err
	}
	if b, err = json.Marshal(stripNullBytes(tree)); err != nil {
		return "", err
	}
	return string(b), nil
}

func stripNullBytes(v any) any {
	switch t := v.(type) {
	case string:
		return removeNullBytes(t)
	case []any:
		for i := range t {
			t[i] = stripNullBytes(t[i])
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[removeNullBytes(k)] = stripNullBytes(val)
		}
		return out
	default:
		return v
	}
}

// removeNullBytes PostgreSQL 文本字段不支持 NULL 字节
func removeNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
